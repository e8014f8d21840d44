package logstream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"strings"
)

// maxFrameSize bounds the payload allocation for a single streamed frame.
// Headers declaring more than this are treated as plain text.
const maxFrameSize = 16 << 20

// Reader decodes a live multiplexed log stream one line at a time.
//
// It starts in framed mode and switches permanently to plain-text mode the
// first time the bytes at a frame boundary do not form a header. A frame cut
// short by the end of the stream yields its available bytes before io.EOF.
// Reader is not safe for concurrent use.
type Reader struct {
	br      *bufio.Reader
	plain   bool
	pending []Line
	err     error
}

// NewReader returns a Reader decoding r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 32*1024)}
}

// Next returns the next decoded line. It returns io.EOF once the stream is
// exhausted; any other error comes from the underlying reader.
func (r *Reader) Next() (Line, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return Line{}, r.err
		}
		r.fill()
	}
	line := r.pending[0]
	r.pending = r.pending[1:]
	return line, nil
}

func (r *Reader) fill() {
	if r.plain {
		r.fillPlain()
		return
	}

	header, err := r.br.Peek(HeaderSize)
	if err != nil {
		if !isEOF(err) {
			r.err = err
			return
		}
		// Fewer than HeaderSize bytes left: flush them as text.
		r.plain = true
		return
	}
	if !isHeader(header) {
		r.plain = true
		return
	}
	size := binary.BigEndian.Uint32(header[4:HeaderSize])
	if size > maxFrameSize {
		r.plain = true
		return
	}
	stream := StreamType(header[0])
	if _, err := r.br.Discard(HeaderSize); err != nil {
		r.err = err
		return
	}
	if size == 0 {
		return
	}

	payload := make([]byte, size)
	n, err := io.ReadFull(r.br, payload)
	if err != nil {
		if n > 0 {
			for _, text := range SplitPlain(payload[:n]) {
				r.pending = append(r.pending, Line{Stream: Unframed, Text: text})
			}
		}
		if isEOF(err) {
			r.err = io.EOF
		} else {
			r.err = err
		}
		return
	}
	for _, text := range splitLines(payload) {
		r.pending = append(r.pending, Line{Stream: stream, Text: text})
	}
}

func (r *Reader) fillPlain() {
	text, err := r.br.ReadString('\n')
	if len(text) > 0 {
		text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
		r.pending = append(r.pending, Line{Stream: Unframed, Text: stripPrefix(text)})
	}
	if err != nil {
		if isEOF(err) {
			r.err = io.EOF
		} else {
			r.err = err
		}
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
