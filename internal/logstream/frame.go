package logstream

import (
	"bytes"
	"encoding/binary"
)

// HeaderSize is the length of a multiplexed frame header.
const HeaderSize = 8

// StreamType identifies the output channel of a frame.
type StreamType uint8

const (
	// Unframed marks text that did not arrive in a valid frame.
	Unframed StreamType = 0
	Stdout   StreamType = 1
	Stderr   StreamType = 2
)

func (s StreamType) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return ""
	}
}

// Frame is one decoded unit of a log buffer.
type Frame struct {
	Stream  StreamType
	Payload []byte
}

// Line is a single line of text together with the stream it came from.
type Line struct {
	Stream StreamType
	Text   string
}

// isHeader reports whether b starts with a multiplexed frame header: a
// stdout or stderr discriminator followed by three zero bytes.
func isHeader(b []byte) bool {
	if len(b) < HeaderSize {
		return false
	}
	if b[0] != byte(Stdout) && b[0] != byte(Stderr) {
		return false
	}
	return b[1] == 0 && b[2] == 0 && b[3] == 0
}

// DecodeFrame decodes a single frame from the start of chunk.
//
// Chunks that do not start with a frame header are returned verbatim as
// unframed text. A frame whose declared length exceeds
// the available bytes yields whatever payload bytes are present.
func DecodeFrame(chunk []byte) Frame {
	if !isHeader(chunk) {
		return Frame{Stream: Unframed, Payload: chunk}
	}
	size := binary.BigEndian.Uint32(chunk[4:HeaderSize])
	body := chunk[HeaderSize:]
	if uint64(size) > uint64(len(body)) {
		return Frame{Stream: Unframed, Payload: body}
	}
	return Frame{Stream: StreamType(chunk[0]), Payload: body[:size]}
}

// Decode walks a buffer of back-to-back frames. Zero-length frames are
// skipped. When the bytes left cannot form a valid frame they are appended
// as a single unframed remainder. Decode never fails.
func Decode(buf []byte) []Frame {
	var frames []Frame
	offset := 0
	for offset < len(buf) {
		rest := buf[offset:]
		if !isHeader(rest) {
			frames = append(frames, Frame{Stream: Unframed, Payload: rest})
			break
		}
		size := binary.BigEndian.Uint32(rest[4:HeaderSize])
		body := rest[HeaderSize:]
		if uint64(size) > uint64(len(body)) {
			if len(body) > 0 {
				frames = append(frames, Frame{Stream: Unframed, Payload: body})
			}
			break
		}
		if size > 0 {
			frames = append(frames, Frame{Stream: StreamType(rest[0]), Payload: body[:size]})
		}
		offset += HeaderSize + int(size)
	}
	return frames
}

// Text concatenates the payloads of frames in order.
func Text(frames []Frame) string {
	var b bytes.Buffer
	for _, f := range frames {
		b.Write(f.Payload)
	}
	return b.String()
}

// Lines splits every frame payload on newlines, keeping each line's stream.
// Unframed payloads go through the plain-text fallback so that stray
// prefixes are stripped.
func Lines(frames []Frame) []Line {
	var lines []Line
	for _, f := range frames {
		if f.Stream == Unframed {
			for _, text := range SplitPlain(f.Payload) {
				lines = append(lines, Line{Stream: Unframed, Text: text})
			}
			continue
		}
		for _, text := range splitLines(f.Payload) {
			lines = append(lines, Line{Stream: f.Stream, Text: text})
		}
	}
	return lines
}

// Encode builds a frame for payload on the given stream.
func Encode(stream StreamType, payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	out[0] = byte(stream)
	binary.BigEndian.PutUint32(out[4:HeaderSize], uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out
}

// splitLines splits on '\n', drops a trailing '\r' and ignores the empty
// element produced by a final newline.
func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	parts := bytes.Split(b, []byte{'\n'})
	if len(parts[len(parts)-1]) == 0 {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, string(bytes.TrimSuffix(p, []byte{'\r'})))
	}
	return out
}
