package services

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
)

// LogStream is a pull iterator over log records.
//
//	for stream.Next() {
//	    rec := stream.Record()
//	}
//	if err := stream.Err(); err != nil { ... }
//
// The backend handle is closed exactly once: when the stream ends, when its
// context is cancelled, when reading fails, or when Close is called.
// Cancellation ends the stream without an error.
type LogStream struct {
	ctx  context.Context
	next func() (LogRecord, error)

	closer    io.Closer
	closeOnce sync.Once
	closeErr  error
	stop      func() bool

	cur  LogRecord
	err  error
	done bool
}

// NewLogStream wraps a record source. next returns io.EOF at the natural end
// of the stream; closer releases the backend and may be nil.
func NewLogStream(ctx context.Context, next func() (LogRecord, error), closer io.Closer) *LogStream {
	s := &LogStream{ctx: ctx, next: next, closer: closer}
	s.stop = context.AfterFunc(ctx, func() { s.closeBackend() })
	return s
}

// StaticLogStream returns a stream over already materialised records.
func StaticLogStream(ctx context.Context, records []LogRecord) *LogStream {
	i := 0
	return NewLogStream(ctx, func() (LogRecord, error) {
		if i >= len(records) {
			return LogRecord{}, io.EOF
		}
		rec := records[i]
		i++
		return rec, nil
	}, nil)
}

// Next advances to the next record. It returns false at the end of the
// stream, after cancellation or on error.
func (s *LogStream) Next() bool {
	if s.done {
		return false
	}
	if s.ctx.Err() != nil {
		s.finish(nil)
		return false
	}

	rec, err := s.next()
	if err != nil {
		if errors.Is(err, io.EOF) || s.ctx.Err() != nil || isClosedErr(err) {
			s.finish(nil)
		} else {
			s.finish(err)
		}
		return false
	}
	s.cur = rec
	return true
}

// Record returns the record read by the last successful Next.
func (s *LogStream) Record() LogRecord {
	return s.cur
}

// Err returns the read error that ended the stream, if any. Natural end and
// cancellation both leave it nil.
func (s *LogStream) Err() error {
	return s.err
}

// Close releases the backend handle. It is safe to call more than once.
func (s *LogStream) Close() error {
	s.done = true
	s.stop()
	return s.closeBackend()
}

func (s *LogStream) finish(err error) {
	s.err = err
	_ = s.Close()
}

func (s *LogStream) closeBackend() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) || errors.Is(err, context.Canceled)
}
