// Package logstream decodes the multiplexed log format used by container
// runtimes when a container has no TTY attached.
//
// Each frame starts with an 8-byte header:
//
//	byte 0     stream type (1 = stdout, 2 = stderr)
//	bytes 1-3  unused
//	bytes 4-7  big-endian payload length
//
// followed by the payload. Decoding is best-effort by design of the format's
// consumers: short buffers, truncated frames and unknown stream types degrade
// to plain text and never produce an error.
//
// DecodeFrame and Decode work on complete buffers (tail mode); Reader
// consumes a live stream (follow mode). SplitPlain handles runtimes that
// return newline-separated text without framing.
package logstream
