package logstream

import (
	"strings"
	"time"
)

// SplitPlain splits an unframed buffer into lines. Some runtimes emit a
// header-shaped binary prefix per line even when the stream is not
// multiplexed; such a prefix is removed. Other text, including lines that
// start with terminal escape sequences, is kept as is.
func SplitPlain(buf []byte) []string {
	lines := splitLines(buf)
	for i, line := range lines {
		lines[i] = stripPrefix(line)
	}
	return lines
}

func stripPrefix(line string) string {
	if len(line) < HeaderSize {
		return line
	}
	if line[0] > byte(Stderr) || line[1] != 0 || line[2] != 0 || line[3] != 0 {
		return line
	}
	return line[HeaderSize:]
}

// ParseTimestamp splits the RFC3339 timestamp a runtime prepends to each line
// when timestamps are requested. ok is false when line has no such prefix.
func ParseTimestamp(line string) (ts time.Time, rest string, ok bool) {
	head, tail, found := strings.Cut(line, " ")
	if !found {
		head, tail = line, ""
	}
	t, err := time.Parse(time.RFC3339Nano, head)
	if err != nil {
		return time.Time{}, line, false
	}
	return t, tail, true
}
