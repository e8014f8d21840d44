package logstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitPlain(t *testing.T) {
	prefixed := string([]byte{1, 0, 0, 0, 0, 0, 0, 5}) + "hello"

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single line no newline", in: "one", want: []string{"one"}},
		{name: "crlf", in: "one\r\ntwo\r\n", want: []string{"one", "two"}},
		{name: "keeps blank interior lines", in: "a\n\nb\n", want: []string{"a", "", "b"}},
		{name: "strips binary prefix", in: prefixed + "\nplain\n", want: []string{"hello", "plain"}},
		{name: "tab is not a prefix", in: "\tindented line\n", want: []string{"\tindented line"}},
		{name: "stdin prefix", in: string([]byte{0, 0, 0, 0, 0, 0, 0, 2}) + "ok\n", want: []string{"ok"}},
		{
			name: "ansi colours are kept",
			in:   "\x1b[32mINFO\x1b[0m server started\n\x1b[1;31mERROR\x1b[0m disk full\n",
			want: []string{"\x1b[32mINFO\x1b[0m server started", "\x1b[1;31mERROR\x1b[0m disk full"},
		},
		{name: "control byte without header shape", in: "\x01\x02\x03 not a header line\n", want: []string{"\x01\x02\x03 not a header line"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPlain([]byte(tt.in))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, rest, ok := ParseTimestamp("2024-05-01T10:11:12.123456789Z listening on :5432")
	assert.True(t, ok)
	assert.Equal(t, "listening on :5432", rest)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 11, 12, 123456789, time.UTC), ts)

	_, rest, ok = ParseTimestamp("no timestamp here")
	assert.False(t, ok)
	assert.Equal(t, "no timestamp here", rest)

	_, rest, ok = ParseTimestamp("2024-05-01T10:11:12Z")
	assert.True(t, ok)
	assert.Equal(t, "", rest)
}
