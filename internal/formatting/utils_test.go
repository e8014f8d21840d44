package formatting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"strata/internal/services"
)

func TestPrettyJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{
			name:     "status row",
			input:    StatusRow{Name: "db", Kind: services.KindContainer, State: services.StateRunning},
			expected: "{\n  \"name\": \"db\",\n  \"kind\": \"container\",\n  \"state\": \"running\"\n}",
		},
		{
			name:     "empty list",
			input:    []StatusRow{},
			expected: "[]",
		},
		{
			name:     "nil",
			input:    nil,
			expected: "null",
		},
		{
			name:     "unmarshalable falls back",
			input:    func() {},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PrettyJSON(tt.input)
			if tt.expected == "" {
				assert.NotEmpty(t, result)
				return
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}
