package config

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate returns a copy of tree with every ${NAME} token inside string
// values replaced from vars. Maps and slices are walked recursively; other
// values are returned unchanged. Tokens naming an unknown variable are left
// as they are.
func Interpolate(tree any, vars map[string]string) any {
	switch v := tree.(type) {
	case string:
		return InterpolateString(v, vars)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = Interpolate(val, vars)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for key, val := range v {
			out[key] = Interpolate(val, vars)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = Interpolate(val, vars)
		}
		return out
	default:
		return v
	}
}

// InterpolateString replaces ${NAME} tokens in s.
func InterpolateString(s string, vars map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return tokenRe.ReplaceAllStringFunc(s, func(tok string) string {
		name := tok[2 : len(tok)-1]
		if val, ok := vars[name]; ok {
			return val
		}
		return tok
	})
}

// MergeVariables builds the interpolation view: fileVars (from a dotenv
// file) overridden by environ entries in KEY=VALUE form.
func MergeVariables(fileVars map[string]string, environ []string) map[string]string {
	vars := make(map[string]string, len(fileVars)+len(environ))
	for k, v := range fileVars {
		vars[k] = v
	}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}
	return vars
}
