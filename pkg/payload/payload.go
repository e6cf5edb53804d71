// Package payload resolves "self-describing" strings: values that may be
// given either literally or base64-wrapped (possibly more than once) so they
// survive CI variable substitution and shell quoting.
package payload

import (
	"encoding/base64"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxDepth bounds how many base64 layers Resolve peels off.
const DefaultMaxDepth = 3

// Resolve peels up to maxDepth base64 layers from s. A layer is only accepted
// when it decodes to valid text; otherwise the current value is returned as
// the literal.
func Resolve(s string, maxDepth int) string {
	current := s
	for i := 0; i < maxDepth; i++ {
		decoded, ok := Decode(current)
		if !ok {
			break
		}
		current = decoded
	}
	return current
}

// Decode attempts a single base64 layer.
func Decode(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}

	raw, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return "", false
	}
	if !IsText(raw) {
		return "", false
	}
	return string(raw), true
}

// IsText reports whether b is non-empty UTF-8 without control characters
// other than tab, newline and carriage return.
func IsText(b []byte) bool {
	if len(b) == 0 || !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		switch r {
		case '\t', '\n', '\r':
			continue
		}
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
