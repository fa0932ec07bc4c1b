// internal/identify/mac.go
package identify

import (
	"fmt"
	"strings"
)

// FormatMAC normalizes a raw 6-byte MAC into lowercase colon-separated form.
func FormatMAC(raw []byte) string {
	parts := make([]string, len(raw))
	for i, b := range raw {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// NormalizeMAC accepts a MAC in either bare-hex ("aabbccddeeff") or already
// delimited form and returns the canonical lowercase colon-separated string.
// Unrecognized input is lowercased and returned as-is.
func NormalizeMAC(s string) string {
	text := strings.ToLower(strings.TrimSpace(s))

	if len(text) == 12 && isHex(text) {
		parts := make([]string, 0, 6)
		for i := 0; i < 12; i += 2 {
			parts = append(parts, text[i:i+2])
		}
		return strings.Join(parts, ":")
	}

	return strings.ReplaceAll(text, "-", ":")
}

func isHex(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
