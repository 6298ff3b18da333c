package transform

import (
	"encoding/hex"
	"strings"
)

// BytesToHex converts a byte slice to a lower-case hex string.
// Returns empty string for an empty slice.
func BytesToHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return hex.EncodeToString(b)
}

// HexToBytes decodes a hex string, tolerating an optional "0x" prefix.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

// capitalizeFirstRune upper-cases only the first rune of s, leaving the
// rest untouched. This is not the displayName default used by the
// metadata merge (internal/metadata/merge.go's titleCase splits
// camelCase/snake_case into separate words instead); it exists for
// identifiers that are already a single word.
func capitalizeFirstRune(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - ('a' - 'A')
	}
	return string(r)
}
