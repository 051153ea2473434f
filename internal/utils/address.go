package utils

import (
	"regexp"
	"strings"
)

var evmAddressPattern = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

// IsEvmAddress checks whether the string is a 20-byte EVM address with 0x prefix
func IsEvmAddress(address string) bool {
	return evmAddressPattern.MatchString(address)
}

// NormalizeAddress lowercases an EVM address so comparisons and storage keys
// are consistent regardless of checksum casing
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Truncate cuts a string to at most max runes. Shipping fields are
// truncated before storage so a malicious payload cannot inflate rows.
// Cutting on a rune boundary keeps the stored value valid UTF-8.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
