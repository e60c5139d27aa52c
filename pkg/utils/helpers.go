// Package utils provides utility functions and constants for common operations
// throughout the application.
package utils

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Ethereum address constants
var (
	// NullEthereumAddress is the null Ethereum address without the 0x prefix
	NullEthereumAddress = "0000000000000000000000000000000000000000"

	// NullEthereumAddressHex is the null Ethereum address with the 0x prefix
	NullEthereumAddressHex = fmt.Sprintf("0x%s", NullEthereumAddress)
)

// AreAddressesEqual compares two Ethereum addresses for equality, ignoring case.
func AreAddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ParseAddress parses a hex address, rejecting malformed input instead of silently zero-padding it.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address '%s'", s)
	}
	return common.HexToAddress(s), nil
}

// ParseAddresses parses every entry, failing on the first invalid one.
func ParseAddresses(values []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(values))
	for _, v := range values {
		a, err := ParseAddress(v)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// IsZeroAddress reports whether a is the null address.
func IsZeroAddress(a common.Address) bool {
	return a == (common.Address{})
}

// AddressKey is the canonical form an address is stored under: lowercase, 0x prefixed.
func AddressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// Map applies f to every element of s.
func Map[A any, B any](s []A, f func(A, uint64) B) []B {
	out := make([]B, 0, len(s))
	for i, v := range s {
		out = append(out, f(v, uint64(i)))
	}
	return out
}

// Filter keeps the elements of s for which f returns true.
func Filter[A any](s []A, f func(A) bool) []A {
	out := make([]A, 0)
	for _, v := range s {
		if f(v) {
			out = append(out, v)
		}
	}
	return out
}
