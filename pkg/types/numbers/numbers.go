// Package numbers converts between raw integer token amounts and human readable decimal strings.
package numbers

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is the precision every ledger token uses unless configured otherwise.
const DefaultDecimals = 18

// FormatUnits renders a raw amount as a decimal string with the given number of decimals.
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// ParseUnits converts a decimal string such as "1.5" into its raw integer amount.
// Values carrying more precision than decimals allows are rejected rather than truncated.
func ParseUnits(value string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount '%s': %w", value, err)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount '%s' has more than %d decimals", value, decimals)
	}
	return scaled.BigInt(), nil
}

// MustParseUnits is ParseUnits for constants known to be valid.
func MustParseUnits(value string, decimals int32) *big.Int {
	v, err := ParseUnits(value, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseBig parses a base-10 integer string as stored in the database. Empty strings are zero.
func ParseBig(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer '%s'", value)
	}
	return v, nil
}

// Proportion returns amount * numerator / denominator rounded down, or zero when denominator is zero.
func Proportion(amount *big.Int, numerator *big.Int, denominator *big.Int) *big.Int {
	if denominator == nil || denominator.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, numerator)
	return out.Quo(out, denominator)
}
