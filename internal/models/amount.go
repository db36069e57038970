package models

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount that fits in an unsigned 256-bit integer.
var MaxAmount = decimal.NewFromBigInt(
	new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)),
	0,
)

// ValidAmount reports whether d is a strictly positive integer that fits in
// 256 bits.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.IsInteger() && d.LessThanOrEqual(MaxAmount)
}

// ParseAmount parses a base-10 integer amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
