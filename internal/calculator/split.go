package calculator

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrPrecisionCeiling is returned when an amount, or a sum of amounts, does
// not fit the signed 64-bit accumulator used for balance math. Stored amounts
// may be up to 256 bits wide; balances are only computed below this ceiling.
var ErrPrecisionCeiling = errors.New("amount exceeds 64-bit balance precision")

// Share computes one participant's equal portion of amount:
// floor(amount / splitCount). The remainder is not redistributed.
func Share(amount decimal.Decimal, splitCount int) (int64, error) {
	if splitCount <= 0 {
		return 0, fmt.Errorf("split count must be positive, got %d", splitCount)
	}
	if amount.IsNegative() || !amount.IsInteger() {
		return 0, fmt.Errorf("invalid amount %s", amount)
	}
	q := new(big.Int).Quo(amount.BigInt(), big.NewInt(int64(splitCount)))
	if !q.IsInt64() {
		return 0, fmt.Errorf("share of %s: %w", amount, ErrPrecisionCeiling)
	}
	return q.Int64(), nil
}

// narrow converts a non-negative integer amount to int64.
func narrow(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() || !amount.IsInteger() {
		return 0, fmt.Errorf("invalid amount %s", amount)
	}
	b := amount.BigInt()
	if !b.IsInt64() {
		return 0, fmt.Errorf("amount %s: %w", amount, ErrPrecisionCeiling)
	}
	return b.Int64(), nil
}

// add returns a+b, failing instead of wrapping on overflow.
func add(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrPrecisionCeiling
	}
	return a + b, nil
}

func sub(a, b int64) (int64, error) {
	if b == math.MinInt64 {
		return 0, ErrPrecisionCeiling
	}
	return add(a, -b)
}

func mul(a int64, n int) (int64, error) {
	if n == 0 || a == 0 {
		return 0, nil
	}
	r := a * int64(n)
	if r/int64(n) != a {
		return 0, ErrPrecisionCeiling
	}
	return r, nil
}
