// Package types provides common type aliases and utilities.
package types

import (
	"math"

	"github.com/shopspring/decimal"
)

// QuantityScale is the fixed divisor between the ERP's stored integer
// quantities and display units. Stored 537 means 5.37 units.
//
// Filters and projections must go through QuantityFromScaled and ScaledCeil
// so a schema change to the scale cannot desynchronize them.
const QuantityScale int64 = 100

var (
	scale     = decimal.NewFromInt(QuantityScale)
	maxScaled = decimal.NewFromInt(math.MaxInt64)
	minScaled = decimal.NewFromInt(math.MinInt64)
)

// Quantity is an on-hand quantity in display units.
type Quantity = decimal.Decimal

// QuantityFromScaled converts a raw stored quantity into display units.
func QuantityFromScaled(raw int64) Quantity {
	return decimal.NewFromInt(raw).Div(scale)
}

// ScaledCeil converts a lower bound in display units into the smallest stored
// integer that satisfies it. For an integer column, col >= ScaledCeil(q) is
// equivalent to col / 100 >= q.
//
// Values outside the int64 range saturate; callers reject them first with
// ScaledInRange.
func ScaledCeil(q Quantity) int64 {
	v := q.Mul(scale).Ceil()
	switch {
	case v.GreaterThan(maxScaled):
		return math.MaxInt64
	case v.LessThan(minScaled):
		return math.MinInt64
	}
	return v.IntPart()
}

// ScaledInRange reports whether ScaledCeil(q) is exact, i.e. the scaled bound
// fits in the stored int64 column.
func ScaledInRange(q Quantity) bool {
	v := q.Mul(scale).Ceil()
	return !v.GreaterThan(maxScaled) && !v.LessThan(minScaled)
}

// ParseQuantity parses a decimal string such as "5", "5.4" or "-0.25".
func ParseQuantity(s string) (Quantity, error) {
	return decimal.NewFromString(s)
}

// MustQuantity parses a quantity, panics on error.
// Use only for constants and tests.
func MustQuantity(s string) Quantity {
	q, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return q
}
