// Package types provides the monetary type shared by documents, stock and journal.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits persisted (NUMERIC(15,2)).
const MoneyScale int32 = 2

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// LineTotal is quantity x unit price rounded to MoneyScale.
func LineTotal(quantity int64, unitPrice Money) Money {
	return unitPrice.Mul(decimal.NewFromInt(quantity)).Round(MoneyScale)
}

// MoneyOr returns *m, or def when m is nil.
func MoneyOr(m *Money, def Money) Money {
	if m == nil {
		return def
	}
	return *m
}

// MinorUnits is a monetary value in minor currency units (cents).
type MinorUnits int64

// ToMinorUnits converts Money to minor units at MoneyScale, rounding half away from zero.
func ToMinorUnits(m Money) MinorUnits {
	return MinorUnits(m.Shift(MoneyScale).Round(0).IntPart())
}

// Money converts minor units back to Money.
func (m MinorUnits) Money() Money {
	return decimal.New(int64(m), -MoneyScale)
}

func (m MinorUnits) IsNegative() bool { return m < 0 }
