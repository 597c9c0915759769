package model

import "github.com/shopspring/decimal"

// Hundred is used for percentage math.
var Hundred = decimal.NewFromInt(100)

// Cents converts a money value to integer cents, rounding half away from zero.
func Cents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// FromCents converts integer cents to a money value.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Percent returns part/whole*100 as a float, or 0 when whole is not positive.
func Percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(Hundred).InexactFloat64()
}
