package aggregation

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Percent returns done/total as a percentage rounded to two places.
func Percent(done, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(done)).Mul(hundred).Div(decimal.NewFromInt(int64(total))).Round(2)
}

// Share returns part/total rounded to four places. A zero total yields zero.
func Share(part, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(total)).Round(4)
}
