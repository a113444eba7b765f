package types

import "github.com/shopspring/decimal"

// Round rounds x to the given number of fractional digits (half away from
// zero). The balance engine applies it once to each aggregated sum, not per
// posting. Negative precision is treated as zero.
func Round(x float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	d := decimal.NewFromFloat(x).Round(int32(precision))
	f, _ := d.Float64()
	return f
}

// WithinTolerance reports whether two amounts differ by no more than one
// unit at the given precision's scale (10^-precision), the balance
// invariant used by journal commit validation.
func WithinTolerance(a, b float64, precision int) bool {
	da := decimal.NewFromFloat(a)
	db := decimal.NewFromFloat(b)
	diff := da.Sub(db).Abs()
	tolerance := decimal.New(1, -int32(precision))
	return diff.LessThanOrEqual(tolerance)
}
