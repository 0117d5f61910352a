package selection

import "math"

// GrahamNumber returns sqrt(multiplier × EPS × BVPS).
// Undefined (nil) when either input is absent or non-positive.
func GrahamNumber(eps, bvps *float64, multiplier float64) *float64 {
	if eps == nil || bvps == nil || *eps <= 0 || *bvps <= 0 {
		return nil
	}
	g := math.Sqrt(multiplier * *eps * *bvps)
	return &g
}

// MarginOfSafety returns (graham − price) / graham × 100.
// Undefined when the Graham Number or a positive price is missing.
func MarginOfSafety(graham, price *float64) *float64 {
	if graham == nil || price == nil || *graham <= 0 || *price <= 0 {
		return nil
	}
	mos := (*graham - *price) / *graham * 100
	return &mos
}
