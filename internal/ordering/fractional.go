// Package ordering holds the position math shared by the board services and
// the drag-and-drop client: fractional keys for tasks and index splicing for
// columns.
package ordering

import "math"

// DefaultPosition is handed to the first task of an empty column.
const DefaultPosition = 0.5

// MinGap is the smallest neighbor gap Allocate is trusted to split. Below it
// the column should be renormalized.
const MinGap = 1e-9

// Allocate returns a key that sorts between before and after. A nil bound
// means there is no neighbor on that side.
//
// Repeated inserts into the same gap halve it each time, so a unit gap is
// good for roughly 30 splits before MinGap and about 50 before float64
// collapses the mean onto a neighbor. Callers check Exhausted and schedule a
// renormalization instead of relying on keys past that point.
func Allocate(before, after *float64) float64 {
	switch {
	case before == nil && after == nil:
		return DefaultPosition
	case before == nil:
		return *after / 2
	case after == nil:
		return *before + 0.5
	default:
		return (*before + *after) / 2
	}
}

// Exhausted reports whether the gap between before and after is too small
// to keep producing distinct keys. One-sided and empty gaps never exhaust,
// except a head insert whose neighbor has shrunk to (almost) zero.
func Exhausted(before, after *float64) bool {
	switch {
	case before == nil && after == nil:
		return false
	case before == nil:
		return math.Abs(*after) < MinGap
	case after == nil:
		return false
	}

	lo, hi := *before, *after
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi-lo < MinGap {
		return true
	}
	mid := (lo + hi) / 2
	return mid <= lo || mid >= hi
}

// Spread returns n evenly spaced keys 1..n used to rewrite a column whose
// gaps have worn out. Order is preserved by assigning them in display order.
func Spread(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

// Float is a small helper for building optional neighbor positions.
func Float(v float64) *float64 {
	return &v
}
