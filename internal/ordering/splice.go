package ordering

// ClampIndex pins i into [0, n-1]. For n <= 0 it returns 0.
func ClampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// Move returns a copy of items with the element at from relocated to to,
// shifting everything in between by one. Indices are clamped.
func Move[T any](items []T, from, to int) []T {
	out := make([]T, len(items))
	copy(out, items)
	if len(out) == 0 {
		return out
	}

	from = ClampIndex(from, len(out))
	to = ClampIndex(to, len(out))
	if from == to {
		return out
	}

	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out
}

// Shift describes one dense-position write produced by Rebalance.
type Shift struct {
	Index       int
	OldPosition int
	NewPosition int
}

// Rebalance computes the position writes for moving the item at oldPos to
// newPos in a dense 0..n-1 sequence. positions[i] is the current position of
// item i. Items right of the move shift left when moving right and vice
// versa; only changed items are returned.
func Rebalance(positions []int, oldPos, newPos int) []Shift {
	var shifts []Shift
	for i, p := range positions {
		switch {
		case p == oldPos:
			if oldPos != newPos {
				shifts = append(shifts, Shift{Index: i, OldPosition: p, NewPosition: newPos})
			}
		case oldPos < newPos && p > oldPos && p <= newPos:
			shifts = append(shifts, Shift{Index: i, OldPosition: p, NewPosition: p - 1})
		case newPos < oldPos && p >= newPos && p < oldPos:
			shifts = append(shifts, Shift{Index: i, OldPosition: p, NewPosition: p + 1})
		}
	}
	return shifts
}

// Dense reports whether positions is exactly a permutation of 0..n-1.
func Dense(positions []int) bool {
	seen := make([]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(positions) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}
