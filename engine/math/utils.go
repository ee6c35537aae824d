package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// IsPositiveMultiple reports whether n is non-zero and an exact multiple of stride.
// A zero stride never has multiples.
func IsPositiveMultiple[T constraints.Unsigned](n, stride T) bool {
	return stride != 0 && n != 0 && n%stride == 0
}

// SplitIndex breaks a flat index into its row (index / stride) and column (index % stride).
func SplitIndex[T constraints.Unsigned](index, stride T) (row, col T) {
	return index / stride, index % stride
}
