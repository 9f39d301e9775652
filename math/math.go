// math/math.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"golang.org/x/exp/constraints"
)

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func Sqr[V constraints.Integer | constraints.Float](v V) V { return v * v }

func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

func Lerp[T constraints.Float](x, a, b T) T {
	return (1-x)*a + x*b
}

func Sign[V constraints.Integer | constraints.Float](v V) V {
	if v > 0 {
		return 1
	} else if v < 0 {
		// The untyped constant -1 is not representable in the unsigned types
		// of the constraint, so negate a typed value; this branch is
		// unreachable for unsigned instantiations.
		one := V(1)
		return -one
	}
	return 0
}

// LerpMap returns the linearly-interpolated value of a piecewise-linear
// function given by parallel slices of x coordinates (which must be sorted
// in ascending order) and corresponding values. Queries outside the domain
// of xs clamp to the first or last value rather than extrapolating.
func LerpMap[T constraints.Float](x T, xs, vs []T) T {
	if len(xs) == 0 || len(xs) != len(vs) {
		return 0
	}
	if x <= xs[0] {
		return vs[0]
	}
	if x >= xs[len(xs)-1] {
		return vs[len(vs)-1]
	}
	for i := 1; i < len(xs); i++ {
		if x <= xs[i] {
			t := (x - xs[i-1]) / (xs[i] - xs[i-1])
			return Lerp(t, vs[i-1], vs[i])
		}
	}
	return vs[len(vs)-1]
}
