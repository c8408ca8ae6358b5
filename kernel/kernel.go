package kernel

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// Default is the name of the kernel used when a plan or index does not
	// name one explicitly.
	Default = "poincare"

	// MaxDistance is the sentinel returned for point pairs the active kernel
	// cannot measure (e.g. points on or outside the unit ball boundary for
	// the Poincaré kernel). Kernels return it instead of failing so that
	// index operations stay robust near the boundary.
	MaxDistance = math.MaxFloat64

	// boundaryEpsilon guards the Poincaré denominator against underflow.
	boundaryEpsilon = 1e-12
)

// Func calculates the distance between two vectors.
// Implementations assume len(a) == len(b); length validation is the
// caller's responsibility.
type Func func(a, b []float64) float64

// Poincare computes the geodesic distance between two points of the open
// unit Poincaré ball:
//
//	d(x,y) = acosh(1 + 2*|x-y|^2 / ((1-|x|^2)*(1-|y|^2)))
//
// Points with norm >= 1, or pairs whose denominator underflows, yield
// MaxDistance.
func Poincare(a, b []float64) float64 {
	na := floats.Dot(a, a)
	nb := floats.Dot(b, b)

	return poincareFromParts(na, nb, squaredL2(a, b))
}

// poincareFromParts evaluates the Poincaré formula from precomputed squared
// norms and the squared Euclidean distance. The pairwise (batched) kernel
// funnels through the same function so both paths agree on sentinel cases.
func poincareFromParts(na, nb, sq float64) float64 {
	if na >= 1 || nb >= 1 {
		return MaxDistance
	}

	denom := (1 - na) * (1 - nb)
	if denom < boundaryEpsilon {
		return MaxDistance
	}

	arg := 1 + 2*sq/denom
	if arg < 1 {
		// Rounding can push the argument marginally below acosh's domain.
		arg = 1
	}

	return math.Acosh(arg)
}

// Euclidean computes the L2 distance between two vectors.
func Euclidean(a, b []float64) float64 {
	return math.Sqrt(squaredL2(a, b))
}

// SquaredL2 computes the squared L2 distance between two vectors.
func SquaredL2(a, b []float64) float64 {
	return squaredL2(a, b)
}

func squaredL2(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return sum
}

// Norm returns the Euclidean norm of v.
func Norm(v []float64) float64 {
	return math.Sqrt(floats.Dot(v, v))
}
