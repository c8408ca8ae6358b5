package kernel

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// PairwiseFunc computes the full distance matrix between the rows of left
// and the rows of right. The result has left-rows x right-rows entries and
// must agree entrywise with the kernel's scalar form within floating-point
// tolerance, sentinel cases included.
type PairwiseFunc func(left, right *mat.Dense) *mat.Dense

// PoincarePairwise is the batched form of Poincare. The squared Euclidean
// distances are derived from the Gram matrix left*right^T, then the
// hyperbolic transform is applied elementwise, parallelized per row.
func PoincarePairwise(left, right *mat.Dense) *mat.Dense {
	n, _ := left.Dims()
	m, _ := right.Dims()

	gram := mat.NewDense(n, m, nil)
	gram.Mul(left, right.T())

	leftNorms := rowSquaredNorms(left)
	rightNorms := rowSquaredNorms(right)

	out := mat.NewDense(n, m, nil)

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < n; i++ {
		g.Go(func() error {
			for j := 0; j < m; j++ {
				sq := leftNorms[i] + rightNorms[j] - 2*gram.At(i, j)
				if sq < 0 {
					sq = 0
				}

				out.Set(i, j, poincareFromParts(leftNorms[i], rightNorms[j], sq))
			}

			return nil
		})
	}

	// The workers are pure per-row compute and never return an error.
	_ = g.Wait()

	return out
}

// EuclideanPairwise is the batched form of Euclidean.
func EuclideanPairwise(left, right *mat.Dense) *mat.Dense {
	n, _ := left.Dims()
	m, _ := right.Dims()

	gram := mat.NewDense(n, m, nil)
	gram.Mul(left, right.T())

	leftNorms := rowSquaredNorms(left)
	rightNorms := rowSquaredNorms(right)

	out := mat.NewDense(n, m, nil)

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < n; i++ {
		g.Go(func() error {
			for j := 0; j < m; j++ {
				sq := leftNorms[i] + rightNorms[j] - 2*gram.At(i, j)
				if sq < 0 {
					sq = 0
				}

				out.Set(i, j, math.Sqrt(sq))
			}

			return nil
		})
	}

	_ = g.Wait()

	return out
}

func rowSquaredNorms(m *mat.Dense) []float64 {
	rows, cols := m.Dims()

	norms := make([]float64, rows)
	for i := 0; i < rows; i++ {
		var sum float64
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			sum += v * v
		}

		norms[i] = sum
	}

	return norms
}
