// Package testutil provides seeded random data generators for tests.
package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG encapsulates a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// BallVector generates a single random point strictly inside the open unit
// ball, with norm at most maxNorm. Directions are Gaussian for uniformity
// on the sphere; radii are scaled into [0, maxNorm).
func (r *RNG) BallVector(dimensions int, maxNorm float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ballVectorLocked(dimensions, maxNorm)
}

// BallVectors generates num random points strictly inside the open unit
// ball.
func (r *RNG) BallVectors(num, dimensions int, maxNorm float64) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float64, num)
	for i := range vectors {
		vectors[i] = r.ballVectorLocked(dimensions, maxNorm)
	}

	return vectors
}

func (r *RNG) ballVectorLocked(dimensions int, maxNorm float64) []float64 {
	vec := make([]float64, dimensions)

	var norm float64
	for i := range vec {
		v := r.rand.NormFloat64()
		vec[i] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)

	if norm == 0 {
		norm = 1
	}

	// Radius ~ U^(1/d) gives a uniform distribution over the ball volume.
	radius := maxNorm * math.Pow(r.rand.Float64(), 1/float64(dimensions))

	scale := radius / norm
	for i := range vec {
		vec[i] *= scale
	}

	return vec
}
