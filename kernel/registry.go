package kernel

import (
	"sort"
	"sync"
)

// Registry holds named distance kernels. It is explicit state: construct one
// at startup, register any custom kernels, then inject it into the index and
// executors. The registry is read-mostly after startup and must be fully
// populated before concurrent use begins.
//
// Register silently overwrites an existing name. Callers of Get must fail
// explicitly when a name is absent rather than substituting another metric;
// mixing metrics mid-operation breaks every distance invariant the index
// relies on.
type Registry struct {
	mu       sync.RWMutex
	scalar   map[string]Func
	pairwise map[string]PairwiseFunc
}

// NewRegistry creates a registry pre-populated with the built-in kernels:
// "poincare" (default), "euclidean" and "squared_l2". The first two also
// carry pairwise forms for the vectorized executor.
func NewRegistry() *Registry {
	r := &Registry{
		scalar:   make(map[string]Func),
		pairwise: make(map[string]PairwiseFunc),
	}

	r.Register(Default, Poincare)
	r.Register("euclidean", Euclidean)
	r.Register("squared_l2", SquaredL2)

	r.RegisterPairwise(Default, PoincarePairwise)
	r.RegisterPairwise("euclidean", EuclideanPairwise)

	return r
}

// Register stores fn under name, overwriting silently on collision.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scalar[name] = fn
}

// Get returns the scalar kernel registered under name.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.scalar[name]
	return fn, ok
}

// RegisterPairwise stores the batched form of a kernel, overwriting silently
// on collision.
func (r *Registry) RegisterPairwise(name string, fn PairwiseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pairwise[name] = fn
}

// Pairwise returns the batched kernel registered under name. A kernel
// without a pairwise form is not an error; the vectorized executor falls
// back to the scalar path.
func (r *Registry) Pairwise(name string) (PairwiseFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.pairwise[name]
	return fn, ok
}

// Names returns the sorted names of all registered scalar kernels.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scalar))
	for name := range r.scalar {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
