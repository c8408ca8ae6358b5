// Package kernel provides named, pluggable distance kernels for vector
// comparison. The default kernel is the geodesic distance on the open unit
// Poincaré ball; Euclidean kernels are included for callers that index flat
// data. Kernels come in a scalar form used by the index and the nested-loop
// executor, and an optional pairwise (batched) form used by the vectorized
// executor.
package kernel
