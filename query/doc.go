// Package query provides an immutable plan-node tree and an interpreter
// that executes it against a Storage collaborator and a kernel registry,
// producing a lazy sequence of rows. Execution is a linear interpretation of
// the tree: no state machine, no backtracking. A VectorizedExecutor
// specializes the geodesic join to a batched pairwise-distance computation.
package query
