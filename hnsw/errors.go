package hnsw

import "fmt"

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
// The failing call leaves the index untouched.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrDuplicateID indicates an insert under an id that already exists.
// Records are immutable; use Update for delete-plus-insert semantics.
type ErrDuplicateID struct {
	ID string
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate id: %q", e.ID)
}
