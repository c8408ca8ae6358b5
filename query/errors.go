package query

import "fmt"

// ErrKernelNotFound indicates plan metadata referencing an unregistered
// kernel name. It is fatal to the whole plan and raised before any row is
// produced; the executor never substitutes a different metric.
type ErrKernelNotFound struct {
	Name string
}

func (e *ErrKernelNotFound) Error() string {
	return fmt.Sprintf("kernel not found: %q", e.Name)
}

// ErrInvalidPlanNode indicates a malformed plan tree (nil or unknown node,
// wrong child arity, invalid argument). It is a programmer error and fails
// fast instead of silently no-opping.
type ErrInvalidPlanNode struct {
	Reason string
}

func (e *ErrInvalidPlanNode) Error() string {
	return fmt.Sprintf("invalid plan node: %s", e.Reason)
}
