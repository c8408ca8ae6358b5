package gyro

import "errors"

var (
	// ErrNotFound is returned when a record id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrKernelNotRegistered is returned by New when the configured default
	// kernel name is absent from the registry.
	ErrKernelNotRegistered = errors.New("kernel not registered")
)
