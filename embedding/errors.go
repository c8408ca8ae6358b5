package embedding

import "errors"

var (
	// ErrEntityNotFound is returned when an entity id is unknown.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrVersionNotFound is returned when a version id is unknown for the
	// given entity.
	ErrVersionNotFound = errors.New("version not found")

	// ErrVersionExists is returned when storing a version that already
	// exists. Versions are append-only and never mutated in place.
	ErrVersionExists = errors.New("version already exists")

	// ErrUnknownCompression is returned when a snapshot names a compression
	// codec this build does not know.
	ErrUnknownCompression = errors.New("unknown compression codec")
)
