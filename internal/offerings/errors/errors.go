package errors

import "errors"

var (
	ErrNotFound = errors.New("offering not found")

	ErrInvalidID = errors.New("invalid offering ID format")

	// ErrConcurrentUpdate means the comment list changed between read and write.
	ErrConcurrentUpdate = errors.New("offering was modified concurrently")
)
