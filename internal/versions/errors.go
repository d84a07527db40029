package versions

import "errors"

var (
	// ErrNotFound indicates the version does not exist for the owner.
	ErrNotFound = errors.New("version not found")

	// ErrVersionConflict indicates a concurrent writer claimed the same number
	// or active slot.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")
)
