package sources

import "errors"

var (
	// ErrNotFound indicates the record does not exist for the owner.
	ErrNotFound = errors.New("source document not found")

	// ErrNoContent indicates a resume or posting has no usable text.
	ErrNoContent = errors.New("source document has no text")
)
