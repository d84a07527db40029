package prompts

import "errors"

var (
	// ErrNotFound indicates a template was not found.
	ErrNotFound = errors.New("template not found")

	// ErrTemplateNotFound indicates an explicit override could not be used.
	ErrTemplateNotFound = errors.New("override template not found")

	// ErrNoSystemDefault indicates no system default exists for a task.
	ErrNoSystemDefault = errors.New("no system default template")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates a system template was targeted for modification.
	ErrForbidden = errors.New("forbidden")
)
