package extraction

import (
	"fmt"
	"strings"
)

const (
	BoundMinLength = "min_length"
	BoundMaxLength = "max_length"
	BoundEmpty     = "non_empty"
)

// ParseError means no strategy produced a JSON object. Raw keeps the provider
// text for diagnostics.
type ParseError struct {
	Raw      string
	Attempts []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no json object found in response (tried %s)", strings.Join(e.Attempts, ", "))
}

// ContentError means cleaned prose violated a length bound.
type ContentError struct {
	Bound  string
	Length int
	Limit  int
}

func (e *ContentError) Error() string {
	switch e.Bound {
	case BoundMinLength:
		return fmt.Sprintf("content too short: %d characters, minimum %d", e.Length, e.Limit)
	case BoundMaxLength:
		return fmt.Sprintf("content too long: %d characters, maximum %d", e.Length, e.Limit)
	default:
		return "content is empty"
	}
}
