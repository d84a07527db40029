package modifications

import "fmt"

const (
	BoundRecognizedKeys = "recognized_keys"
	BoundMaxBytes       = "max_bytes"
)

// ValidationError reports which content bound was violated.
type ValidationError struct {
	Bound string
	Size  int
	Limit int
}

func (e *ValidationError) Error() string {
	switch e.Bound {
	case BoundMaxBytes:
		return fmt.Sprintf("modifications too large: %d bytes, maximum %d", e.Size, e.Limit)
	default:
		return "modifications contain no recognized fields"
	}
}
