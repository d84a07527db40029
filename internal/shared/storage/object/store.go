package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates no object exists at the key.
var ErrNotFound = errors.New("object not found")

// Object is a blob to be written. Metadata keys should be lowercase ASCII.
type Object struct {
	Key         string
	ContentType string
	Metadata    map[string]string
	Body        io.Reader
}

// ObjectStore keeps source documents, extracted text and diagnostics captures.
type ObjectStore interface {
	Put(ctx context.Context, obj Object) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
