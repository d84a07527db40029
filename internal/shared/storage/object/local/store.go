package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"jobtracker-backend/internal/shared/storage/object"
)

const metaSuffix = ".meta.json"

// Store is a filesystem object.ObjectStore for dev. Content type and
// metadata land in a JSON sidecar next to the blob.
type Store struct {
	root string
}

// New roots a Store at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Open opens the blob at storageKey.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(storageKey)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, storageKey)
	}
	return f, err
}

// Put atomically replaces the blob at obj.Key.
func (s *Store) Put(ctx context.Context, obj object.Object) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p, err := s.path(obj.Key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	n, err := writeAtomic(p, obj.Body)
	if err != nil {
		return 0, err
	}
	if obj.ContentType == "" && len(obj.Metadata) == 0 {
		return n, nil
	}
	sidecar, err := json.Marshal(struct {
		ContentType string            `json:"contentType,omitempty"`
		Metadata    map[string]string `json:"metadata,omitempty"`
	}{obj.ContentType, obj.Metadata})
	if err != nil {
		return 0, err
	}
	if _, err := writeAtomic(p+metaSuffix, strings.NewReader(string(sidecar))); err != nil {
		return 0, err
	}
	return n, nil
}

func writeAtomic(dst string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", filepath.Base(dst), err)
	}
	return n, os.Rename(tmp.Name(), dst)
}

func (s *Store) path(storageKey string) (string, error) {
	clean := filepath.Clean(storageKey)
	if storageKey == "" || clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key %q", storageKey)
	}
	return filepath.Join(s.root, clean), nil
}

var _ object.ObjectStore = (*Store)(nil)
