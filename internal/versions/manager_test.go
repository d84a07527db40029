package versions

import (
	"context"
	"errors"
	"testing"
)

type conflictingStore struct {
	*MemoryStore
	conflicts int
	calls     int
}

func (s *conflictingStore) CreateNext(ctx context.Context, v Version, mode ActivateMode) (Version, error) {
	s.calls++
	if s.conflicts > 0 {
		s.conflicts--
		return Version{}, ErrVersionConflict
	}
	return s.MemoryStore.CreateNext(ctx, v, mode)
}

func TestManagerRetriesConflictOnce(t *testing.T) {
	store := &conflictingStore{MemoryStore: NewMemoryStore(), conflicts: 1}
	m := NewManager(store, nil)

	v, err := m.Create(context.Background(), KindCoverLetter, "app-1", map[string]string{"text": "hi"}, Metadata{Provider: "openai", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if store.calls != 2 || v.Number != 1 || !v.IsActive {
		t.Fatalf("unexpected result calls=%d v=%+v", store.calls, v)
	}
	if v.GeneratedAt.IsZero() || v.Provider != "openai" {
		t.Fatalf("metadata not applied: %+v", v)
	}
}

func TestManagerSurfacesSecondConflict(t *testing.T) {
	store := &conflictingStore{MemoryStore: NewMemoryStore(), conflicts: 2}
	m := NewManager(store, nil)

	_, err := m.Create(context.Background(), KindCoverLetter, "app-1", map[string]string{"text": "hi"}, Metadata{})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", store.calls)
	}
}

func TestManagerResumeVersionsAreNeverActive(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)
	ctx := context.Background()

	v, err := m.Create(ctx, KindResume, "resume-1", map[string]any{"summary": "s"}, Metadata{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.IsActive {
		t.Fatalf("resume version must not be active")
	}
	if _, err := m.Activate(ctx, KindResume, "resume-1", v.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := m.GetActive(ctx, KindResume, "resume-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no active resume version, got %v", err)
	}
}

func TestManagerCoverLetterDeletePromotes(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)
	ctx := context.Background()
	v1, _ := m.Create(ctx, KindCoverLetter, "app-1", map[string]string{"text": "one"}, Metadata{})
	v2, _ := m.Create(ctx, KindCoverLetter, "app-1", map[string]string{"text": "two"}, Metadata{})
	if !v2.IsActive {
		t.Fatalf("newest cover letter should be active")
	}
	promoted, err := m.Delete(ctx, KindCoverLetter, "app-1", v2.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if promoted == nil || promoted.ID != v1.ID {
		t.Fatalf("expected v1 promoted, got %+v", promoted)
	}
}

func TestManagerRequiresOwner(t *testing.T) {
	m := NewManager(NewMemoryStore(), nil)
	if _, err := m.Create(context.Background(), KindResume, "", nil, Metadata{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
