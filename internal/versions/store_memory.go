package versions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps versions in memory and is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]Version
	byOwner map[string][]string
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Version),
		byOwner: make(map[string][]string),
	}
}

func ownerKey(kind Kind, ownerID string) string {
	return string(kind) + ":" + ownerID
}

func (s *MemoryStore) CreateNext(ctx context.Context, v Version, mode ActivateMode) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerKey(v.Kind, v.OwnerID)
	maxNumber := 0
	hasActive := false
	for _, id := range s.byOwner[key] {
		existing := s.byID[id]
		if existing.Number > maxNumber {
			maxNumber = existing.Number
		}
		hasActive = hasActive || existing.IsActive
	}

	activate := mode == ActivateAlways || (mode == ActivateIfFirst && !hasActive)
	if activate {
		s.deactivateLocked(key)
	}

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.Number = maxNumber + 1
	v.IsActive = activate
	s.byID[v.ID] = v
	s.byOwner[key] = append(s.byOwner[key], v.ID)
	return v, nil
}

func (s *MemoryStore) Activate(ctx context.Context, kind Kind, ownerID, id string) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.byID[id]
	if !ok || v.Kind != kind || v.OwnerID != ownerID {
		return Version{}, ErrNotFound
	}
	s.deactivateLocked(ownerKey(kind, ownerID))
	v.IsActive = true
	s.byID[id] = v
	return v, nil
}

func (s *MemoryStore) Delete(ctx context.Context, kind Kind, ownerID, id string, promote bool) (*Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.byID[id]
	if !ok || v.Kind != kind || v.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	key := ownerKey(kind, ownerID)
	delete(s.byID, id)
	ids := s.byOwner[key]
	for i, existing := range ids {
		if existing == id {
			s.byOwner[key] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}

	if !v.IsActive || !promote {
		return nil, nil
	}
	var next *Version
	for _, other := range s.byOwner[key] {
		candidate := s.byID[other]
		if next == nil || candidate.Number > next.Number {
			c := candidate
			next = &c
		}
	}
	if next == nil {
		return nil, nil
	}
	next.IsActive = true
	s.byID[next.ID] = *next
	return next, nil
}

func (s *MemoryStore) Get(ctx context.Context, kind Kind, id string) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok || v.Kind != kind {
		return Version{}, ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) GetActive(ctx context.Context, kind Kind, ownerID string) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.byOwner[ownerKey(kind, ownerID)] {
		if v := s.byID[id]; v.IsActive {
			return v, nil
		}
	}
	return Version{}, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context, kind Kind, ownerID string) ([]Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byOwner[ownerKey(kind, ownerID)]
	out := make([]Version, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, nil
}

func (s *MemoryStore) MaxNumber(ctx context.Context, kind Kind, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	maxNumber := 0
	for _, id := range s.byOwner[ownerKey(kind, ownerID)] {
		if n := s.byID[id].Number; n > maxNumber {
			maxNumber = n
		}
	}
	return maxNumber, nil
}

func (s *MemoryStore) deactivateLocked(key string) {
	for _, id := range s.byOwner[key] {
		if v := s.byID[id]; v.IsActive {
			v.IsActive = false
			s.byID[id] = v
		}
	}
}

var _ Store = (*MemoryStore)(nil)
