package sources

import (
	"context"
	"sync"
)

// MemoryStore keeps source documents in memory. Put* methods exist for dev
// seeding and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	resumes      map[string]Resume
	postings     map[string]JobPosting
	applications map[string]Application
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resumes:      make(map[string]Resume),
		postings:     make(map[string]JobPosting),
		applications: make(map[string]Application),
	}
}

func (s *MemoryStore) PutResume(r Resume) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumes[r.ID] = r
}

func (s *MemoryStore) PutJobPosting(p JobPosting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postings[p.ID] = p
}

func (s *MemoryStore) PutApplication(a Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications[a.ID] = a
}

func (s *MemoryStore) GetResume(ctx context.Context, ownerID, id string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resumes[id]
	if !ok || r.OwnerID != ownerID {
		return Resume{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) GetJobPosting(ctx context.Context, ownerID, id string) (JobPosting, error) {
	if err := ctx.Err(); err != nil {
		return JobPosting{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.postings[id]
	if !ok || p.OwnerID != ownerID {
		return JobPosting{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) GetApplication(ctx context.Context, ownerID, id string) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[id]
	if !ok || a.OwnerID != ownerID {
		return Application{}, ErrNotFound
	}
	return a, nil
}

var _ Store = (*MemoryStore)(nil)
