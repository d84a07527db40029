package prompts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo stores templates in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Template
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Template)}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) FindActive(ctx context.Context, scope Scope) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.activeLocked(scope); ok {
		return t, nil
	}
	return Template{}, ErrNotFound
}

func (r *MemoryRepo) ListActive(ctx context.Context, ownerID string, taskType TaskType) ([]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Template
	for _, t := range r.byID {
		if !t.IsActive || (t.OwnerID != ownerID && t.OwnerID != SystemOwner) {
			continue
		}
		if taskType != "" && t.TaskType != taskType {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskType != out[j].TaskType {
			return out[i].TaskType < out[j].TaskType
		}
		if out[i].RoleType != out[j].RoleType {
			return out[i].RoleType < out[j].RoleType
		}
		return out[i].OwnerID > out[j].OwnerID
	})
	return out, nil
}

func (r *MemoryRepo) History(ctx context.Context, scope Scope) ([]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Template
	for _, t := range r.byID {
		if t.Scope() == scope {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (r *MemoryRepo) CreateVersion(ctx context.Context, next Template) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next = r.insertLocked(next)
	return next, nil
}

func (r *MemoryRepo) EnsureSystemDefault(ctx context.Context, t Template) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t.OwnerID = SystemOwner
	t.IsSystemDefault = true
	if _, ok := r.activeLocked(t.Scope()); ok {
		return false, nil
	}
	r.insertLocked(t)
	return true, nil
}

func (r *MemoryRepo) RecordUsage(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	t.UsageCount++
	at = at.UTC()
	t.LastUsedAt = &at
	r.byID[id] = t
	return nil
}

func (r *MemoryRepo) activeLocked(scope Scope) (Template, bool) {
	for _, t := range r.byID {
		if t.IsActive && t.Scope() == scope {
			return t, true
		}
	}
	return Template{}, false
}

func (r *MemoryRepo) insertLocked(next Template) Template {
	next.Version = 1
	next.ParentTemplateID = ""
	if prior, ok := r.activeLocked(next.Scope()); ok {
		prior.IsActive = false
		r.byID[prior.ID] = prior
		next.Version = prior.Version + 1
		next.ParentTemplateID = prior.ID
	}
	if next.ID == "" {
		next.ID = uuid.NewString()
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = time.Now().UTC()
	}
	next.IsActive = true
	r.byID[next.ID] = next
	return next
}

var _ Repo = (*MemoryRepo)(nil)
