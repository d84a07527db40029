package prompts

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"jobtracker-backend/internal/shared/telemetry"
)

// ResolveRequest selects a template for one generation.
type ResolveRequest struct {
	TaskType   TaskType
	RoleType   string
	OverrideID string
	OwnerID    string
}

// Resolver picks the template for a generation: explicit override, then the
// owner's active template, then system defaults for task+role and task only.
type Resolver struct {
	repo  Repo
	cache Cache
	group singleflight.Group
}

// NewResolver constructs a Resolver. cache may be nil.
func NewResolver(repo Repo, cache Cache) *Resolver {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Resolver{repo: repo, cache: cache}
}

// Resolve returns the template to use. ErrTemplateNotFound means the
// override cannot be used; ErrNoSystemDefault means nothing matched.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (Template, error) {
	if !req.TaskType.Valid() {
		return Template{}, fmt.Errorf("%w: unknown task type %q", ErrInvalidInput, req.TaskType)
	}

	if req.OverrideID != "" {
		t, err := r.repo.Get(ctx, req.OverrideID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Template{}, ErrTemplateNotFound
			}
			return Template{}, err
		}
		if t.TaskType != req.TaskType || (t.OwnerID != req.OwnerID && t.OwnerID != SystemOwner) {
			return Template{}, ErrTemplateNotFound
		}
		r.logResolved(ctx, req, t, "override")
		return t, nil
	}

	if req.OwnerID != SystemOwner {
		t, err := r.repo.FindActive(ctx, Scope{OwnerID: req.OwnerID, TaskType: req.TaskType, RoleType: req.RoleType})
		if err == nil {
			r.logResolved(ctx, req, t, "owner")
			return t, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Template{}, err
		}
	}

	roles := []string{req.RoleType}
	if req.RoleType != "" {
		roles = append(roles, "")
	}
	for _, role := range roles {
		t, err := r.systemDefault(ctx, req.TaskType, role)
		if err == nil {
			r.logResolved(ctx, req, t, "system")
			return t, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Template{}, err
		}
	}
	return Template{}, fmt.Errorf("%w for %s", ErrNoSystemDefault, req.TaskType)
}

func (r *Resolver) systemDefault(ctx context.Context, task TaskType, role string) (Template, error) {
	scope := Scope{OwnerID: SystemOwner, TaskType: task, RoleType: role}
	key := string(task) + ":" + role
	if t, ok := r.cache.Get(ctx, key); ok {
		return t, nil
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		t, err := r.repo.FindActive(ctx, scope)
		if err != nil {
			return Template{}, err
		}
		r.cache.Set(ctx, key, t)
		return t, nil
	})
	if err != nil {
		return Template{}, err
	}
	return v.(Template), nil
}

// Invalidate drops cached system defaults.
func (r *Resolver) Invalidate(ctx context.Context) {
	r.cache.Invalidate(ctx)
}

func (r *Resolver) logResolved(ctx context.Context, req ResolveRequest, t Template, source string) {
	telemetry.Info("prompt.resolve", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"task_type":   string(req.TaskType),
		"role_type":   req.RoleType,
		"template_id": t.ID,
		"version":     t.Version,
		"source":      source,
	})
}
