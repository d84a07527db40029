package prompts

import (
	"context"
	"time"
)

// Repo defines persistence operations for prompt templates.
type Repo interface {
	Get(ctx context.Context, id string) (Template, error)
	FindActive(ctx context.Context, scope Scope) (Template, error)
	ListActive(ctx context.Context, ownerID string, taskType TaskType) ([]Template, error)
	History(ctx context.Context, scope Scope) ([]Template, error)
	// CreateVersion inserts next as the active template of its scope. An
	// existing active template is deactivated and becomes next's parent.
	CreateVersion(ctx context.Context, next Template) (Template, error)
	// EnsureSystemDefault inserts t unless its scope already has an active template.
	EnsureSystemDefault(ctx context.Context, t Template) (bool, error)
	RecordUsage(ctx context.Context, id string, at time.Time) error
}
