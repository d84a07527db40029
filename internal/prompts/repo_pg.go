package prompts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const templateColumns = `id, task_type, role_type, name, prompt_text, is_system_default, owner_id, version, is_active, parent_template_id, usage_count, last_used_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanTemplate(row rowScanner) (Template, error) {
	var (
		t        Template
		taskType string
		parentID sql.NullString
		lastUsed sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&taskType,
		&t.RoleType,
		&t.Name,
		&t.PromptText,
		&t.IsSystemDefault,
		&t.OwnerID,
		&t.Version,
		&t.IsActive,
		&parentID,
		&t.UsageCount,
		&lastUsed,
		&t.CreatedAt,
	)
	if err != nil {
		return Template{}, err
	}
	t.TaskType = TaskType(taskType)
	if parentID.Valid {
		t.ParentTemplateID = parentID.String
	}
	if lastUsed.Valid {
		ts := lastUsed.Time
		t.LastUsedAt = &ts
	}
	return t, nil
}

// Get returns a template by id.
func (r *PGRepo) Get(ctx context.Context, id string) (Template, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Template{}, ErrNotFound
	}
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM prompt_templates WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return t, err
}

// FindActive returns the active template for scope.
func (r *PGRepo) FindActive(ctx context.Context, scope Scope) (Template, error) {
	return findActive(ctx, r.DB, scope)
}

func findActive(ctx context.Context, q queryer, scope Scope) (Template, error) {
	const query = `SELECT ` + templateColumns + `
FROM prompt_templates
WHERE owner_id = $1 AND task_type = $2 AND role_type = $3 AND is_active
LIMIT 1`
	t, err := scanTemplate(q.QueryRowContext(ctx, query, scope.OwnerID, string(scope.TaskType), scope.RoleType))
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return t, err
}

// ListActive lists active templates visible to ownerID, owner's first.
func (r *PGRepo) ListActive(ctx context.Context, ownerID string, taskType TaskType) ([]Template, error) {
	query := `SELECT ` + templateColumns + `
FROM prompt_templates
WHERE is_active AND (owner_id = $1 OR owner_id = '')`
	args := []any{ownerID}
	if taskType != "" {
		query += ` AND task_type = $2`
		args = append(args, string(taskType))
	}
	query += ` ORDER BY task_type, role_type, owner_id DESC`
	return r.list(ctx, query, args...)
}

// History lists every version in scope, newest first.
func (r *PGRepo) History(ctx context.Context, scope Scope) ([]Template, error) {
	const query = `SELECT ` + templateColumns + `
FROM prompt_templates
WHERE owner_id = $1 AND task_type = $2 AND role_type = $3
ORDER BY version DESC`
	return r.list(ctx, query, scope.OwnerID, string(scope.TaskType), scope.RoleType)
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Template, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateVersion serializes writers per scope with an advisory lock, retires
// the current active template and inserts next.
func (r *PGRepo) CreateVersion(ctx context.Context, next Template) (Template, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Template{}, err
	}
	defer tx.Rollback()

	out, err := createVersionTx(ctx, tx, next)
	if err != nil {
		return Template{}, err
	}
	if err := tx.Commit(); err != nil {
		return Template{}, err
	}
	return out, nil
}

func createVersionTx(ctx context.Context, tx *sql.Tx, next Template) (Template, error) {
	if err := lockScope(ctx, tx, next.Scope()); err != nil {
		return Template{}, err
	}
	prior, err := findActive(ctx, tx, next.Scope())
	switch {
	case err == nil:
		return insertVersionTx(ctx, tx, next, &prior)
	case errors.Is(err, ErrNotFound):
		return insertVersionTx(ctx, tx, next, nil)
	default:
		return Template{}, err
	}
}

func lockScope(ctx context.Context, tx *sql.Tx, scope Scope) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "prompt_templates:"+scope.key()); err != nil {
		return fmt.Errorf("lock scope: %w", err)
	}
	return nil
}

func insertVersionTx(ctx context.Context, tx *sql.Tx, next Template, prior *Template) (Template, error) {
	next.Version = 1
	next.ParentTemplateID = ""
	if prior != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE prompt_templates SET is_active = false WHERE id = $1`, prior.ID); err != nil {
			return Template{}, err
		}
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

	var parent any
	if next.ParentTemplateID != "" {
		parent = next.ParentTemplateID
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO prompt_templates (id, task_type, role_type, name, prompt_text, is_system_default, owner_id, version, is_active, parent_template_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, $9, $10)`,
		next.ID, string(next.TaskType), next.RoleType, next.Name, next.PromptText, next.IsSystemDefault, next.OwnerID, next.Version, parent, next.CreatedAt)
	if err != nil {
		return Template{}, err
	}
	return next, nil
}

// EnsureSystemDefault inserts t when its system scope has no active template.
func (r *PGRepo) EnsureSystemDefault(ctx context.Context, t Template) (bool, error) {
	t.OwnerID = SystemOwner
	t.IsSystemDefault = true

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if err := lockScope(ctx, tx, t.Scope()); err != nil {
		return false, err
	}
	if _, err := findActive(ctx, tx, t.Scope()); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := insertVersionTx(ctx, tx, t, nil); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// RecordUsage bumps usage counters.
func (r *PGRepo) RecordUsage(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE prompt_templates SET usage_count = usage_count + 1, last_used_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
