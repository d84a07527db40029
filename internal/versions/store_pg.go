package versions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobtracker-backend/internal/shared/storage/db"
)

// PGStore implements Store using Postgres. Writers for one (kind, owner)
// pair are serialized with a transaction-scoped advisory lock; the unique
// indexes on the table catch anything that slips past it.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a PGStore.
func NewPGStore(database *sql.DB) *PGStore {
	return &PGStore{DB: database}
}

const versionColumns = `id, kind, owner_id, version_number, is_active, payload, provider, model, template_id, generated_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (Version, error) {
	var (
		v          Version
		kind       string
		payload    []byte
		templateID sql.NullString
	)
	err := row.Scan(&v.ID, &kind, &v.OwnerID, &v.Number, &v.IsActive, &payload, &v.Provider, &v.Model, &templateID, &v.GeneratedAt, &v.CreatedAt)
	if err != nil {
		return Version{}, err
	}
	v.Kind = Kind(kind)
	v.Payload = json.RawMessage(payload)
	if templateID.Valid {
		v.TemplateID = templateID.String
	}
	return v, nil
}

func (s *PGStore) CreateNext(ctx context.Context, v Version, mode ActivateMode) (Version, error) {
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := lockOwner(ctx, tx, v.Kind, v.OwnerID); err != nil {
			return err
		}
		var (
			maxNumber int
			active    int
		)
		err := tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(version_number), 0), COUNT(*) FILTER (WHERE is_active)
FROM document_versions
WHERE kind = $1 AND owner_id = $2`, string(v.Kind), v.OwnerID).Scan(&maxNumber, &active)
		if err != nil {
			return err
		}

		activate := mode == ActivateAlways || (mode == ActivateIfFirst && active == 0)
		if activate && active > 0 {
			if _, err := tx.ExecContext(ctx, `UPDATE document_versions SET is_active = false WHERE kind = $1 AND owner_id = $2 AND is_active`, string(v.Kind), v.OwnerID); err != nil {
				return err
			}
		}

		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		if v.CreatedAt.IsZero() {
			v.CreatedAt = time.Now().UTC()
		}
		if v.GeneratedAt.IsZero() {
			v.GeneratedAt = v.CreatedAt
		}
		v.Number = maxNumber + 1
		v.IsActive = activate

		var templateID any
		if v.TemplateID != "" {
			templateID = v.TemplateID
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO document_versions (id, kind, owner_id, version_number, is_active, payload, provider, model, template_id, generated_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			v.ID, string(v.Kind), v.OwnerID, v.Number, v.IsActive, []byte(v.Payload), v.Provider, v.Model, templateID, v.GeneratedAt, v.CreatedAt)
		return err
	})
	if err != nil {
		return Version{}, mapConflict(err)
	}
	return v, nil
}

func (s *PGStore) Activate(ctx context.Context, kind Kind, ownerID, id string) (Version, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Version{}, ErrNotFound
	}
	var out Version
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := lockOwner(ctx, tx, kind, ownerID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE document_versions SET is_active = false WHERE kind = $1 AND owner_id = $2 AND is_active AND id <> $3`, string(kind), ownerID, id); err != nil {
			return err
		}
		v, err := scanVersion(tx.QueryRowContext(ctx, `
UPDATE document_versions SET is_active = true
WHERE id = $1 AND kind = $2 AND owner_id = $3
RETURNING `+versionColumns, id, string(kind), ownerID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return Version{}, mapConflict(err)
	}
	return out, nil
}

func (s *PGStore) Delete(ctx context.Context, kind Kind, ownerID, id string, promote bool) (*Version, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var promoted *Version
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := lockOwner(ctx, tx, kind, ownerID); err != nil {
			return err
		}
		var wasActive bool
		err := tx.QueryRowContext(ctx, `
DELETE FROM document_versions
WHERE id = $1 AND kind = $2 AND owner_id = $3
RETURNING is_active`, id, string(kind), ownerID).Scan(&wasActive)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !wasActive || !promote {
			return nil
		}
		v, err := scanVersion(tx.QueryRowContext(ctx, `
UPDATE document_versions SET is_active = true
WHERE id = (
	SELECT id FROM document_versions
	WHERE kind = $1 AND owner_id = $2
	ORDER BY version_number DESC
	LIMIT 1
)
RETURNING `+versionColumns, string(kind), ownerID))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		promoted = &v
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	return promoted, nil
}

func (s *PGStore) Get(ctx context.Context, kind Kind, id string) (Version, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Version{}, ErrNotFound
	}
	v, err := scanVersion(s.DB.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM document_versions WHERE id = $1 AND kind = $2`, id, string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, ErrNotFound
	}
	return v, err
}

func (s *PGStore) GetActive(ctx context.Context, kind Kind, ownerID string) (Version, error) {
	v, err := scanVersion(s.DB.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM document_versions WHERE kind = $1 AND owner_id = $2 AND is_active LIMIT 1`, string(kind), ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, ErrNotFound
	}
	return v, err
}

func (s *PGStore) List(ctx context.Context, kind Kind, ownerID string) ([]Version, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+versionColumns+` FROM document_versions WHERE kind = $1 AND owner_id = $2 ORDER BY version_number DESC`, string(kind), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PGStore) MaxNumber(ctx context.Context, kind Kind, ownerID string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(version_number), 0) FROM document_versions WHERE kind = $1 AND owner_id = $2`, string(kind), ownerID).Scan(&n)
	return n, err
}

func lockOwner(ctx context.Context, tx *sql.Tx, kind Kind, ownerID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "document_versions:"+ownerKey(kind, ownerID)); err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}
	return nil
}

func mapConflict(err error) error {
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrVersionConflict, db.ConstraintName(err))
	}
	return err
}

var _ Store = (*PGStore)(nil)
