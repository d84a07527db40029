package usage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PGStore writes events to llm_usage_events.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) Record(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO llm_usage_events (id, owner_id, task_type, provider, model, mode, attempt, outcome, error_kind, latency_ms, prompt_tokens, completion_tokens, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.OwnerID, e.TaskType, e.Provider, e.Model, e.Mode, e.Attempt, e.Outcome, e.ErrorKind, e.LatencyMs, e.PromptTokens, e.CompletionTokens, e.CreatedAt)
	return err
}

func (s *PGStore) Summary(ctx context.Context, ownerID string) (Summary, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT outcome, COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
FROM llm_usage_events
WHERE owner_id = $1
GROUP BY outcome`, ownerID)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	out := Summary{ByOutcome: map[string]int{}}
	for rows.Next() {
		var (
			outcome            string
			count              int
			prompt, completion int
		)
		if err := rows.Scan(&outcome, &count, &prompt, &completion); err != nil {
			return Summary{}, err
		}
		out.ByOutcome[outcome] = count
		out.Calls += count
		out.PromptTokens += prompt
		out.CompletionTokens += completion
	}
	return out, rows.Err()
}

var _ Store = (*PGStore)(nil)
