package prompts

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateVersionSupersedesActive(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()

	const priorID = "0e6f5c47-8d59-4c4e-9d3b-9c3c4f7f2a11"
	now := time.Now().UTC()
	columns := []string{"id", "task_type", "role_type", "name", "prompt_text", "is_system_default", "owner_id", "version", "is_active", "parent_template_id", "usage_count", "last_used_at", "created_at"}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("prompt_templates:user-1|cover_letter|formal").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM prompt_templates").
		WithArgs("user-1", "cover_letter", "formal").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(priorID, "cover_letter", "formal", "Formal", "old", false, "user-1", 3, true, nil, 4, nil, now))
	mock.ExpectExec("UPDATE prompt_templates SET is_active = false").
		WithArgs(priorID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO prompt_templates").
		WithArgs(sqlmock.AnyArg(), "cover_letter", "formal", "Formal", "new", false, "user-1", 4, priorID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := &PGRepo{DB: database}
	got, err := repo.CreateVersion(context.Background(), Template{
		OwnerID:    "user-1",
		TaskType:   TaskCoverLetter,
		RoleType:   "formal",
		Name:       "Formal",
		PromptText: "new",
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if got.Version != 4 || got.ParentTemplateID != priorID || !got.IsActive {
		t.Fatalf("unexpected version %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoRecordUsageMissing(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()

	mock.ExpectExec("UPDATE prompt_templates SET usage_count").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: database}
	if err := repo.RecordUsage(context.Background(), "0e6f5c47-8d59-4c4e-9d3b-9c3c4f7f2a11", time.Now()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
