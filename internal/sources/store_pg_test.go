package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreGetApplication(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()

	const (
		appID = "8d1f3c6e-2a4b-4f1e-9b7d-6c5a4e3d2b10"
		jobID = "8d1f3c6e-2a4b-4f1e-9b7d-6c5a4e3d2b11"
	)
	mock.ExpectQuery("FROM applications").
		WithArgs(appID, "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "job_posting_id", "resume_id", "resume_version_id", "notes", "status", "created_at"}).
			AddRow(appID, "user-1", jobID, nil, nil, "referral from Sam", "draft", time.Now()))

	a, err := NewPGStore(database).GetApplication(context.Background(), "user-1", appID)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if a.JobPostingID != jobID || a.ResumeID != "" || a.Notes != "referral from Sam" {
		t.Fatalf("unexpected application %+v", a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreGetResumeNotFound(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()

	const id = "8d1f3c6e-2a4b-4f1e-9b7d-6c5a4e3d2b12"
	mock.ExpectQuery("FROM resumes").WithArgs(id, "user-1").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewPGStore(database)
	if _, err := store.GetResume(context.Background(), "user-1", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetResume(context.Background(), "user-1", "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}
