package sources

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a PGStore.
func NewPGStore(database *sql.DB) *PGStore {
	return &PGStore{DB: database}
}

// GetResume returns a resume owned by ownerID.
func (s *PGStore) GetResume(ctx context.Context, ownerID, id string) (Resume, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Resume{}, ErrNotFound
	}
	const query = `
SELECT id, owner_id, title, applicant_name, summary_text, file_name, mime_type, storage_key, created_at, updated_at
FROM resumes
WHERE id = $1 AND owner_id = $2`
	var (
		r          Resume
		fileName   sql.NullString
		mimeType   sql.NullString
		storageKey sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, query, id, ownerID).Scan(
		&r.ID,
		&r.OwnerID,
		&r.Title,
		&r.ApplicantName,
		&r.SummaryText,
		&fileName,
		&mimeType,
		&storageKey,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	r.FileName = fileName.String
	r.MimeType = mimeType.String
	r.StorageKey = storageKey.String
	return r, nil
}

// GetJobPosting returns a job posting owned by ownerID.
func (s *PGStore) GetJobPosting(ctx context.Context, ownerID, id string) (JobPosting, error) {
	if _, err := uuid.Parse(id); err != nil {
		return JobPosting{}, ErrNotFound
	}
	const query = `
SELECT id, owner_id, title, company, role_type, description, url, created_at
FROM job_postings
WHERE id = $1 AND owner_id = $2`
	var (
		p   JobPosting
		url sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, query, id, ownerID).Scan(&p.ID, &p.OwnerID, &p.Title, &p.Company, &p.RoleType, &p.Description, &url, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return JobPosting{}, ErrNotFound
		}
		return JobPosting{}, err
	}
	p.URL = url.String
	return p, nil
}

// GetApplication returns an application owned by ownerID.
func (s *PGStore) GetApplication(ctx context.Context, ownerID, id string) (Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Application{}, ErrNotFound
	}
	const query = `
SELECT id, owner_id, job_posting_id, resume_id, resume_version_id, notes, status, created_at
FROM applications
WHERE id = $1 AND owner_id = $2`
	var (
		a               Application
		resumeID        sql.NullString
		resumeVersionID sql.NullString
	)
	err := s.DB.QueryRowContext(ctx, query, id, ownerID).Scan(&a.ID, &a.OwnerID, &a.JobPostingID, &resumeID, &resumeVersionID, &a.Notes, &a.Status, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	a.ResumeID = resumeID.String
	a.ResumeVersionID = resumeVersionID.String
	return a, nil
}

var _ Store = (*PGStore)(nil)
