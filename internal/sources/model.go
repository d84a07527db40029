package sources

import "time"

// Resume is a user's master resume.
type Resume struct {
	ID            string
	OwnerID       string
	Title         string
	ApplicantName string
	SummaryText   string
	FileName      string
	MimeType      string
	StorageKey    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// JobPosting is a job the user is applying to.
type JobPosting struct {
	ID          string
	OwnerID     string
	Title       string
	Company     string
	RoleType    string
	Description string
	URL         string
	CreatedAt   time.Time
}

// Application links a job posting with the resume sent for it.
type Application struct {
	ID              string
	OwnerID         string
	JobPostingID    string
	ResumeID        string
	ResumeVersionID string
	Notes           string
	Status          string
	CreatedAt       time.Time
}
