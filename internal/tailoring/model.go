package tailoring

import (
	"encoding/json"
	"fmt"
	"time"

	"jobtracker-backend/internal/modifications"
	"jobtracker-backend/internal/versions"
)

// ResumeVersion is one tailored variant of a master resume. Versions are
// permanent and never active.
type ResumeVersion struct {
	ID                 string                `json:"id"`
	SourceDocumentID   string                `json:"sourceDocumentId"`
	TargetJobPostingID string                `json:"targetJobPostingId,omitempty"`
	VersionNumber      int                   `json:"versionNumber"`
	Modifications      modifications.Content `json:"modifications"`
	Provider           string                `json:"provider"`
	Model              string                `json:"model"`
	TemplateID         string                `json:"templateId,omitempty"`
	GeneratedAt        time.Time             `json:"generatedAt"`
	CreatedAt          time.Time             `json:"createdAt"`
}

// TailorRequest selects what to tailor against.
type TailorRequest struct {
	MasterResumeID string `json:"-"`
	JobPostingID   string `json:"jobPostingId"`
	TemplateID     string `json:"templateId"`
	RoleType       string `json:"roleType"`
}

type payload struct {
	TargetJobPostingID string                `json:"targetJobPostingId,omitempty"`
	Modifications      modifications.Content `json:"modifications"`
}

func fromVersion(v versions.Version) (ResumeVersion, error) {
	var p payload
	if err := json.Unmarshal(v.Payload, &p); err != nil {
		return ResumeVersion{}, fmt.Errorf("decode resume version %s: %w", v.ID, err)
	}
	return ResumeVersion{
		ID:                 v.ID,
		SourceDocumentID:   v.OwnerID,
		TargetJobPostingID: p.TargetJobPostingID,
		VersionNumber:      v.Number,
		Modifications:      p.Modifications,
		Provider:           v.Provider,
		Model:              v.Model,
		TemplateID:         v.TemplateID,
		GeneratedAt:        v.GeneratedAt,
		CreatedAt:          v.CreatedAt,
	}, nil
}
