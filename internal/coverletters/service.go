package coverletters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobtracker-backend/internal/generation"
	"jobtracker-backend/internal/llm"
	"jobtracker-backend/internal/modifications"
	"jobtracker-backend/internal/prompts"
	"jobtracker-backend/internal/shared/telemetry"
	"jobtracker-backend/internal/sources"
	"jobtracker-backend/internal/versions"
)

// TemplateUsage records that a template produced a persisted version.
type TemplateUsage interface {
	RecordUsage(ctx context.Context, id string)
}

// Service generates and manages cover letters. Every error it returns is a
// *generation.Error.
type Service struct {
	Sources  *sources.TextLoader
	Runner   *generation.Runner
	Versions *versions.Manager
	Usage    TemplateUsage
	Now      func() time.Time
}

// Generate writes a new cover letter for an application and makes it the
// active version.
func (s *Service) Generate(ctx context.Context, ownerID, applicationID string, req GenerateRequest) (Version, error) {
	ctx, span := generation.Start(ctx, string(prompts.TaskCoverLetter), ownerID)

	tone, ok := ParseTone(req.Tone)
	if !ok {
		return Version{}, span.Fail(fmt.Errorf("%w: unknown tone %q", generation.ErrInvalidInput, req.Tone))
	}
	app, err := s.Sources.Store.GetApplication(ctx, ownerID, strings.TrimSpace(applicationID))
	if err != nil {
		return Version{}, span.Fail(err)
	}
	posting, err := s.Sources.JobPosting(ctx, ownerID, app.JobPostingID)
	if err != nil {
		return Version{}, span.Fail(err)
	}
	applicant, resumeText, err := s.resumeText(ctx, ownerID, app)
	if err != nil {
		return Version{}, span.Fail(err)
	}

	out, err := s.Runner.Run(ctx, generation.Job{
		Task:       prompts.TaskCoverLetter,
		OwnerID:    ownerID,
		RoleType:   string(tone),
		TemplateID: strings.TrimSpace(req.TemplateID),
		Mode:       llm.ModeProse,
		Vars: map[string]string{
			prompts.VarResumeSummary:    resumeText,
			prompts.VarJobDescription:   posting.Description,
			prompts.VarJobTitle:         posting.Title,
			prompts.VarCompany:          posting.Company,
			prompts.VarRoleType:         posting.RoleType,
			prompts.VarTone:             string(tone),
			prompts.VarApplicantName:    applicant,
			prompts.VarApplicationNotes: app.Notes,
		},
	})
	if err != nil {
		return Version{}, span.Fail(err)
	}

	v, err := s.Versions.Create(ctx, versions.KindCoverLetter, app.ID, payload{Content: out.Text, Tone: tone}, versions.Metadata{
		Provider:    out.Completion.Provider,
		Model:       out.Completion.Model,
		TemplateID:  out.Template.ID,
		GeneratedAt: s.now(),
	})
	if err != nil {
		return Version{}, span.Fail(err)
	}
	if s.Usage != nil {
		s.Usage.RecordUsage(ctx, out.Template.ID)
	}
	span.Complete(v.ID, v.Number)

	cl, err := fromVersion(v)
	if err != nil {
		return Version{}, generation.Translate(err)
	}
	return cl, nil
}

// resumeText prefers the linked tailored resume version and falls back to
// the master resume text.
func (s *Service) resumeText(ctx context.Context, ownerID string, app sources.Application) (string, string, error) {
	if app.ResumeID == "" {
		return "", "", fmt.Errorf("%w: application %s has no resume", sources.ErrNoContent, app.ID)
	}
	if app.ResumeVersionID != "" {
		text, err := s.tailoredText(ctx, app)
		switch {
		case err == nil && text != "":
			resume, err := s.Sources.Store.GetResume(ctx, ownerID, app.ResumeID)
			if err != nil {
				return "", "", err
			}
			return resume.ApplicantName, text, nil
		case err != nil && !errors.Is(err, versions.ErrNotFound):
			return "", "", err
		}
		telemetry.Warn("coverletter.resume_version_unusable", map[string]any{
			"application_id":    app.ID,
			"resume_version_id": app.ResumeVersionID,
		})
	}
	resume, text, err := s.Sources.ResumeText(ctx, ownerID, app.ResumeID)
	if err != nil {
		return "", "", err
	}
	return resume.ApplicantName, text, nil
}

func (s *Service) tailoredText(ctx context.Context, app sources.Application) (string, error) {
	v, err := s.Versions.Get(ctx, versions.KindResume, app.ResumeVersionID)
	if err != nil {
		return "", err
	}
	if v.OwnerID != app.ResumeID {
		return "", versions.ErrNotFound
	}
	var p struct {
		Modifications modifications.Content `json:"modifications"`
	}
	if err := json.Unmarshal(v.Payload, &p); err != nil {
		return "", fmt.Errorf("decode resume version %s: %w", v.ID, err)
	}
	return p.Modifications.Text(), nil
}

// Activate makes versionID the application's active cover letter.
func (s *Service) Activate(ctx context.Context, ownerID, applicationID, versionID string) (Version, error) {
	if err := s.checkApplication(ctx, ownerID, applicationID); err != nil {
		return Version{}, generation.Translate(err)
	}
	v, err := s.Versions.Activate(ctx, versions.KindCoverLetter, applicationID, versionID)
	if err != nil {
		return Version{}, generation.Translate(err)
	}
	cl, err := fromVersion(v)
	if err != nil {
		return Version{}, generation.Translate(err)
	}
	return cl, nil
}

// Delete removes a version. When it was active, the highest remaining
// version is promoted and returned.
func (s *Service) Delete(ctx context.Context, ownerID, applicationID, versionID string) (*Version, error) {
	if err := s.checkApplication(ctx, ownerID, applicationID); err != nil {
		return nil, generation.Translate(err)
	}
	promoted, err := s.Versions.Delete(ctx, versions.KindCoverLetter, applicationID, versionID)
	if err != nil {
		return nil, generation.Translate(err)
	}
	if promoted == nil {
		return nil, nil
	}
	cl, err := fromVersion(*promoted)
	if err != nil {
		return nil, generation.Translate(err)
	}
	return &cl, nil
}

// List returns an application's cover letters, newest first.
func (s *Service) List(ctx context.Context, ownerID, applicationID string) ([]Version, error) {
	if err := s.checkApplication(ctx, ownerID, applicationID); err != nil {
		return nil, generation.Translate(err)
	}
	list, err := s.Versions.List(ctx, versions.KindCoverLetter, applicationID)
	if err != nil {
		return nil, generation.Translate(err)
	}
	out := make([]Version, 0, len(list))
	for _, v := range list {
		cl, err := fromVersion(v)
		if err != nil {
			return nil, generation.Translate(err)
		}
		out = append(out, cl)
	}
	return out, nil
}

// GetActive returns the application's active cover letter.
func (s *Service) GetActive(ctx context.Context, ownerID, applicationID string) (Version, error) {
	if err := s.checkApplication(ctx, ownerID, applicationID); err != nil {
		return Version{}, generation.Translate(err)
	}
	v, err := s.Versions.GetActive(ctx, versions.KindCoverLetter, applicationID)
	if err != nil {
		return Version{}, generation.Translate(err)
	}
	cl, err := fromVersion(v)
	if err != nil {
		return Version{}, generation.Translate(err)
	}
	return cl, nil
}

func (s *Service) checkApplication(ctx context.Context, ownerID, applicationID string) error {
	_, err := s.Sources.Store.GetApplication(ctx, ownerID, applicationID)
	return err
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
