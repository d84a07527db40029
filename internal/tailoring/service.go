package tailoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"jobtracker-backend/internal/generation"
	"jobtracker-backend/internal/llm"
	"jobtracker-backend/internal/modifications"
	"jobtracker-backend/internal/prompts"
	"jobtracker-backend/internal/sources"
	"jobtracker-backend/internal/versions"
)

// TemplateUsage records that a template produced a persisted version.
type TemplateUsage interface {
	RecordUsage(ctx context.Context, id string)
}

// Service tailors master resumes to job postings. Every error it returns is
// a *generation.Error.
type Service struct {
	Sources   *sources.TextLoader
	Runner    *generation.Runner
	Sanitizer modifications.Sanitizer
	Versions  *versions.Manager
	Usage     TemplateUsage
	Now       func() time.Time
}

// Tailor generates and persists a new resume version. Nothing is persisted
// unless every step succeeds.
func (s *Service) Tailor(ctx context.Context, ownerID string, req TailorRequest) (ResumeVersion, error) {
	ctx, span := generation.Start(ctx, string(prompts.TaskResumeTailor), ownerID)

	req.MasterResumeID = strings.TrimSpace(req.MasterResumeID)
	req.JobPostingID = strings.TrimSpace(req.JobPostingID)
	if req.MasterResumeID == "" || req.JobPostingID == "" {
		return ResumeVersion{}, span.Fail(fmt.Errorf("%w: resume id and job posting id are required", generation.ErrInvalidInput))
	}

	var (
		resume     sources.Resume
		resumeText string
		posting    sources.JobPosting
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resume, resumeText, err = s.Sources.ResumeText(gctx, ownerID, req.MasterResumeID)
		return err
	})
	g.Go(func() error {
		var err error
		posting, err = s.Sources.JobPosting(gctx, ownerID, req.JobPostingID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ResumeVersion{}, span.Fail(err)
	}

	roleType := strings.ToLower(strings.TrimSpace(req.RoleType))
	if roleType == "" {
		roleType = strings.ToLower(strings.TrimSpace(posting.RoleType))
	}

	out, err := s.Runner.Run(ctx, generation.Job{
		Task:       prompts.TaskResumeTailor,
		OwnerID:    ownerID,
		RoleType:   roleType,
		TemplateID: strings.TrimSpace(req.TemplateID),
		Mode:       llm.ModeStructured,
		Vars: map[string]string{
			prompts.VarResumeSummary:  resumeText,
			prompts.VarJobDescription: posting.Description,
			prompts.VarJobTitle:       posting.Title,
			prompts.VarCompany:        posting.Company,
			prompts.VarRoleType:       roleType,
			prompts.VarApplicantName:  resume.ApplicantName,
		},
	})
	if err != nil {
		return ResumeVersion{}, span.Fail(err)
	}

	content, err := s.Sanitizer.Sanitize(out.Data)
	if err != nil {
		return ResumeVersion{}, span.Fail(err)
	}

	v, err := s.Versions.Create(ctx, versions.KindResume, resume.ID, payload{
		TargetJobPostingID: posting.ID,
		Modifications:      content,
	}, versions.Metadata{
		Provider:    out.Completion.Provider,
		Model:       out.Completion.Model,
		TemplateID:  out.Template.ID,
		GeneratedAt: s.now(),
	})
	if err != nil {
		return ResumeVersion{}, span.Fail(err)
	}
	if s.Usage != nil {
		s.Usage.RecordUsage(ctx, out.Template.ID)
	}
	span.Complete(v.ID, v.Number)

	return ResumeVersion{
		ID:                 v.ID,
		SourceDocumentID:   resume.ID,
		TargetJobPostingID: posting.ID,
		VersionNumber:      v.Number,
		Modifications:      content,
		Provider:           v.Provider,
		Model:              v.Model,
		TemplateID:         v.TemplateID,
		GeneratedAt:        v.GeneratedAt,
		CreatedAt:          v.CreatedAt,
	}, nil
}

// Get returns a resume version whose master resume belongs to ownerID.
func (s *Service) Get(ctx context.Context, ownerID, versionID string) (ResumeVersion, error) {
	v, err := s.owned(ctx, ownerID, versionID)
	if err != nil {
		return ResumeVersion{}, generation.Translate(err)
	}
	rv, err := fromVersion(v)
	if err != nil {
		return ResumeVersion{}, generation.Translate(err)
	}
	return rv, nil
}

// List returns the versions of a master resume, newest first.
func (s *Service) List(ctx context.Context, ownerID, resumeID string) ([]ResumeVersion, error) {
	if _, err := s.Sources.Store.GetResume(ctx, ownerID, resumeID); err != nil {
		return nil, generation.Translate(err)
	}
	list, err := s.Versions.List(ctx, versions.KindResume, resumeID)
	if err != nil {
		return nil, generation.Translate(err)
	}
	out := make([]ResumeVersion, 0, len(list))
	for _, v := range list {
		rv, err := fromVersion(v)
		if err != nil {
			return nil, generation.Translate(err)
		}
		out = append(out, rv)
	}
	return out, nil
}

// Delete removes a resume version.
func (s *Service) Delete(ctx context.Context, ownerID, versionID string) error {
	v, err := s.owned(ctx, ownerID, versionID)
	if err != nil {
		return generation.Translate(err)
	}
	if _, err := s.Versions.Delete(ctx, versions.KindResume, v.OwnerID, v.ID); err != nil {
		return generation.Translate(err)
	}
	return nil
}

// owned loads a version and checks that its master resume belongs to ownerID.
func (s *Service) owned(ctx context.Context, ownerID, versionID string) (versions.Version, error) {
	v, err := s.Versions.Get(ctx, versions.KindResume, versionID)
	if err != nil {
		return versions.Version{}, err
	}
	if _, err := s.Sources.Store.GetResume(ctx, ownerID, v.OwnerID); err != nil {
		return versions.Version{}, versions.ErrNotFound
	}
	return v, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
