package prompts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobtracker-backend/internal/shared/telemetry"
)

const maxPromptBytes = 20000

// Service manages owner templates.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// NewService constructs a template service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// NewTemplate is the input for Create.
type NewTemplate struct {
	TaskType   TaskType `json:"taskType"`
	RoleType   string   `json:"roleType"`
	Name       string   `json:"name"`
	PromptText string   `json:"promptText"`
}

// TemplateUpdate is the input for Update.
type TemplateUpdate struct {
	Name       string `json:"name"`
	PromptText string `json:"promptText"`
}

// Create adds an owner template. If the owner already has an active template
// for the same task and role, the new one supersedes it as the next version.
func (s *Service) Create(ctx context.Context, ownerID string, in NewTemplate) (Template, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Template{}, fmt.Errorf("%w: owner required", ErrInvalidInput)
	}
	if !in.TaskType.Valid() {
		return Template{}, fmt.Errorf("%w: unknown task type %q", ErrInvalidInput, in.TaskType)
	}
	text, err := validatePrompt(in.PromptText)
	if err != nil {
		return Template{}, err
	}
	return s.Repo.CreateVersion(ctx, Template{
		TaskType:   in.TaskType,
		RoleType:   strings.ToLower(strings.TrimSpace(in.RoleType)),
		Name:       strings.TrimSpace(in.Name),
		PromptText: text,
		OwnerID:    ownerID,
		CreatedAt:  s.Now().UTC(),
	})
}

// Update writes a new version of an owner template. The previous version is
// deactivated but kept.
func (s *Service) Update(ctx context.Context, ownerID, id string, in TemplateUpdate) (Template, error) {
	current, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Template{}, err
	}
	if current.IsSystemDefault {
		return Template{}, ErrForbidden
	}
	// Another owner's template is hidden, as in Get.
	if current.OwnerID != ownerID {
		return Template{}, ErrNotFound
	}
	text, err := validatePrompt(in.PromptText)
	if err != nil {
		return Template{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = current.Name
	}
	next, err := s.Repo.CreateVersion(ctx, Template{
		TaskType:   current.TaskType,
		RoleType:   current.RoleType,
		Name:       name,
		PromptText: text,
		OwnerID:    ownerID,
		CreatedAt:  s.Now().UTC(),
	})
	if err != nil {
		return Template{}, err
	}
	telemetry.Info("prompt.update", map[string]any{
		"owner_id":    ownerID,
		"template_id": next.ID,
		"parent_id":   next.ParentTemplateID,
		"version":     next.Version,
	})
	return next, nil
}

// Get returns a template visible to ownerID.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Template, error) {
	t, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Template{}, err
	}
	if t.OwnerID != ownerID && t.OwnerID != SystemOwner {
		return Template{}, ErrNotFound
	}
	return t, nil
}

// List returns the active templates visible to ownerID.
func (s *Service) List(ctx context.Context, ownerID string, taskType TaskType) ([]Template, error) {
	if taskType != "" && !taskType.Valid() {
		return nil, fmt.Errorf("%w: unknown task type %q", ErrInvalidInput, taskType)
	}
	return s.Repo.ListActive(ctx, ownerID, taskType)
}

// History returns every version in the template's scope, newest first.
func (s *Service) History(ctx context.Context, ownerID, id string) ([]Template, error) {
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.Repo.History(ctx, t.Scope())
}

// RecordUsage bumps a template's usage counters. Failures are logged only.
func (s *Service) RecordUsage(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := s.Repo.RecordUsage(ctx, id, s.Now()); err != nil {
		telemetry.Warn("prompt.usage_failed", map[string]any{"template_id": id, "error": err})
	}
}

func validatePrompt(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: prompt text required", ErrInvalidInput)
	}
	if len(text) > maxPromptBytes {
		return "", fmt.Errorf("%w: prompt text exceeds %d bytes", ErrInvalidInput, maxPromptBytes)
	}
	return text, nil
}
