package generation

import (
	"context"
	"fmt"

	"jobtracker-backend/internal/extraction"
	"jobtracker-backend/internal/llm"
	"jobtracker-backend/internal/prompts"
	"jobtracker-backend/internal/shared/telemetry"
)

// Generator is the provider gateway as seen by the runner.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (llm.Completion, error)
}

// TemplateResolver picks the prompt template for a job.
type TemplateResolver interface {
	Resolve(ctx context.Context, req prompts.ResolveRequest) (prompts.Template, error)
}

const (
	structuredSystemPrompt = "You tailor resumes to job postings. Respond with a single JSON object and nothing else."
	proseSystemPrompt      = "You write cover letters. Respond with the letter text only, without commentary before or after it."
)

// Job is one prompt-to-content run.
type Job struct {
	Task       prompts.TaskType
	OwnerID    string
	RoleType   string
	TemplateID string
	Mode       llm.Mode
	Vars       map[string]string
}

// Output is the extracted content of a successful run.
type Output struct {
	Template   prompts.Template
	Completion llm.Completion
	Data       map[string]any
	Text       string
	Strategy   string
}

// Runner resolves and renders the template, calls the gateway and extracts
// the response. It never persists anything.
type Runner struct {
	Resolver    TemplateResolver
	Gateway     Generator
	Diagnostics *Diagnostics
	ProseLimits extraction.ProseLimits
}

// NewRunner constructs a Runner with default prose limits.
func NewRunner(resolver TemplateResolver, gateway Generator, diagnostics *Diagnostics) *Runner {
	return &Runner{
		Resolver:    resolver,
		Gateway:     gateway,
		Diagnostics: diagnostics,
		ProseLimits: extraction.DefaultProseLimits,
	}
}

// Run executes job. Errors are untranslated; callers pass them to Translate.
func (r *Runner) Run(ctx context.Context, job Job) (Output, error) {
	tpl, err := r.Resolver.Resolve(ctx, prompts.ResolveRequest{
		TaskType:   job.Task,
		RoleType:   job.RoleType,
		OverrideID: job.TemplateID,
		OwnerID:    job.OwnerID,
	})
	if err != nil {
		return Output{}, err
	}

	system := structuredSystemPrompt
	if job.Mode == llm.ModeProse {
		system = proseSystemPrompt
	}
	completion, err := r.Gateway.Generate(ctx, llm.Request{
		Prompt:  prompts.Render(tpl, job.Vars),
		System:  system,
		Mode:    job.Mode,
		OwnerID: job.OwnerID,
		Task:    string(job.Task),
	})
	if err != nil {
		return Output{}, err
	}

	out := Output{Template: tpl, Completion: completion}
	var res extraction.Result
	switch job.Mode {
	case llm.ModeProse:
		res = extraction.ExtractProse(completion.Text, r.ProseLimits)
		out.Text = res.Text
	case llm.ModeStructured:
		res = extraction.ExtractStructured(completion.Text)
		out.Data = res.Data
		out.Strategy = res.Strategy
	default:
		return Output{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, job.Mode)
	}
	if !res.OK() {
		key := r.Diagnostics.SaveRaw(ctx, Capture{
			Task:       string(job.Task),
			OwnerID:    job.OwnerID,
			TemplateID: tpl.ID,
			Provider:   completion.Provider,
			Model:      completion.Model,
			Reason:     res.Reason,
			Raw:        completion.Text,
		})
		telemetry.Warn("generation.extract_failed", map[string]any{
			"request_id":     telemetry.RequestIDFromContext(ctx),
			"task_type":      string(job.Task),
			"template_id":    tpl.ID,
			"reason":         res.Reason,
			"diagnostic_key": key,
			"response_bytes": len(completion.Text),
		})
		return Output{}, res.Err()
	}
	return out, nil
}
