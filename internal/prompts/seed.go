package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"jobtracker-backend/internal/shared/telemetry"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type seedFile struct {
	Templates []seedTemplate `yaml:"templates"`
}

type seedTemplate struct {
	TaskType string `yaml:"task_type"`
	RoleType string `yaml:"role_type"`
	Name     string `yaml:"name"`
	Prompt   string `yaml:"prompt"`
}

// DefaultTemplates parses the embedded system defaults.
func DefaultTemplates() ([]Template, error) {
	return parseSeed(defaultsYAML)
}

func parseSeed(data []byte) ([]Template, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse default templates: %w", err)
	}
	out := make([]Template, 0, len(f.Templates))
	for i, st := range f.Templates {
		t := Template{
			TaskType:        TaskType(strings.TrimSpace(st.TaskType)),
			RoleType:        strings.TrimSpace(st.RoleType),
			Name:            strings.TrimSpace(st.Name),
			PromptText:      strings.TrimSpace(st.Prompt),
			IsSystemDefault: true,
			OwnerID:         SystemOwner,
		}
		if !t.TaskType.Valid() || t.PromptText == "" {
			return nil, fmt.Errorf("default template %d: invalid task type or empty prompt", i)
		}
		out = append(out, t)
	}
	return out, nil
}

// Seed inserts missing system defaults. Existing defaults are left alone.
func Seed(ctx context.Context, repo Repo, resolver *Resolver) error {
	templates, err := DefaultTemplates()
	if err != nil {
		return err
	}
	created := 0
	for _, t := range templates {
		ok, err := repo.EnsureSystemDefault(ctx, t)
		if err != nil {
			return fmt.Errorf("seed %s/%s: %w", t.TaskType, t.RoleType, err)
		}
		if ok {
			created++
		}
	}
	if resolver != nil {
		resolver.Invalidate(ctx)
	}
	telemetry.Info("prompt.seed", map[string]any{"templates": len(templates), "created": created})
	return nil
}
