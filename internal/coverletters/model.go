package coverletters

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jobtracker-backend/internal/versions"
)

// Tone selects the writing style and the template role scope.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneEnthusiastic Tone = "enthusiastic"
	ToneFormal       Tone = "formal"
	ToneCreative     Tone = "creative"
)

// DefaultTone is used when a request names none.
const DefaultTone = ToneProfessional

// ParseTone normalizes s. Empty input yields DefaultTone.
func ParseTone(s string) (Tone, bool) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "":
		return DefaultTone, true
	case ToneProfessional, ToneEnthusiastic, ToneFormal, ToneCreative:
		return t, true
	}
	return "", false
}

// Version is one generated cover letter for an application. At most one
// version per application is active.
type Version struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	Content       string    `json:"content"`
	Tone          Tone      `json:"tone"`
	VersionNumber int       `json:"versionNumber"`
	IsActive      bool      `json:"isActive"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	TemplateID    string    `json:"templateId,omitempty"`
	GeneratedAt   time.Time `json:"generatedAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// GenerateRequest is the body of a generate call.
type GenerateRequest struct {
	Tone       string `json:"tone"`
	TemplateID string `json:"templateId"`
}

type payload struct {
	Content string `json:"content"`
	Tone    Tone   `json:"tone"`
}

func fromVersion(v versions.Version) (Version, error) {
	var p payload
	if err := json.Unmarshal(v.Payload, &p); err != nil {
		return Version{}, fmt.Errorf("decode cover letter %s: %w", v.ID, err)
	}
	return Version{
		ID:            v.ID,
		ApplicationID: v.OwnerID,
		Content:       p.Content,
		Tone:          p.Tone,
		VersionNumber: v.Number,
		IsActive:      v.IsActive,
		Provider:      v.Provider,
		Model:         v.Model,
		TemplateID:    v.TemplateID,
		GeneratedAt:   v.GeneratedAt,
		CreatedAt:     v.CreatedAt,
	}, nil
}
