package versions

import (
	"encoding/json"
	"time"
)

// Kind discriminates the documents sharing the versions table.
type Kind string

const (
	KindResume      Kind = "resume"
	KindCoverLetter Kind = "cover_letter"
)

// ActivateMode controls whether a newly created version becomes active.
type ActivateMode int

const (
	ActivateNever ActivateMode = iota
	// ActivateIfFirst activates the new version only when the owner has no active version.
	ActivateIfFirst
	ActivateAlways
)

// Version is one generated revision of a document. OwnerID is the parent
// document the version belongs to (a master resume or an application).
type Version struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	OwnerID     string          `json:"ownerId"`
	Number      int             `json:"versionNumber"`
	IsActive    bool            `json:"isActive"`
	Payload     json.RawMessage `json:"payload"`
	Provider    string          `json:"provider"`
	Model       string          `json:"model"`
	TemplateID  string          `json:"templateId,omitempty"`
	GeneratedAt time.Time       `json:"generatedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Metadata describes how a version was generated.
type Metadata struct {
	Provider    string
	Model       string
	TemplateID  string
	GeneratedAt time.Time
}

// Policy is the activation behaviour of one document kind.
type Policy struct {
	Activation      ActivateMode
	PromoteOnDelete bool
}

// DefaultPolicies: resume versions are never active; the newest cover letter
// is the active one.
var DefaultPolicies = map[Kind]Policy{
	KindResume:      {Activation: ActivateNever},
	KindCoverLetter: {Activation: ActivateAlways, PromoteOnDelete: true},
}
