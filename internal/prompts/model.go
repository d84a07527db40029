package prompts

import "time"

// TaskType names the generation a template drives.
type TaskType string

const (
	TaskResumeTailor TaskType = "resume_tailor"
	TaskCoverLetter  TaskType = "cover_letter"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	return t == TaskResumeTailor || t == TaskCoverLetter
}

// SystemOwner is the owner id of system default templates.
const SystemOwner = ""

// Template is a versioned prompt. Each (owner, task, role) scope has at most
// one active template; updates insert a new version linked to its parent.
type Template struct {
	ID               string     `json:"id"`
	TaskType         TaskType   `json:"taskType"`
	RoleType         string     `json:"roleType"`
	Name             string     `json:"name"`
	PromptText       string     `json:"promptText"`
	IsSystemDefault  bool       `json:"isSystemDefault"`
	OwnerID          string     `json:"ownerId,omitempty"`
	Version          int        `json:"version"`
	IsActive         bool       `json:"isActive"`
	ParentTemplateID string     `json:"parentTemplateId,omitempty"`
	UsageCount       int64      `json:"usageCount"`
	LastUsedAt       *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Scope identifies the uniqueness scope of active templates.
type Scope struct {
	OwnerID  string
	TaskType TaskType
	RoleType string
}

// Scope returns the template's scope.
func (t Template) Scope() Scope {
	return Scope{OwnerID: t.OwnerID, TaskType: t.TaskType, RoleType: t.RoleType}
}

func (s Scope) key() string {
	return s.OwnerID + "|" + string(s.TaskType) + "|" + s.RoleType
}
