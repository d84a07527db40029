package usage

import "time"

// Outcomes recorded per provider attempt.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Event is one provider attempt.
type Event struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"ownerId"`
	TaskType         string    `json:"taskType"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Mode             string    `json:"mode"`
	Attempt          int       `json:"attempt"`
	Outcome          string    `json:"outcome"`
	ErrorKind        string    `json:"errorKind,omitempty"`
	LatencyMs        int64     `json:"latencyMs"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Summary aggregates an owner's provider usage.
type Summary struct {
	Calls            int            `json:"calls"`
	ByOutcome        map[string]int `json:"byOutcome"`
	PromptTokens     int            `json:"promptTokens"`
	CompletionTokens int            `json:"completionTokens"`
}
