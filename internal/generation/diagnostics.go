package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobtracker-backend/internal/shared/storage/object"
	"jobtracker-backend/internal/shared/telemetry"
)

const diagnosticsPrefix = "diagnostics"

// Capture is one provider response that could not be extracted.
type Capture struct {
	Task       string
	OwnerID    string
	TemplateID string
	Provider   string
	Model      string
	Reason     string
	Raw        string
}

// Diagnostics keeps raw provider output that failed extraction for later
// inspection. The text is never returned to callers.
type Diagnostics struct {
	Store object.ObjectStore
	Now   func() time.Time
}

// NewDiagnostics constructs a Diagnostics. A nil store disables it.
func NewDiagnostics(store object.ObjectStore) *Diagnostics {
	return &Diagnostics{Store: store, Now: time.Now}
}

// SaveRaw stores c.Raw and returns its key, or "" when disabled or on
// failure. Owner ids are hashed so keys never carry them.
func (d *Diagnostics) SaveRaw(ctx context.Context, c Capture) string {
	if d == nil || d.Store == nil || c.Raw == "" {
		return ""
	}
	now := d.Now().UTC()
	key := path.Join(
		diagnosticsPrefix,
		keySegment(c.Task),
		ownerBucket(c.OwnerID),
		now.Format("20060102T150405Z")+"_"+uuid.NewString()+".txt",
	)
	_, err := d.Store.Put(telemetry.Detach(ctx), object.Object{
		Key:         key,
		ContentType: "text/plain; charset=utf-8",
		Metadata: map[string]string{
			"task":        c.Task,
			"template-id": c.TemplateID,
			"provider":    c.Provider,
			"model":       c.Model,
			"reason":      c.Reason,
			"request-id":  telemetry.RequestIDFromContext(ctx),
		},
		Body: strings.NewReader(c.Raw),
	})
	if err != nil {
		telemetry.Warn("generation.diagnostics_failed", map[string]any{"key": key, "error": err})
		return ""
	}
	return key
}

func ownerBucket(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:8])
}

// keySegment keeps [a-z0-9_-] and maps everything else to '-'.
func keySegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}
