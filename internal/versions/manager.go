package versions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jobtracker-backend/internal/shared/telemetry"
)

// Manager applies per-kind activation policy on top of a Store.
type Manager struct {
	store    Store
	policies map[Kind]Policy
	now      func() time.Time
}

// NewManager constructs a Manager. A nil policies map uses DefaultPolicies.
func NewManager(store Store, policies map[Kind]Policy) *Manager {
	if policies == nil {
		policies = DefaultPolicies
	}
	return &Manager{store: store, policies: policies, now: time.Now}
}

func (m *Manager) policy(kind Kind) Policy {
	return m.policies[kind]
}

// Create stores payload as the next version of ownerID. A number or
// active-slot conflict is retried once before being reported.
func (m *Manager) Create(ctx context.Context, kind Kind, ownerID string, payload any, meta Metadata) (Version, error) {
	if ownerID == "" {
		return Version{}, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Version{}, fmt.Errorf("%w: encode payload: %v", ErrInvalidInput, err)
	}
	generatedAt := meta.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = m.now().UTC()
	}
	v := Version{
		Kind:        kind,
		OwnerID:     ownerID,
		Payload:     raw,
		Provider:    meta.Provider,
		Model:       meta.Model,
		TemplateID:  meta.TemplateID,
		GeneratedAt: generatedAt,
	}

	mode := m.policy(kind).Activation
	out, err := m.store.CreateNext(ctx, v, mode)
	if errors.Is(err, ErrVersionConflict) {
		telemetry.Warn("version.conflict_retry", map[string]any{
			"kind":     string(kind),
			"owner_id": ownerID,
		})
		out, err = m.store.CreateNext(ctx, v, mode)
	}
	if err != nil {
		return Version{}, err
	}
	telemetry.Info("version.created", map[string]any{
		"kind":           string(kind),
		"owner_id":       ownerID,
		"version_id":     out.ID,
		"version_number": out.Number,
		"active":         out.IsActive,
	})
	return out, nil
}

// Activate makes id the active version for ownerID.
func (m *Manager) Activate(ctx context.Context, kind Kind, ownerID, id string) (Version, error) {
	if m.policy(kind).Activation == ActivateNever {
		return Version{}, fmt.Errorf("%w: %s versions cannot be activated", ErrInvalidInput, kind)
	}
	v, err := m.store.Activate(ctx, kind, ownerID, id)
	if errors.Is(err, ErrVersionConflict) {
		v, err = m.store.Activate(ctx, kind, ownerID, id)
	}
	if err != nil {
		return Version{}, err
	}
	telemetry.Info("version.activated", map[string]any{
		"kind":           string(kind),
		"owner_id":       ownerID,
		"version_id":     v.ID,
		"version_number": v.Number,
	})
	return v, nil
}

// Delete removes id and returns the version promoted in its place, if any.
func (m *Manager) Delete(ctx context.Context, kind Kind, ownerID, id string) (*Version, error) {
	promoted, err := m.store.Delete(ctx, kind, ownerID, id, m.policy(kind).PromoteOnDelete)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{"kind": string(kind), "owner_id": ownerID, "version_id": id}
	if promoted != nil {
		fields["promoted_id"] = promoted.ID
	}
	telemetry.Info("version.deleted", fields)
	return promoted, nil
}

func (m *Manager) Get(ctx context.Context, kind Kind, id string) (Version, error) {
	return m.store.Get(ctx, kind, id)
}

func (m *Manager) GetActive(ctx context.Context, kind Kind, ownerID string) (Version, error) {
	return m.store.GetActive(ctx, kind, ownerID)
}

func (m *Manager) List(ctx context.Context, kind Kind, ownerID string) ([]Version, error) {
	return m.store.List(ctx, kind, ownerID)
}
