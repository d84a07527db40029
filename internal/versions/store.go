package versions

import "context"

// Store persists versions. Mutations are serialized per (kind, owner).
type Store interface {
	// CreateNext assigns the next number for v's owner and inserts it.
	CreateNext(ctx context.Context, v Version, mode ActivateMode) (Version, error)
	// Activate makes id the only active version of its owner.
	Activate(ctx context.Context, kind Kind, ownerID, id string) (Version, error)
	// Delete removes id. When promote is set and id was active, the
	// highest-numbered remaining version becomes active and is returned.
	Delete(ctx context.Context, kind Kind, ownerID, id string, promote bool) (*Version, error)
	Get(ctx context.Context, kind Kind, id string) (Version, error)
	GetActive(ctx context.Context, kind Kind, ownerID string) (Version, error)
	// List returns the owner's versions, highest number first.
	List(ctx context.Context, kind Kind, ownerID string) ([]Version, error)
	// MaxNumber returns the highest existing number, or 0.
	MaxNumber(ctx context.Context, kind Kind, ownerID string) (int, error)
}
