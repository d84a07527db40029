package usage

import "context"

// Recorder persists usage events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Store is a Recorder that can also aggregate.
type Store interface {
	Recorder
	Summary(ctx context.Context, ownerID string) (Summary, error)
}
