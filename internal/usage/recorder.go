package usage

import (
	"context"
	"sync"
	"time"

	"jobtracker-backend/internal/shared/telemetry"
)

// AsyncRecorder hands events to a background writer. Record never blocks;
// when the buffer is full or the recorder is closed the event is dropped
// and logged.
type AsyncRecorder struct {
	next    Recorder
	events  chan Event
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAsyncRecorder starts the background writer.
func NewAsyncRecorder(next Recorder, buffer int) *AsyncRecorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &AsyncRecorder{
		next:    next,
		events:  make(chan Event, buffer),
		timeout: 5 * time.Second,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *AsyncRecorder) Record(ctx context.Context, e Event) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		dropped(e, "closed")
		return ErrClosed
	}
	select {
	case r.events <- e:
		return nil
	default:
		dropped(e, "buffer_full")
		return ErrBufferFull
	}
}

// Close drains pending events and stops the writer. Later Record calls
// return ErrClosed.
func (r *AsyncRecorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func dropped(e Event, reason string) {
	telemetry.Warn("usage.dropped", map[string]any{
		"owner_id": e.OwnerID,
		"provider": e.Provider,
		"outcome":  e.Outcome,
		"reason":   reason,
	})
}

func (r *AsyncRecorder) run() {
	defer r.wg.Done()
	for e := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.next.Record(ctx, e); err != nil {
			telemetry.Error("usage.record_failed", map[string]any{
				"owner_id": e.OwnerID,
				"provider": e.Provider,
				"error":    err,
			})
		}
		cancel()
	}
}
