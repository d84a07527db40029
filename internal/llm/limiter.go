package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound provider calls with a token bucket refilling
// requestsPerMinute/60 tokens a second.
type Limiter struct {
	lim *rate.Limiter
	now func() time.Time
}

// NewLimiter allows requestsPerMinute calls per minute with a burst of a
// sixth of that. A non-positive value disables limiting.
func NewLimiter(requestsPerMinute int, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	if requestsPerMinute <= 0 {
		return &Limiter{now: now}
	}
	burst := max(1, requestsPerMinute/6)
	return &Limiter{
		lim: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), burst),
		now: now,
	}
}

// Reserve takes one token and returns how long the caller must wait before
// using it.
func (l *Limiter) Reserve() time.Duration {
	_, wait := l.reserve()
	return wait
}

func (l *Limiter) reserve() (*rate.Reservation, time.Duration) {
	if l == nil || l.lim == nil {
		return nil, 0
	}
	now := l.now()
	r := l.lim.ReserveN(now, 1)
	return r, r.DelayFrom(now)
}

// Wait blocks until a token is available or ctx is done. A cancelled wait
// hands its token back.
func (l *Limiter) Wait(ctx context.Context) error {
	r, wait := l.reserve()
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.CancelAt(l.now())
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
