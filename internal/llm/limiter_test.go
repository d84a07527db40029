package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiterPacesAfterBurst(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLimiter(60, func() time.Time { return now })

	for i := 0; i < 10; i++ {
		if wait := l.Reserve(); wait != 0 {
			t.Fatalf("call %d within burst should not wait, got %v", i, wait)
		}
	}
	if wait := l.Reserve(); wait != time.Second {
		t.Fatalf("expected 1s wait after burst, got %v", wait)
	}
	now = now.Add(5 * time.Second)
	if wait := l.Reserve(); wait != 0 {
		t.Fatalf("expected refill after 5s, got %v", wait)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, nil)
	for i := 0; i < 1000; i++ {
		if l.Reserve() != 0 {
			t.Fatalf("disabled limiter must not wait")
		}
	}
}

func TestLimiterCancelledWaitReturnsToken(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLimiter(6, func() time.Time { return now })

	if wait := l.Reserve(); wait != 0 {
		t.Fatalf("first call should not wait, got %v", wait)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// The cancelled reservation was handed back, so the next caller waits
	// one interval rather than two.
	if wait := l.Reserve(); wait != 10*time.Second {
		t.Fatalf("expected 10s wait, got %v", wait)
	}
}
