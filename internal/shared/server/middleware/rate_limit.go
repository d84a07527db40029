package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"jobtracker-backend/internal/shared/server/respond"
	"jobtracker-backend/internal/shared/telemetry"
)

// GenerationGroup covers routes that call a model provider.
const GenerationGroup = "generation"

// RateLimitRule allows PerMinute requests per principal.
type RateLimitRule struct {
	PerMinute int
}

// PerMinute builds a rule. A non-positive n disables limiting.
func PerMinute(n int) RateLimitRule {
	if n < 0 {
		n = 0
	}
	return RateLimitRule{PerMinute: n}
}

func (r RateLimitRule) disabled() bool { return r.PerMinute <= 0 }

// Limiter decides whether key may proceed under rule.
type Limiter interface {
	Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration, error)
}

// RateLimitConfig maps route groups to rules. Requests whose group has no
// rule pass through.
type RateLimitConfig struct {
	Rules    map[string]RateLimitRule
	GroupFor func(*gin.Context) string
	Limiter  Limiter
}

// RateLimit rejects requests over their group's rule with 429. Limiter
// errors fail open.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewMemoryLimiter(nil)
	}
	return func(c *gin.Context) {
		if cfg.GroupFor == nil {
			c.Next()
			return
		}
		group := cfg.GroupFor(c)
		rule, ok := cfg.Rules[group]
		if group == "" || !ok || rule.disabled() {
			c.Next()
			return
		}
		principal := UserIDFromContext(c)
		if principal == "" {
			principal = c.ClientIP()
		}

		allowed, wait, err := cfg.Limiter.Allow(c.Request.Context(), group+":"+principal, rule)
		if err != nil {
			telemetry.Warn("ratelimit.unavailable", map[string]any{"group": group, "error": err})
			c.Next()
			return
		}
		if allowed {
			c.Next()
			return
		}
		if wait < time.Second {
			wait = time.Second
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		respond.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many generation requests", gin.H{
			"retryable":    true,
			"retryAfterMs": wait.Milliseconds(),
		})
	}
}

// GenerationRoutes puts POSTs that trigger a provider call in GenerationGroup.
func GenerationRoutes(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	route := c.FullPath()
	if strings.HasSuffix(route, "/tailor") || strings.HasSuffix(route, "/cover-letters") {
		return GenerationGroup
	}
	return ""
}

// MemoryLimiter is a per-key token bucket refilling PerMinute/60 tokens a
// second up to a burst of PerMinute/4.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	now     func() time.Time
}

// NewMemoryLimiter builds a MemoryLimiter; now defaults to time.Now.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{buckets: map[string]*rate.Limiter{}, now: now}
}

// Allow takes a token for key or reports the wait until one refills.
func (l *MemoryLimiter) Allow(_ context.Context, key string, rule RateLimitRule) (bool, time.Duration, error) {
	if rule.disabled() {
		return true, 0, nil
	}
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(float64(rule.PerMinute)/60), max(1, rule.PerMinute/4))
		l.buckets[key] = b
	}
	l.mu.Unlock()

	now := l.now()
	r := b.ReserveN(now, 1)
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait, nil
	}
	return true, 0, nil
}

// RedisLimiter counts requests in fixed one minute windows shared by every
// API replica.
type RedisLimiter struct {
	Client *redis.Client
	Prefix string
}

// NewRedisLimiter builds a RedisLimiter with the "ratelimit:" key prefix.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{Client: client, Prefix: "ratelimit:"}
}

// Allow increments the window counter for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration, error) {
	if rule.disabled() {
		return true, 0, nil
	}
	k := l.Prefix + key
	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	// EXPIRE NX in the same transaction gives every counter a window, even
	// one left behind without a TTL.
	_, err := l.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, time.Minute)
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if incr.Val() <= int64(rule.PerMinute) {
		return true, 0, nil
	}
	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = time.Minute
	}
	return false, ttl, nil
}

var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)
