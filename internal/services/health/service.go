package health

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"

	"jobtracker-backend/internal/shared/storage/db"
)

const checkTimeout = 2 * time.Second

// Service encapsulates health-related checks. Nil dependencies are reported
// as "disabled".
type Service struct {
	DB    *sql.DB
	Redis *redis.Client
}

// NewService constructs a new health service.
func NewService(db *sql.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb}
}

// Status is the health payload.
type Status struct {
	OK       bool              `json:"ok"`
	Database string            `json:"database"`
	Cache    string            `json:"cache"`
	Pool     *db.PoolStats     `json:"pool,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Check pings each configured dependency.
func (s *Service) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	st := Status{OK: true, Database: "disabled", Cache: "disabled"}
	fail := func(name string, err error) string {
		st.OK = false
		if st.Errors == nil {
			st.Errors = map[string]string{}
		}
		st.Errors[name] = err.Error()
		return "down"
	}
	if s.DB != nil {
		st.Database = "up"
		if err := s.DB.PingContext(ctx); err != nil {
			st.Database = fail("database", err)
		}
		pool := db.Stats(s.DB)
		st.Pool = &pool
	}
	if s.Redis != nil {
		st.Cache = "up"
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			st.Cache = fail("cache", err)
		}
	}
	return st
}
