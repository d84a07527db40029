package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"jobtracker-backend/internal/coverletters"
	"jobtracker-backend/internal/prompts"
	"jobtracker-backend/internal/services/health"
	"jobtracker-backend/internal/shared/config"
	"jobtracker-backend/internal/shared/metrics"
	"jobtracker-backend/internal/shared/server/middleware"
	"jobtracker-backend/internal/shared/server/respond"
	"jobtracker-backend/internal/tailoring"
	"jobtracker-backend/internal/usage"
)

// RouterDeps lists the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config         config.Config
	Health         *health.Service
	PromptHandler  *prompts.Handler
	TailorHandler  *tailoring.Handler
	LetterHandler  *coverletters.Handler
	UsageHandler   *usage.Handler
	GenerationRate middleware.Limiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	service := deps.Config.Tracing.ServiceName
	if service == "" {
		service = "jobtracker-api"
	}
	r.Use(
		otelgin.Middleware(service, otelgin.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/metrics"
		})),
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())
	r.GET("/api/v1/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		st := deps.Health.Check(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})

	api := r.Group("/api/v1", middleware.Owner())
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			middleware.GenerationGroup: middleware.PerMinute(deps.Config.GenerationRPM),
		},
		GroupFor: middleware.GenerationRoutes,
		Limiter:  deps.GenerationRate,
	}))

	if deps.PromptHandler != nil {
		deps.PromptHandler.RegisterRoutes(api)
	}
	if deps.TailorHandler != nil {
		deps.TailorHandler.RegisterRoutes(api)
	}
	if deps.LetterHandler != nil {
		deps.LetterHandler.RegisterRoutes(api)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
