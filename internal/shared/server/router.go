package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"readiness-backend/internal/services/health"
	"readiness-backend/internal/shared/config"
	"readiness-backend/internal/shared/metrics"
	"readiness-backend/internal/shared/server/middleware"
	"readiness-backend/internal/shared/server/respond"
)

const (
	rateGroupDefault  = "DEFAULT"
	rateGroupAnalysis = "ANALYSIS"
)

// RouteRegistrar attaches a feature's routes to the API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config     config.Config
	Health     *health.Service
	Assessment RouteRegistrar
	// RateLimits overrides the default per-group rules.
	RateLimits map[string]middleware.RateLimitRule
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	rules := deps.RateLimits
	if rules == nil {
		rules = map[string]middleware.RateLimitRule{
			rateGroupDefault:  {Rate: 10, Burst: 40},
			rateGroupAnalysis: {Rate: 0.5, Burst: 10},
		}
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		st := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	if deps.Assessment != nil {
		deps.Assessment.RegisterRoutes(api)
	}

	return r
}

// rateGroupFor puts the two LLM-backed endpoints in the stricter group.
func rateGroupFor(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/v1/assessment/next", "/api/v1/assessment/resume-document":
		return rateGroupAnalysis
	default:
		return rateGroupDefault
	}
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
