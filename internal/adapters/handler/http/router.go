package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/regen-engine/docs"
	"github.com/comitanigiacomo/regen-engine/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/regen-engine/internal/metrics"
)

const (
	healthTimeout = 2 * time.Second
	authRateLimit = 20
)

type RouterDependencies struct {
	AuthHandler           *AuthHandler
	TrackerHandler        *TrackerHandler
	EntryHandler          *EntryHandler
	StatsHandler          *StatsHandler
	AchievementHandler    *AchievementHandler
	RecommendationHandler *RecommendationHandler
	FeedHandler           *FeedHandler
	ProfileHandler        *ProfileHandler
	// DevHandler is nil unless development endpoints are enabled.
	DevHandler *DevHandler

	Tokens          middleware.TokenValidator
	TrustUserHeader bool
	RateLimit       int

	DB        *sqlx.DB
	Redis     *redis.Client
	Logger    *zap.Logger
	StartTime time.Time
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(metrics.GinMiddleware())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-User-ID")
	corsCfg.ExposeHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}
	router.Use(cors.New(corsCfg))

	router.GET("/health", health(deps))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.InstanceName(docs.InstanceName)))

	apiV1 := router.Group("/api/v1")

	public := apiV1.Group("")
	if deps.Redis != nil {
		public.Use(middleware.RateLimiterMiddleware(deps.Redis, middleware.RateLimit{
			Scope: "auth", Limit: authRateLimit, Window: time.Minute,
		}, deps.Logger))
	}
	deps.AuthHandler.RegisterRoutes(public)

	protected := apiV1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Tokens, deps.TrustUserHeader))
	if deps.Redis != nil {
		limit := deps.RateLimit
		if limit <= 0 {
			limit = 100
		}
		protected.Use(middleware.RateLimiterMiddleware(deps.Redis, middleware.RateLimit{
			Scope: "api", Limit: limit, Window: time.Minute,
		}, deps.Logger))
	}
	{
		deps.TrackerHandler.RegisterRoutes(protected)
		deps.EntryHandler.RegisterRoutes(protected)
		deps.StatsHandler.RegisterRoutes(protected)
		deps.AchievementHandler.RegisterRoutes(protected)
		deps.RecommendationHandler.RegisterRoutes(protected)
		deps.FeedHandler.RegisterRoutes(protected)
		deps.ProfileHandler.RegisterRoutes(protected)
		if deps.DevHandler != nil {
			deps.DevHandler.RegisterRoutes(protected)
		}
	}

	return router
}

// health reports 503 when a configured dependency is unreachable. A nil
// dependency is reported as disabled.
func health(deps RouterDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		dbStatus := pingStatus(deps.DB != nil, func() error { return deps.DB.PingContext(ctx) })
		redisStatus := pingStatus(deps.Redis != nil, func() error { return deps.Redis.Ping(ctx).Err() })

		statusCode := http.StatusOK
		if dbStatus == "unreachable" || redisStatus == "unreachable" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{
			"status":   http.StatusText(statusCode),
			"database": dbStatus,
			"redis":    redisStatus,
			"uptime":   time.Since(deps.StartTime).Round(time.Second).String(),
		})
	}
}

func pingStatus(configured bool, ping func() error) string {
	if !configured {
		return "disabled"
	}
	if err := ping(); err != nil {
		return "unreachable"
	}
	return "connected"
}
