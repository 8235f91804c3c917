package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/transition-engine/internal/config"
	"github.com/yungbote/transition-engine/internal/observability"
	"github.com/yungbote/transition-engine/internal/platform/logger"
)

// NewRouter assembles the service surface. The tick endpoint is the hot path;
// everything else is operational.
func NewRouter(cfg *config.Config, log *logger.Logger, metrics *observability.Metrics, h *TickHandler) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("transition-engine"))
	router.Use(accessLog(log))

	origins := cfg.HTTP.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/tick", h.Tick)
		v1.GET("/sessions/:learner_id/state", h.SessionState)
		v1.DELETE("/sessions/:learner_id", h.DeleteSession)
	}

	return router
}

func accessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// The tick endpoint fires at up to 90 Hz per learner; keep its access
		// logging at debug.
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", float64(time.Since(start))/float64(time.Millisecond),
		)
	}
}
