package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spamguardian/spam-guardian/internal/adapter/http/handler"
	"github.com/spamguardian/spam-guardian/internal/adapter/http/middleware"
	"github.com/spamguardian/spam-guardian/internal/usecase"
)

// Dependencies carries what the router wires into handlers. DB, Redis,
// Model and Gatherer may be nil.
type Dependencies struct {
	DB         *gorm.DB
	Redis      *redis.Client
	ClassifyUC usecase.ClassifyUsecase
	Model      handler.ModelState
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
}

// Setup creates and configures the Gin router
func Setup(deps Dependencies) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Redis, deps.Model)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(metricsHandler(deps.Gatherer)))

	classifyHandler := handler.NewClassifyHandler(deps.ClassifyUC)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/classify", classifyHandler.Classify)
		v1.POST("/classify/batch", classifyHandler.ClassifyBatch)
		v1.POST("/normalize", classifyHandler.Normalize)
		v1.GET("/model", classifyHandler.ModelInfo)

		verdicts := v1.Group("/verdicts")
		{
			verdicts.GET("", classifyHandler.ListVerdicts)
			verdicts.GET("/stats", classifyHandler.Stats)
			verdicts.GET("/:id", classifyHandler.GetVerdict)
		}
	}

	return router
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
