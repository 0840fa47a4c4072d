package delivery

import (
	"time"

	"creativelens/internal/delivery/middleware"
	"creativelens/pkg/logger"
	"creativelens/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

type HTTPRouter struct {
	handlers *HTTPHandlers
	logger   *logger.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	config   RouterConfig
}

func NewHTTPRouter(handlers *HTTPHandlers, logger *logger.Logger, metrics *metrics.Metrics, gatherer prometheus.Gatherer, config RouterConfig) *HTTPRouter {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 60 * time.Second
	}
	return &HTTPRouter{
		handlers: handlers,
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
		config:   config,
	}
}

func (r *HTTPRouter) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = 32 << 20

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.Recovery(r.logger))
	router.Use(middleware.Metrics(r.metrics))
	router.Use(middleware.Timeout(r.config.RequestTimeout))
	router.Use(middleware.BodyLimit(r.config.MaxUploadBytes))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Content-Type", "X-Request-ID"}
	config.ExposeHeaders = []string{"X-Request-ID"}

	router.Use(cors.New(config))

	// Health endpoint
	router.GET("/health", r.handlers.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/", r.handlers.GetAPIInfo)
		v1.GET("", r.handlers.GetAPIInfo)

		storage := v1.Group("/storage")
		{
			storage.GET("/status", r.handlers.StorageStatus)
			storage.POST("/connect", r.handlers.StorageConnect)
			storage.DELETE("/data", r.handlers.ClearAllData)
			storage.POST("/reset", r.handlers.FactoryReset)
		}

		clients := v1.Group("/clients")
		{
			clients.GET("", r.handlers.ListClients)
			clients.POST("", r.handlers.CreateClient)
			clients.DELETE("/:id", r.handlers.DeleteClient)
			clients.GET("/:id/performance", r.handlers.GetPerformance)
			clients.POST("/:id/performance/link", r.handlers.LinkCreative)
			clients.POST("/:id/performance/bulk-link", r.handlers.BulkLink)
			clients.GET("/:id/history", r.handlers.GetHistory)
			clients.POST("/:id/creatives/analyze", r.handlers.AnalyzeCreative)
		}

		v1.POST("/imports", r.handlers.ImportReport)
		v1.GET("/performance/summaries", r.handlers.GetSummaries)
		v1.POST("/creatives/lookup", r.handlers.LookupCreative)
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler(r.gatherer))

	return router
}
