// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"

	"erpstock/internal/infrastructure/http/v1/handlers"
	"erpstock/internal/infrastructure/http/v1/middleware"
	"erpstock/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Stock serves the inventory lookup
	Stock handlers.StockLister

	// BusinessUnit scopes every stock lookup
	BusinessUnit string

	// DB is pinged by the readiness probe
	DB handlers.Pinger

	// AllowedOrigins for CORS; "*" allows any origin
	AllowedOrigins []string

	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	router.GET("/", healthHandler.Root)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	stockHandler := handlers.NewStockHandler(handlers.NewBaseHandler(), cfg.Stock, cfg.BusinessUnit)
	excedentes := router.Group("/excedentes")
	excedentes.Use(middleware.Auth(cfg.JWTValidator))
	stockHandler.RegisterRoutes(excedentes)

	return router
}

// NewHandler wraps the router with CORS and on-demand gzip compression.
func NewHandler(cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	withCORS := cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.HeaderRequestID, middleware.HeaderTraceID},
		ExposedHeaders: []string{middleware.HeaderRequestID, middleware.HeaderTraceID},
		MaxAge:         600,
	})

	return gzhttp.GzipHandler(withCORS(NewRouter(cfg)))
}
