package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ticket-tagger/backend/internal/config"
	"github.com/ticket-tagger/backend/internal/db"
	"github.com/ticket-tagger/backend/internal/http/handlers"
	"github.com/ticket-tagger/backend/internal/http/middleware"
	"github.com/ticket-tagger/backend/internal/service"

	_ "github.com/ticket-tagger/backend/docs"
)

// Router wires the tagging service behind gin. store may be nil when run
// history is disabled.
func Router(cfg config.Config, tagger *service.TaggingService, store *db.Store, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "" || cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Tagger:         tagger,
		Validator:      validator.New(),
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
		InputPath:      cfg.InputPath,
		OutputPath:     cfg.OutputPath,
	}
	if store != nil {
		h.Store = store
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/categories", h.Categories)
		api.POST("/classify", h.Classify)
		api.GET("/runs/latest", h.RunsLatest)
	}

	if cfg.AdminKey == "" {
		logger.Warn().Msg("ADMIN_KEY is not set, POST /api/runs is closed")
	}
	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/runs", h.CreateRun)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
