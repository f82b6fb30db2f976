package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/api/handlers"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/api/middleware"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/config"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, syncHandler *handlers.SyncHandler) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Routes
	router.GET("/health", syncHandler.Health)
	router.GET("/productCounts", syncHandler.ProductCounts)
	router.POST("/fullSync", syncHandler.FullSync)
	router.POST("/deltaSync", syncHandler.DeltaSync)
	router.POST("/sync/:productId", syncHandler.ManualSync)

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
		// No write timeout: /fullSync is synchronous and can legitimately run
		// for minutes on large catalogs.
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// GetRouter exposes the Gin router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
