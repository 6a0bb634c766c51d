// Package api provides the HTTP facade in front of the userdeck console
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/userdeck/userdeck/pkg/config"
	"github.com/userdeck/userdeck/pkg/console"
	"github.com/userdeck/userdeck/pkg/interfaces"
)

// Server represents the facade server instance
type Server struct {
	console *console.Console
	config  *config.Config
	logger  interfaces.Logger
	router  *gin.Engine
	server  *http.Server
	started time.Time
}

// NewServer creates a new facade server instance
func NewServer(cons *console.Console, cfg *config.Config, logger interfaces.Logger) *Server {
	if cfg.LogLevel == "error" || cfg.LogLevel == "warn" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	s := &Server{
		console: cons,
		config:  cfg,
		logger:  logger,
		router:  router,
		started: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	s.router.Use(cors.New(corsConfig))

	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.authMiddleware())
}

// setupRoutes configures all facade routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/auth/login", s.login)

	records := s.router.Group("/records")
	{
		records.GET("", s.listRecords)
		records.POST("", s.createRecord)
		records.GET("/:id", s.getRecord)
		records.PUT("/:id", s.updateRecord)
		records.DELETE("/:id", s.deleteRecord)
		records.POST("/:id/avatar", s.uploadAvatar)
	}

	bulk := s.router.Group("/records/bulk-delete")
	{
		bulk.POST("", s.bulkDelete)
		bulk.GET("", s.bulkDeleteStatus)
		bulk.POST("/undo", s.bulkDeleteUndo)
		bulk.POST("/confirm", s.bulkDeleteConfirm)
	}

	s.router.GET("/notifications", s.listNotifications)
	s.router.GET("/theme", s.getTheme)
	s.router.PUT("/theme", s.setTheme)
}

// Start runs the facade server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	port := s.config.API.Port
	if port == 0 {
		port = 8080
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting facade server", map[string]interface{}{
		"port": port,
		"mode": gin.Mode(),
	})

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Failed to start server", err)
		}
	}()

	<-ctx.Done()

	s.logger.Info("Shutting down facade server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Stop gracefully stops the facade server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}
