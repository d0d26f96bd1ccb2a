package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	verifly "github.com/verifly/verifly-go"
	"github.com/verifly/verifly-go/internal/api/middleware"
	"github.com/verifly/verifly-go/internal/api/rest"
	"github.com/verifly/verifly-go/internal/api/shared/executor"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/processor"
	"github.com/verifly/verifly-go/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
}

// New creates the webhook receiver server. st may be nil when no database is configured.
func New(cfg Config, client *verifly.Handle, st store.Store, proc processor.Processor, auth *middleware.Authenticator) *Server {
	// Set Gin mode based on debug flag
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS(cfg.CORSOrigins))

	exec := executor.NewExecutor(client, st)
	rest.SetupRoutes(router, rest.NewHandler(exec, proc), client, auth)

	return &Server{
		config: cfg,
		router: router,
	}
}

// Handler returns the router serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting webhook receiver",
		zap.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down webhook receiver")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
