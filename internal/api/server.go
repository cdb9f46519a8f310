// Package api exposes the decision pipeline over REST.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quantforge/decider/internal/config"
	"github.com/quantforge/decider/internal/domain"
)

// DecisionMaker is the engine surface the API depends on.
type DecisionMaker interface {
	MakeDecision(ctx context.Context, symbol string, portfolio *domain.Portfolio) *domain.DecisionResult
	MakeBatchDecisions(ctx context.Context, symbols []string, portfolio *domain.Portfolio) map[string]*domain.DecisionResult
}

// HistoryReader reads the decision audit log. Optional.
type HistoryReader interface {
	RecentDecisions(ctx context.Context, symbol string, limit int) ([]*domain.DecisionResult, error)
}

// Config contains server configuration.
type Config struct {
	Host    string
	Port    int
	Engine  DecisionMaker
	History HistoryReader
}

// Server is the REST API server.
type Server struct {
	router  *gin.Engine
	engine  DecisionMaker
	history HistoryReader
	addr    string
	server  *http.Server
	logger  zerolog.Logger
}

// NewServer creates an API server.
func NewServer(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := config.NewLogger("api")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		router:  router,
		engine:  cfg.Engine,
		history: cfg.History,
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		logger:  logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		decisions := v1.Group("/decisions")
		{
			decisions.POST("", s.handleMakeDecision)
			decisions.POST("/batch", s.handleBatchDecisions)
			decisions.GET("/:symbol", s.handleDecisionHistory)
		}
	}
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", s.addr).Msg("Starting API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info().Msg("Stopping API server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}

func loggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("Request handled")
	}
}
