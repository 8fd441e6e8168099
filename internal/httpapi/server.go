// Package httpapi serves the pipeline over a JSON HTTP API, with the MCP
// endpoint, Prometheus metrics and a landing page mounted alongside.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bull/localrag/internal/answer"
	"github.com/bull/localrag/internal/pipeline"
	"github.com/bull/localrag/internal/session"
)

// Pipeline is the part of the pipeline facade the API calls.
type Pipeline interface {
	Answer(ctx context.Context, query string) (*answer.Answer, error)
	Stats(ctx context.Context) (pipeline.Stats, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// Model and EmbeddingModel are reported by the health endpoint.
	Model          string
	EmbeddingModel string
	// MCP and Metrics are mounted at /mcp and /metrics when set.
	MCP     http.Handler
	Metrics http.Handler
}

// Server provides the HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	pipeline Pipeline
	sessions session.Store
	logger   *slog.Logger
	config   *Config
}

// NewServer creates a new HTTP server.
func NewServer(p Pipeline, sessions session.Store, logger *slog.Logger, cfg *Config) (*Server, error) {
	if p == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("HTTP request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		pipeline: p,
		sessions: sessions,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleLanding)

	api := s.echo.Group("/api")
	api.POST("/chat", s.handleChat)
	api.GET("/conversations/:id", s.handleConversation)
	api.DELETE("/conversations", s.handleClearConversations)
	api.GET("/stats", s.handleStats)
	api.GET("/health", s.handleHealth)

	if s.config.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.config.Metrics))
	}
	if s.config.MCP != nil {
		s.echo.Any("/mcp", echo.WrapHandler(s.config.MCP))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("Starting HTTP server", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}
