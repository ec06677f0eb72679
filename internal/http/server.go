// Package http provides the sprintai HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/analysis"
	"github.com/fyrsmithlabs/sprintai/internal/chat"
	"github.com/fyrsmithlabs/sprintai/internal/identity"
	"github.com/fyrsmithlabs/sprintai/internal/live"
	"github.com/fyrsmithlabs/sprintai/internal/logging"
	"github.com/fyrsmithlabs/sprintai/internal/metrics"
)

// Services are the domain components the API exposes.
type Services struct {
	Identity *identity.Service
	Analysis *analysis.Service
	Chat     *chat.Service

	// Events feeds GET /api/v1/events. Nil disables the stream.
	Events live.Subscriber

	// Metrics tracks open event streams. Optional.
	Metrics *metrics.Metrics

	// Health reports dependency status for GET /health. Optional.
	Health func(ctx context.Context) map[string]string
}

// Server provides HTTP endpoints for sprintai.
type Server struct {
	echo     *echo.Echo
	services Services
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// Version is reported by GET /health.
	Version string

	// HeartbeatInterval is the SSE keep-alive period (default: 15s).
	HeartbeatInterval time.Duration

	// MetricsHandler serves GET /metrics (default: promhttp.Handler()).
	MetricsHandler http.Handler
}

// NewServer creates a new HTTP server.
func NewServer(svc Services, logger *zap.Logger, cfg *Config) (*Server, error) {
	if svc.Identity == nil || svc.Analysis == nil || svc.Chat == nil {
		return nil, fmt.Errorf("identity, analysis and chat services are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		services: svc,
		logger:   logger,
		config:   cfg,
	}
	e.HTTPErrorHandler = s.errorHandler

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), reqID)))

			err := next(c)
			duration := time.Since(start)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}

			// requireSession may have replaced the request with a user-tagged one.
			fields := append(logging.ContextFields(c.Request().Context()),
				zap.String("method", req.Method),
				zap.String("uri", c.Path()),
				zap.Int("status", status),
				zap.Duration("duration", duration),
			)
			logger.Info("http request", fields...)

			return err
		}
	})

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(s.config.MetricsHandler))

	auth := s.requireSession()

	v1 := s.echo.Group("/api/v1")
	v1.POST("/auth/register", s.handleRegister)
	v1.POST("/auth/login", s.handleLogin)
	v1.POST("/auth/logout", s.handleLogout, auth)
	v1.GET("/auth/me", s.handleMe, auth)

	v1.POST("/score", s.handleScore)

	a := v1.Group("/analysis", auth)
	a.GET("", s.handleGetAnalysis)
	a.PUT("", s.handlePutAnalysis)
	a.PATCH("/title", s.handleSetTitle)
	a.POST("/options", s.handleAddOption)
	a.PATCH("/options/:id", s.handleRenameOption)
	a.DELETE("/options/:id", s.handleRemoveOption)
	a.PUT("/options/:id/ratings/:factor", s.handleSetRating)
	a.PUT("/weights/:factor", s.handleSetWeight)
	a.GET("/ranking", s.handleRanking)

	v1.GET("/chat/messages", s.handleListMessages, auth)
	v1.POST("/chat/messages", s.handleSendMessage, auth)
	v1.GET("/events", s.handleEvents, auth)

	s.echo.POST("/api/chat", s.handleProxy, auth)
}

// Echo exposes the router for additional mounts.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ServeHTTP lets the server be used as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Version: s.config.Version}
	if s.services.Health != nil {
		resp.Services = s.services.Health(c.Request().Context())
		for _, st := range resp.Services {
			if st != "ok" {
				resp.Status = "degraded"
			}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// fail logs internal errors and converts err for the error handler.
func (s *Server) fail(c echo.Context, err error) error {
	he := httpError(err)
	if he.Code >= http.StatusInternalServerError {
		fields := append(logging.ContextFields(c.Request().Context()),
			zap.String("uri", c.Path()),
			zap.Error(err),
		)
		s.logger.Error("request failed", fields...)
	}
	return he
}

// errorHandler renders errors as {"error": message}.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": msg})
	}
	if err != nil {
		s.logger.Warn("failed to write error response", zap.Error(err))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
