package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vamnguyen/tiktok-live-games/internal/config"
	"github.com/vamnguyen/tiktok-live-games/internal/live"
	"github.com/vamnguyen/tiktok-live-games/web"
)

type connectionPool interface {
	Snapshot() []live.ConnectionInfo
}

type subscriberRegistry interface {
	Count(tenantID string) int
	Snapshot() map[string]int
}

type liveChecker interface {
	IsLive(ctx context.Context, tenantID string) (bool, error)
}

type viewerPresence interface {
	ViewerCount(tenantID string) int
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	pool     connectionPool
	registry subscriberRegistry
	checker  liveChecker
	presence viewerPresence

	websocketHandler http.Handler

	templates    *template.Template
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, pool connectionPool, registry subscriberRegistry, checker liveChecker, presence viewerPresence, websocketHandler http.Handler, healthChecks []HealthCheck) (*Server, error) {
	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		pool:             pool,
		registry:         registry,
		checker:          checker,
		presence:         presence,
		websocketHandler: websocketHandler,
		templates:        templates,
		healthChecks:     healthChecks,
		startTime:        time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}
