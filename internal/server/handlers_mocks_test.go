package server

import (
	"context"
	"errors"
	"html/template"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vamnguyen/tiktok-live-games/internal/config"
	apperrors "github.com/vamnguyen/tiktok-live-games/internal/errors"
	"github.com/vamnguyen/tiktok-live-games/internal/live"
)

// --- Mock implementations ---

type mockPool struct {
	connections []live.ConnectionInfo
}

func (m *mockPool) Snapshot() []live.ConnectionInfo {
	return m.connections
}

type mockRegistry struct {
	counts map[string]int
}

func (m *mockRegistry) Count(tenantID string) int {
	return m.counts[tenantID]
}

func (m *mockRegistry) Snapshot() map[string]int {
	out := make(map[string]int, len(m.counts))
	for tenant, count := range m.counts {
		out[tenant] = count
	}
	return out
}

type mockChecker struct {
	isLiveFn func(ctx context.Context, tenantID string) (bool, error)
}

func (m *mockChecker) IsLive(ctx context.Context, tenantID string) (bool, error) {
	if m.isLiveFn != nil {
		return m.isLiveFn(ctx, tenantID)
	}
	return false, errors.New("not implemented")
}

type mockPresence struct {
	viewers map[string]int
}

func (m *mockPresence) ViewerCount(tenantID string) int {
	return m.viewers[tenantID]
}

// --- Test helpers ---

func newTestServer(t *testing.T, opts ...func(*Server)) *Server {
	t.Helper()

	tmpl := template.Must(template.New("index.html").Parse(`Index`))
	template.Must(tmpl.New("overlay.html").Parse(`Overlay {{.TenantID}} {{.Channel}}`))

	e := echo.New()

	srv := &Server{
		echo:      e,
		config:    &config.Config{Port: "8080", LiveCheckRatePerSecond: 100, LiveCheckBurst: 100},
		pool:      &mockPool{},
		registry:  &mockRegistry{},
		checker:   &mockChecker{},
		presence:  &mockPresence{},
		templates: tmpl,
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	// Register routes so endpoints are available for testing
	srv.registerRoutes()

	return srv
}

func withConnections(connections ...live.ConnectionInfo) func(*Server) {
	return func(s *Server) {
		s.pool = &mockPool{connections: connections}
	}
}

func withSubscribers(counts map[string]int) func(*Server) {
	return func(s *Server) {
		s.registry = &mockRegistry{counts: counts}
	}
}

func withChecker(fn func(ctx context.Context, tenantID string) (bool, error)) func(*Server) {
	return func(s *Server) {
		s.checker = &mockChecker{isLiveFn: fn}
	}
}

func withViewers(viewers map[string]int) func(*Server) {
	return func(s *Server) {
		s.presence = &mockPresence{viewers: viewers}
	}
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return apperrors.Middleware()(handler)(c)
}
