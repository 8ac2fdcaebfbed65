package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vamnguyen/tiktok-live-games/internal/domain"
	apperrors "github.com/vamnguyen/tiktok-live-games/internal/errors"
	"github.com/vamnguyen/tiktok-live-games/internal/live"
)

func (s *Server) registerAPIRoutes() {
	liveCheckLimiter := newRateLimiter(s.config.LiveCheckRatePerSecond, s.config.LiveCheckBurst)

	s.echo.GET("/api/stats", s.handleStats)
	s.echo.GET("/api/live/:tenant", s.handleLiveStatus, liveCheckLimiter)
}

// tenantStats enriches a pooled connection with the counts the overlay
// dashboard cares about: registered subscribers and live websocket viewers.
type tenantStats struct {
	live.ConnectionInfo
	Subscribers int `json:"subscribers"`
	Viewers     int `json:"viewers"`
}

func (s *Server) handleStats(c echo.Context) error {
	connections := s.pool.Snapshot()

	tenants := make([]tenantStats, 0, len(connections))
	for _, info := range connections {
		tenants = append(tenants, tenantStats{
			ConnectionInfo: info,
			Subscribers:    s.registry.Count(info.TenantID),
			Viewers:        s.presence.ViewerCount(info.TenantID),
		})
	}

	response := map[string]any{
		"activeConnectionCount": len(connections),
		"tenants":               tenants,
		"subscribers":           s.registry.Snapshot(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleLiveStatus(c echo.Context) error {
	ctx := c.Request().Context()

	raw := c.Param("tenant")
	tenantID, err := domain.NormalizeTenantID(raw)
	if err != nil {
		return apperrors.ValidationError("invalid tenant id").WithContext("tenant", raw)
	}

	isLive, err := s.checker.IsLive(ctx, tenantID)
	if err != nil {
		return apperrors.ExternalError("failed to check live status", err).WithContext("tenant_id", tenantID)
	}

	response := map[string]any{
		"tenantId": tenantID,
		"live":     isLive,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
