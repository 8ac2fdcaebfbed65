package server

import (
	"github.com/labstack/echo/v4"
	"github.com/vamnguyen/tiktok-live-games/internal/domain"
	apperrors "github.com/vamnguyen/tiktok-live-games/internal/errors"
)

func (s *Server) registerOverlayRoutes() {
	s.echo.GET("/overlay/:tenant", s.handleOverlay)
	s.echo.GET("/connection/websocket", echo.WrapHandler(s.websocketHandler))
}

func (s *Server) handleIndex(c echo.Context) error {
	return s.renderTemplate(c, "index.html", nil)
}

func (s *Server) handleOverlay(c echo.Context) error {
	raw := c.Param("tenant")
	tenantID, err := domain.NormalizeTenantID(raw)
	if err != nil {
		return apperrors.ValidationError("invalid tenant id").WithContext("tenant", raw)
	}

	data := map[string]any{
		"TenantID": tenantID,
		"Channel":  domain.TenantChannel(tenantID),
		"WSHost":   c.Request().Host,
	}
	return s.renderTemplate(c, "overlay.html", data)
}
