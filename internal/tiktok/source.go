package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/vamnguyen/tiktok-live-games/internal/domain"
)

const (
	roomPath       = "/api-live/user/room/"
	userStatusLive = 2

	defaultHeartbeat = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// Config locates the TikTok frontend endpoints.
type Config struct {
	// WebBaseURL serves the room lookup API.
	WebBaseURL string
	// WebcastURL is the websocket feed base. http and https schemes are
	// converted to their websocket counterparts.
	WebcastURL string
	// HeartbeatInterval paces keepalive pings on established feeds.
	HeartbeatInterval time.Duration
}

// Source dials TikTok live feeds. It implements domain.LiveSource.
type Source struct {
	cfg    Config
	client *http.Client
	dialer *websocket.Dialer
	clock  clockwork.Clock
}

// NewSource creates a Source talking to the endpoints in cfg.
func NewSource(cfg Config, clock clockwork.Clock) *Source {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeat
	}
	return &Source{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		clock:  clock,
	}
}

// Connect resolves the tenant's live room, dials the webcast socket, and
// starts the delivery goroutines. Handlers fire from a single goroutine
// per feed, in wire order.
func (s *Source) Connect(ctx context.Context, tenantID string, handlers domain.LiveHandlers) (domain.LiveStream, error) {
	roomID, err := s.resolveRoom(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	wsURL, err := webcastDialURL(s.cfg.WebcastURL, roomID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := s.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial webcast (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial webcast: %w", err)
	}

	st := &stream{
		tenantID:  tenantID,
		roomID:    roomID,
		conn:      conn,
		handlers:  handlers,
		clock:     s.clock,
		heartbeat: s.cfg.HeartbeatInterval,
		done:      make(chan struct{}),
	}
	go st.readLoop()
	go st.heartbeatLoop()

	slog.Info("Webcast feed established", "tenant_id", tenantID, "room_id", roomID)
	return st, nil
}

// IsLive reports whether the tenant currently has an open live room,
// without connecting to it. Unknown usernames count as not live.
func (s *Source) IsLive(ctx context.Context, tenantID string) (bool, error) {
	_, err := s.resolveRoom(ctx, tenantID)
	switch {
	case errors.Is(err, domain.ErrRoomOffline), errors.Is(err, domain.ErrTenantNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (s *Source) resolveRoom(ctx context.Context, tenantID string) (string, error) {
	endpoint := strings.TrimSuffix(s.cfg.WebBaseURL, "/") + roomPath
	query := url.Values{}
	query.Set("aid", "1988")
	query.Set("sourceType", "54")
	query.Set("uniqueId", tenantID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("resolve room: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve room: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", domain.ErrTenantNotFound
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("resolve room: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Data struct {
			User struct {
				RoomID string `json:"roomId"`
				Status int    `json:"status"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("resolve room: %w", err)
	}

	if payload.Data.User.Status != userStatusLive || payload.Data.User.RoomID == "" {
		return "", domain.ErrRoomOffline
	}
	return payload.Data.User.RoomID, nil
}

// webcastDialURL builds the websocket endpoint for a room. One configured
// base URL serves tests (httptest, http scheme) and production (wss) alike.
func webcastDialURL(base, roomID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("webcast url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("webcast url: unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	query := u.Query()
	query.Set("room_id", roomID)
	u.RawQuery = query.Encode()
	return u.String(), nil
}
