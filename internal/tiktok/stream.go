package tiktok

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/vamnguyen/tiktok-live-games/internal/domain"
)

// stream is one established webcast feed. The read loop is the only
// goroutine invoking handlers, which preserves wire order end to end.
type stream struct {
	tenantID  string
	roomID    string
	conn      *websocket.Conn
	handlers  domain.LiveHandlers
	clock     clockwork.Clock
	heartbeat time.Duration

	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{} // closed when the read loop exits
}

// Disconnect closes the feed. Local teardown never surfaces as a
// disconnected callback; that signal is reserved for the far end dropping
// the feed.
func (st *stream) Disconnect() {
	st.closeOnce.Do(func() {
		st.closing.Store(true)
		deadline := time.Now().Add(writeTimeout)
		_ = st.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = st.conn.Close()
	})
}

func (st *stream) readLoop() {
	defer close(st.done)

	if st.handlers.Connected != nil {
		st.handlers.Connected(st.roomID)
	}

	for {
		_, data, err := st.conn.ReadMessage()
		if err != nil {
			if st.closing.Load() {
				return
			}
			slog.Info("Webcast feed dropped", "tenant_id", st.tenantID, "room_id", st.roomID, "error", err)
			_ = st.conn.Close()
			if st.handlers.Disconnected != nil {
				st.handlers.Disconnected()
			}
			return
		}

		raw, ok, err := decodeFrame(data)
		if err != nil {
			if st.handlers.Error != nil {
				st.handlers.Error(err)
			}
			continue
		}
		if ok && st.handlers.Event != nil {
			st.handlers.Event(raw)
		}
	}
}

func (st *stream) heartbeatLoop() {
	ticker := st.clock.NewTicker(st.heartbeat)

	for {
		select {
		case <-ticker.Chan():
			deadline := time.Now().Add(writeTimeout)
			if err := st.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				ticker.Stop()
				return
			}
		case <-st.done:
			ticker.Stop()
			return
		}
	}
}
