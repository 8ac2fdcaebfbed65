package broadcast

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/vamnguyen/tiktok-live-games/internal/domain"
	"github.com/vamnguyen/tiktok-live-games/internal/metrics"
)

// Publisher delivers a marshaled payload to every subscriber of a channel.
type Publisher interface {
	Publish(channel string, data []byte) error
}

// envelope is the wire shape overlays consume. Data carries the
// kind-specific payload under the historical field names.
type envelope struct {
	Event     string         `json:"event"`
	TenantID  string         `json:"tenantId"`
	User      *domain.User   `json:"user,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      domain.Payload `json:"data"`
}

// Broadcaster marshals canonical events and publishes each one to the
// channel of the tenant it is tagged with.
type Broadcaster struct {
	publisher Publisher
}

// New creates a Broadcaster publishing through publisher.
func New(publisher Publisher) *Broadcaster {
	return &Broadcaster{publisher: publisher}
}

// Broadcast delivers event to tenantID's channel only. Events whose tag
// disagrees with the addressed tenant are dropped rather than rerouted.
func (b *Broadcaster) Broadcast(tenantID string, event domain.Event) {
	if event.TenantID != tenantID {
		slog.Error("Dropping event with mismatched tenant tag",
			"tenant_id", tenantID,
			"event_tenant_id", event.TenantID,
			"event", string(event.Kind))
		metrics.BroadcastErrorsTotal.Inc()
		return
	}

	data, err := json.Marshal(envelope{
		Event:     string(event.Kind),
		TenantID:  event.TenantID,
		User:      userOrNil(event.User),
		Timestamp: event.Timestamp,
		Data:      event.Payload,
	})
	if err != nil {
		slog.Error("Failed to marshal event", "tenant_id", tenantID, "event", string(event.Kind), "error", err)
		metrics.BroadcastErrorsTotal.Inc()
		return
	}

	if err := b.publisher.Publish(domain.TenantChannel(tenantID), data); err != nil {
		slog.Warn("Failed to publish event", "tenant_id", tenantID, "event", string(event.Kind), "error", err)
		metrics.BroadcastErrorsTotal.Inc()
		return
	}

	metrics.EventsBroadcastTotal.WithLabelValues(string(event.Kind)).Inc()
}

// userOrNil keeps the user field off the wire for events without an
// originating viewer.
func userOrNil(user domain.User) *domain.User {
	if user == (domain.User{}) {
		return nil
	}
	return &user
}
