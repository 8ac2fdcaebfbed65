package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/vamnguyen/tiktok-live-games/internal/domain"
	"github.com/vamnguyen/tiktok-live-games/internal/logging"
	"github.com/vamnguyen/tiktok-live-games/internal/metrics"
)

// Transport notices sent to a single requesting caller, never broadcast.
const (
	noticeRoomJoined      = "room-joined"
	noticeConnectionError = "connection-error"
)

// notice shares the event envelope field names so overlays reuse one parser.
type notice struct {
	Event    string `json:"event"`
	TenantID string `json:"tenantId"`
	Message  string `json:"message,omitempty"`
}

// NoticeSender is the slice of a transport client the gateway needs to
// answer the one caller a notice belongs to.
type NoticeSender interface {
	ID() string
	Send(data []byte) error
}

type subscriberRegistry interface {
	Increment(tenantID string) int
	Decrement(tenantID string) int
}

type connectionPool interface {
	Connect(ctx context.Context, tenantID string) bool
}

// Gateway translates transport subscriptions into pool and registry calls.
// It keeps its own (client, tenant) bookkeeping so each tracked pair
// decrements the registry exactly once, however unsubscribe and disconnect
// interleave. The same bookkeeping enforces the per-tenant subscriber cap.
type Gateway struct {
	registry subscriberRegistry
	pool     connectionPool
	limit    int // max subscribers per tenant, zero means unlimited

	mu      sync.Mutex
	clients map[string]map[string]struct{} // client ID -> joined tenant set
	joined  map[string]int                 // tenant -> tracked join count
}

// NewGateway creates a gateway driving registry and pool. A positive
// maxSubscribers caps how many clients may watch one tenant at a time.
func NewGateway(registry subscriberRegistry, pool connectionPool, maxSubscribers int) *Gateway {
	return &Gateway{
		registry: registry,
		pool:     pool,
		limit:    maxSubscribers,
		clients:  make(map[string]map[string]struct{}),
		joined:   make(map[string]int),
	}
}

// Admit validates a subscription channel and resolves its tenant. Only
// canonical tenant channels are allowed: a non-canonical spelling would
// split a tenant's isolation group away from its feed.
func (g *Gateway) Admit(channel string) (string, bool) {
	raw, ok := domain.TenantFromChannel(channel)
	if !ok {
		return "", false
	}
	tenantID, err := domain.NormalizeTenantID(raw)
	if err != nil || tenantID != raw {
		return "", false
	}
	return tenantID, true
}

// Joined admits one subscriber into a tenant's isolation group and makes
// sure the tenant's upstream feed is running. The join reply goes to the
// joining client only. Reports false when the tenant is at capacity.
func (g *Gateway) Joined(client NoticeSender, tenantID string) bool {
	added, ok := g.track(client.ID(), tenantID)
	if !ok {
		slog.Warn("Subscriber rejected, tenant at capacity",
			"tenant_id", tenantID, "client_id", client.ID(), "limit", g.limit)
		return false
	}
	if !added {
		return true
	}
	count := g.registry.Increment(tenantID)
	metrics.SubscriberJoinsTotal.Inc()
	slog.Info("Subscriber joined", "tenant_id", tenantID, "client_id", client.ID(), "subscribers", count)

	go func() {
		// One correlation ID per connect attempt; concurrent joiners share
		// the winning dial's logs.
		ctx := logging.WithCorrelationID(context.Background(), logging.NewCorrelationID())
		if g.pool.Connect(ctx, tenantID) {
			g.notify(client, noticeRoomJoined, tenantID, "")
			return
		}
		g.notify(client, noticeConnectionError, tenantID, "could not connect to live stream")
	}()
	return true
}

// Left releases one subscription.
func (g *Gateway) Left(clientID, channel string) {
	tenantID, ok := domain.TenantFromChannel(channel)
	if !ok {
		return
	}
	if g.untrack(clientID, tenantID) {
		count := g.registry.Decrement(tenantID)
		slog.Info("Subscriber left", "tenant_id", tenantID, "client_id", clientID, "subscribers", count)
	}
}

// Gone releases every subscription a dropped client still held.
func (g *Gateway) Gone(clientID string) {
	for _, tenantID := range g.untrackAll(clientID) {
		count := g.registry.Decrement(tenantID)
		slog.Info("Subscriber left", "tenant_id", tenantID, "client_id", clientID, "subscribers", count)
	}
}

// track records a (client, tenant) pair. added reports whether the pair is
// new; ok is false when the tenant already carries the configured maximum.
func (g *Gateway) track(clientID, tenantID string) (added, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tenants, found := g.clients[clientID]
	if found {
		if _, dup := tenants[tenantID]; dup {
			return false, true
		}
	}
	if g.limit > 0 && g.joined[tenantID] >= g.limit {
		return false, false
	}

	if !found {
		tenants = make(map[string]struct{})
		g.clients[clientID] = tenants
	}
	tenants[tenantID] = struct{}{}
	g.joined[tenantID]++
	return true, true
}

func (g *Gateway) untrack(clientID, tenantID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	tenants, ok := g.clients[clientID]
	if !ok {
		return false
	}
	if _, tracked := tenants[tenantID]; !tracked {
		return false
	}
	delete(tenants, tenantID)
	if len(tenants) == 0 {
		delete(g.clients, clientID)
	}
	g.release(tenantID)
	return true
}

func (g *Gateway) untrackAll(clientID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	tenants := g.clients[clientID]
	delete(g.clients, clientID)

	out := make([]string, 0, len(tenants))
	for tenantID := range tenants {
		g.release(tenantID)
		out = append(out, tenantID)
	}
	return out
}

// release frees one capacity slot. Must be called with mu held.
func (g *Gateway) release(tenantID string) {
	if count := g.joined[tenantID]; count > 1 {
		g.joined[tenantID] = count - 1
	} else {
		delete(g.joined, tenantID)
	}
}

func (g *Gateway) notify(client NoticeSender, event, tenantID, message string) {
	data, err := json.Marshal(notice{Event: event, TenantID: tenantID, Message: message})
	if err != nil {
		return
	}
	if err := client.Send(data); err != nil {
		slog.Debug("Failed to send notice", "client_id", client.ID(), "event", event, "error", err)
	}
}
