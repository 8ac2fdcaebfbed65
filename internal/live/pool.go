package live

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/vamnguyen/tiktok-live-games/internal/domain"
	"github.com/vamnguyen/tiktok-live-games/internal/metrics"
	"github.com/vamnguyen/tiktok-live-games/internal/normalize"
	"golang.org/x/sync/singleflight"
)

// ConnState describes where a pooled connection is in its lifecycle.
type ConnState string

const (
	StateConnecting ConnState = "connecting"
	StateActive     ConnState = "active"
	StateClosed     ConnState = "closed"
)

// EventSink receives the canonical events fanned out for a tenant.
type EventSink interface {
	Broadcast(tenantID string, event domain.Event)
}

// tenantConn is the pool's record of one upstream feed. state, stream and
// cancelled are guarded by Pool.mu. The activity fields have their own
// lock so event callbacks never contend with connect and disconnect paths.
type tenantConn struct {
	tenantID string

	state     ConnState
	stream    domain.LiveStream
	cancelled bool

	activityMu   sync.Mutex
	lastActivity time.Time
	roomID       string
}

func (c *tenantConn) touch(now time.Time) {
	c.activityMu.Lock()
	c.lastActivity = now
	c.activityMu.Unlock()
}

func (c *tenantConn) lastSeen() time.Time {
	c.activityMu.Lock()
	defer c.activityMu.Unlock()
	return c.lastActivity
}

func (c *tenantConn) setRoom(roomID string) {
	c.activityMu.Lock()
	c.roomID = roomID
	c.activityMu.Unlock()
}

func (c *tenantConn) room() string {
	c.activityMu.Lock()
	defer c.activityMu.Unlock()
	return c.roomID
}

// ConnectionInfo is a read-only view of one pooled connection.
type ConnectionInfo struct {
	TenantID     string    `json:"tenantId"`
	State        ConnState `json:"state"`
	RoomID       string    `json:"roomId,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
}

// Pool owns every upstream connection, at most one per tenant. It is the
// sole writer of connection entries: upstream callbacks, the janitor and
// the realtime gateway all mutate pool state through its methods only.
type Pool struct {
	source         domain.LiveSource
	norm           *normalize.Normalizer
	sink           EventSink
	clock          clockwork.Clock
	connectTimeout time.Duration
	breaker        circuitbreaker.CircuitBreaker[any]

	mu     sync.Mutex
	conns  map[string]*tenantConn
	closed bool

	dialGroup singleflight.Group
}

// NewPool creates a pool dialing upstream feeds through source.
// connectTimeout bounds each handshake.
func NewPool(source domain.LiveSource, norm *normalize.Normalizer, sink EventSink, clock clockwork.Clock, connectTimeout time.Duration) *Pool {
	return &Pool{
		source:         source,
		norm:           norm,
		sink:           sink,
		clock:          clock,
		connectTimeout: connectTimeout,
		breaker:        newDialBreaker(),
		conns:          make(map[string]*tenantConn),
	}
}

// Connect ensures an upstream feed exists for the tenant and reports
// whether one is in place when it returns. An active entry is reused with
// its activity clock refreshed. Concurrent calls for the same unseen
// tenant collapse onto a single handshake and all observe its result.
func (p *Pool) Connect(ctx context.Context, tenantID string) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	if conn, ok := p.conns[tenantID]; ok && conn.state == StateActive {
		conn.touch(p.clock.Now())
		p.mu.Unlock()
		metrics.UpstreamConnectsTotal.WithLabelValues("reused").Inc()
		return true
	}
	p.mu.Unlock()

	connected, _, _ := p.dialGroup.Do(tenantID, func() (any, error) {
		return p.dial(ctx, tenantID), nil
	})
	return connected.(bool)
}

func (p *Pool) dial(ctx context.Context, tenantID string) bool {
	conn := &tenantConn{
		tenantID:     tenantID,
		state:        StateConnecting,
		lastActivity: p.clock.Now(),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	if existing, ok := p.conns[tenantID]; ok {
		// lost the race against a dial that just finished
		existing.touch(p.clock.Now())
		p.mu.Unlock()
		metrics.UpstreamConnectsTotal.WithLabelValues("reused").Inc()
		return true
	}
	// The entry goes in before the handshake so a concurrent Disconnect
	// has something to cancel.
	p.conns[tenantID] = conn
	p.syncActiveGauge()
	p.mu.Unlock()

	start := p.clock.Now()
	stream, err := p.connectUpstream(ctx, tenantID, conn)
	metrics.UpstreamConnectDuration.Observe(p.clock.Since(start).Seconds())

	p.mu.Lock()
	if err != nil {
		// no orphaned Connecting entries
		if p.conns[tenantID] == conn {
			delete(p.conns, tenantID)
		}
		conn.state = StateClosed
		p.syncActiveGauge()
		p.mu.Unlock()
		slog.WarnContext(ctx, "Upstream connect failed", "tenant_id", tenantID, "error", err)
		metrics.UpstreamConnectsTotal.WithLabelValues("failed").Inc()
		return false
	}
	if conn.cancelled || p.conns[tenantID] != conn {
		// a disconnect raced the handshake and wins: undo the feed that
		// was just established
		if p.conns[tenantID] == conn {
			delete(p.conns, tenantID)
		}
		conn.state = StateClosed
		p.syncActiveGauge()
		p.mu.Unlock()
		stream.Disconnect()
		slog.InfoContext(ctx, "Upstream connect cancelled by disconnect", "tenant_id", tenantID)
		metrics.UpstreamConnectsTotal.WithLabelValues("cancelled").Inc()
		return false
	}
	conn.stream = stream
	conn.state = StateActive
	p.syncActiveGauge()
	p.mu.Unlock()

	slog.InfoContext(ctx, "Upstream connected", "tenant_id", tenantID, "room_id", conn.room())
	metrics.UpstreamConnectsTotal.WithLabelValues("connected").Inc()
	return true
}

func (p *Pool) connectUpstream(ctx context.Context, tenantID string, conn *tenantConn) (domain.LiveStream, error) {
	if !p.breaker.TryAcquirePermit() {
		return nil, circuitbreaker.ErrOpen
	}

	// The feed outlives the requesting caller; only the timeout bounds
	// the handshake.
	dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.connectTimeout)
	defer cancel()

	stream, err := p.source.Connect(dialCtx, tenantID, p.handlers(conn))
	if err != nil {
		p.breaker.RecordError(err)
		return nil, err
	}
	p.breaker.RecordSuccess()
	return stream, nil
}

// Disconnect tears down a tenant's upstream feed. Idempotent: unknown
// tenants are a no-op. Safe to call while a Connect for the same tenant is
// still in flight; the in-flight attempt observes the cancellation and
// undoes its own handshake. Teardown never reports an error.
func (p *Pool) Disconnect(tenantID string) {
	p.mu.Lock()
	conn, ok := p.conns[tenantID]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.conns, tenantID)
	conn.cancelled = true
	conn.state = StateClosed
	stream := conn.stream
	p.syncActiveGauge()
	p.mu.Unlock()

	// a later Connect starts fresh instead of joining the doomed flight
	p.dialGroup.Forget(tenantID)

	if stream != nil {
		stream.Disconnect()
	}
	slog.Info("Upstream connection closed", "tenant_id", tenantID)
}

// Touch refreshes a tenant's activity clock if it has a pooled entry.
func (p *Pool) Touch(tenantID string) {
	p.mu.Lock()
	conn, ok := p.conns[tenantID]
	p.mu.Unlock()
	if ok {
		conn.touch(p.clock.Now())
	}
}

// ActiveTenants lists every tenant with a pooled connection, sorted.
func (p *Pool) ActiveTenants() []string {
	p.mu.Lock()
	tenants := make([]string, 0, len(p.conns))
	for tenantID := range p.conns {
		tenants = append(tenants, tenantID)
	}
	p.mu.Unlock()

	slices.Sort(tenants)
	return tenants
}

// Snapshot returns a view of every pooled connection, sorted by tenant.
func (p *Pool) Snapshot() []ConnectionInfo {
	p.mu.Lock()
	infos := make([]ConnectionInfo, 0, len(p.conns))
	for _, conn := range p.conns {
		infos = append(infos, p.infoLocked(conn))
	}
	p.mu.Unlock()

	slices.SortFunc(infos, func(a, b ConnectionInfo) int {
		return strings.Compare(a.TenantID, b.TenantID)
	})
	return infos
}

// Info returns the view of one tenant's connection.
func (p *Pool) Info(tenantID string) (ConnectionInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, ok := p.conns[tenantID]
	if !ok {
		return ConnectionInfo{}, false
	}
	return p.infoLocked(conn), true
}

// infoLocked must be called with p.mu held.
func (p *Pool) infoLocked(conn *tenantConn) ConnectionInfo {
	return ConnectionInfo{
		TenantID:     conn.tenantID,
		State:        conn.state,
		RoomID:       conn.room(),
		LastActivity: conn.lastSeen(),
	}
}

// Close rejects further connects and tears down every pooled connection.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	streams := make([]domain.LiveStream, 0, len(p.conns))
	for _, conn := range p.conns {
		conn.cancelled = true
		conn.state = StateClosed
		if conn.stream != nil {
			streams = append(streams, conn.stream)
		}
	}
	clear(p.conns)
	p.syncActiveGauge()
	p.mu.Unlock()

	for _, stream := range streams {
		stream.Disconnect()
	}
	slog.Info("Connection pool closed", "connections", len(streams))
}

// Ready reports whether the pool still accepts connects. Serves as the
// readiness probe; a closed pool means the process is draining.
func (p *Pool) Ready(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return domain.ErrPoolClosed
	}
	return nil
}

func (p *Pool) handlers(conn *tenantConn) domain.LiveHandlers {
	return domain.LiveHandlers{
		Event:        func(raw domain.RawEvent) { p.onRawEvent(conn, raw) },
		Connected:    func(roomID string) { p.onConnected(conn, roomID) },
		Disconnected: func() { p.onDisconnected(conn) },
		Error:        func(err error) { p.onError(conn, err) },
	}
}

func (p *Pool) onRawEvent(conn *tenantConn, raw domain.RawEvent) {
	conn.touch(p.clock.Now())
	metrics.UpstreamEventsTotal.WithLabelValues(string(raw.Type)).Inc()
	for _, event := range p.norm.FromRaw(conn.tenantID, raw) {
		p.sink.Broadcast(conn.tenantID, event)
	}
}

func (p *Pool) onConnected(conn *tenantConn, roomID string) {
	conn.touch(p.clock.Now())
	conn.setRoom(roomID)
	p.sink.Broadcast(conn.tenantID, p.norm.Connected(conn.tenantID, roomID))
}

// onDisconnected handles upstream-initiated teardown: subscribers are
// told, then the entry goes away.
func (p *Pool) onDisconnected(conn *tenantConn) {
	p.sink.Broadcast(conn.tenantID, p.norm.Disconnected(conn.tenantID))
	p.removeIfCurrent(conn)
	slog.Info("Upstream disconnected", "tenant_id", conn.tenantID)
}

// onError surfaces a non-fatal upstream error. The connection stays
// pooled; only a disconnected signal or an explicit Disconnect removes it.
func (p *Pool) onError(conn *tenantConn, err error) {
	conn.touch(p.clock.Now())
	metrics.UpstreamErrorsTotal.Inc()
	slog.Warn("Upstream error", "tenant_id", conn.tenantID, "error", err)
	p.sink.Broadcast(conn.tenantID, p.norm.Error(conn.tenantID, err))
}

// removeIfCurrent drops conn only while it is still the registered entry
// for its tenant, so a stale callback cannot evict a newer connection.
func (p *Pool) removeIfCurrent(conn *tenantConn) {
	p.mu.Lock()
	if p.conns[conn.tenantID] == conn {
		delete(p.conns, conn.tenantID)
		conn.state = StateClosed
		p.syncActiveGauge()
	}
	p.mu.Unlock()
}

// syncActiveGauge must be called with p.mu held.
func (p *Pool) syncActiveGauge() {
	metrics.UpstreamConnectionsActive.Set(float64(len(p.conns)))
}
