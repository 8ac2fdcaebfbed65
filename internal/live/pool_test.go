package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vamnguyen/tiktok-live-games/internal/domain"
	"github.com/vamnguyen/tiktok-live-games/internal/normalize"
)

// mockSource implements domain.LiveSource with scripted outcomes.
type mockSource struct {
	mu       sync.Mutex
	dials    int
	failWith error
	handlers map[string]domain.LiveHandlers
	streams  []*mockStream

	gate    chan struct{} // when set, dials block until the gate closes
	started chan struct{} // receives one value per dial that has begun
}

func newMockSource() *mockSource {
	return &mockSource{
		handlers: make(map[string]domain.LiveHandlers),
		started:  make(chan struct{}, 16),
	}
}

func (m *mockSource) Connect(ctx context.Context, tenantID string, handlers domain.LiveHandlers) (domain.LiveStream, error) {
	m.mu.Lock()
	m.dials++
	gate := m.gate
	failWith := m.failWith
	m.mu.Unlock()

	m.started <- struct{}{}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failWith != nil {
		return nil, failWith
	}

	stream := &mockStream{}
	m.mu.Lock()
	m.streams = append(m.streams, stream)
	m.handlers[tenantID] = handlers
	m.mu.Unlock()
	return stream, nil
}

func (m *mockSource) setFail(err error) {
	m.mu.Lock()
	m.failWith = err
	m.mu.Unlock()
}

func (m *mockSource) dialCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

func (m *mockSource) handlersFor(tenantID string) domain.LiveHandlers {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[tenantID]
}

func (m *mockSource) stream(i int) *mockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streams[i]
}

type mockStream struct {
	mu          sync.Mutex
	disconnects int
}

func (s *mockStream) Disconnect() {
	s.mu.Lock()
	s.disconnects++
	s.mu.Unlock()
}

func (s *mockStream) disconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnects
}

// captureSink records broadcasts in arrival order.
type captureSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *captureSink) Broadcast(_ string, event domain.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *captureSink) all() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *captureSink) kinds() []domain.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]domain.Kind, len(c.events))
	for i, event := range c.events {
		kinds[i] = event.Kind
	}
	return kinds
}

func testPool(t *testing.T) (*Pool, *mockSource, *captureSink, *clockwork.FakeClock) {
	t.Helper()

	source := newMockSource()
	sink := &captureSink{}
	clock := clockwork.NewFakeClock()
	pool := NewPool(source, normalize.New(clock), sink, clock, 5*time.Second)
	t.Cleanup(pool.Close)
	return pool, source, sink, clock
}

func TestPool_ConnectEstablishesFeed(t *testing.T) {
	pool, source, _, _ := testPool(t)

	require.True(t, pool.Connect(context.Background(), "alice"))

	assert.Equal(t, 1, source.dialCount())
	info, ok := pool.Info("alice")
	require.True(t, ok)
	assert.Equal(t, StateActive, info.State)
	assert.Equal(t, []string{"alice"}, pool.ActiveTenants())
}

func TestPool_SequentialConnectsReuse(t *testing.T) {
	pool, source, _, _ := testPool(t)

	require.True(t, pool.Connect(context.Background(), "alice"))
	require.True(t, pool.Connect(context.Background(), "alice"))

	assert.Equal(t, 1, source.dialCount())
}

func TestPool_ReuseRefreshesActivity(t *testing.T) {
	pool, _, _, clock := testPool(t)

	require.True(t, pool.Connect(context.Background(), "alice"))
	before, _ := pool.Info("alice")

	clock.Advance(time.Minute)
	require.True(t, pool.Connect(context.Background(), "alice"))

	after, ok := pool.Info("alice")
	require.True(t, ok)
	assert.True(t, after.LastActivity.After(before.LastActivity))
}

func TestPool_ConcurrentConnectsShareOneHandshake(t *testing.T) {
	pool, source, _, _ := testPool(t)
	gate := make(chan struct{})
	source.gate = gate

	results := make(chan bool, 2)
	for range 2 {
		go func() {
			results <- pool.Connect(context.Background(), "alice")
		}()
	}

	// first dial is in flight; give the second caller time to join it
	<-source.started
	time.Sleep(20 * time.Millisecond)
	close(gate)

	assert.True(t, <-results)
	assert.True(t, <-results)
	assert.Equal(t, 1, source.dialCount())
}

func TestPool_FailedConnectLeavesNothingBehind(t *testing.T) {
	pool, source, _, _ := testPool(t)
	source.setFail(errors.New("room offline"))

	assert.False(t, pool.Connect(context.Background(), "alice"))

	_, ok := pool.Info("alice")
	assert.False(t, ok)
	assert.Empty(t, pool.ActiveTenants())
}

func TestPool_FailedConnectCanBeRetried(t *testing.T) {
	pool, source, _, _ := testPool(t)
	source.setFail(errors.New("room offline"))

	assert.False(t, pool.Connect(context.Background(), "alice"))

	source.setFail(nil)
	assert.True(t, pool.Connect(context.Background(), "alice"))
	assert.Equal(t, 2, source.dialCount())
}

func TestPool_DisconnectDuringConnectWins(t *testing.T) {
	pool, source, _, _ := testPool(t)
	gate := make(chan struct{})
	source.gate = gate

	result := make(chan bool, 1)
	go func() {
		result <- pool.Connect(context.Background(), "alice")
	}()

	<-source.started
	info, ok := pool.Info("alice")
	require.True(t, ok)
	assert.Equal(t, StateConnecting, info.State)

	pool.Disconnect("alice")
	close(gate)

	assert.False(t, <-result)
	_, ok = pool.Info("alice")
	assert.False(t, ok)
	// the feed the losing handshake established was torn down again
	assert.Equal(t, 1, source.stream(0).disconnectCount())
	assert.Equal(t, 1, source.dialCount())
}

func TestPool_DisconnectIsIdempotent(t *testing.T) {
	pool, source, _, _ := testPool(t)

	pool.Disconnect("ghost")

	require.True(t, pool.Connect(context.Background(), "alice"))
	pool.Disconnect("alice")
	pool.Disconnect("alice")

	assert.Equal(t, 1, source.stream(0).disconnectCount())
	assert.Empty(t, pool.ActiveTenants())
}

func TestPool_RawEventsFlowNormalizedToSink(t *testing.T) {
	pool, source, sink, _ := testPool(t)
	require.True(t, pool.Connect(context.Background(), "alice"))

	handlers := source.handlersFor("alice")
	handlers.Event(domain.RawEvent{Type: domain.RawChat, Comment: "hello"})
	handlers.Event(domain.RawEvent{Type: domain.RawGift, GiftName: "Rose"})

	assert.Equal(t, []domain.Kind{
		domain.KindChat,
		domain.KindGift,
		domain.KindGiftLegacy,
	}, sink.kinds())
	for _, event := range sink.all() {
		assert.Equal(t, "alice", event.TenantID)
	}
}

func TestPool_EventsRefreshActivity(t *testing.T) {
	pool, source, _, clock := testPool(t)
	require.True(t, pool.Connect(context.Background(), "alice"))
	before, _ := pool.Info("alice")

	clock.Advance(time.Minute)
	source.handlersFor("alice").Event(domain.RawEvent{Type: domain.RawLike, LikeCount: 1})

	after, _ := pool.Info("alice")
	assert.True(t, after.LastActivity.After(before.LastActivity))
}

func TestPool_ConnectedCallbackAnnouncesRoom(t *testing.T) {
	pool, source, sink, _ := testPool(t)
	require.True(t, pool.Connect(context.Background(), "alice"))

	source.handlersFor("alice").Connected("room-42")

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.KindConnected, events[0].Kind)
	assert.Equal(t, domain.ConnectedPayload{RoomID: "room-42"}, events[0].Payload)

	info, _ := pool.Info("alice")
	assert.Equal(t, "room-42", info.RoomID)
}

func TestPool_UpstreamErrorKeepsConnection(t *testing.T) {
	pool, source, sink, _ := testPool(t)
	require.True(t, pool.Connect(context.Background(), "alice"))

	source.handlersFor("alice").Error(errors.New("stream hiccup"))

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.KindError, events[0].Kind)

	info, ok := pool.Info("alice")
	require.True(t, ok)
	assert.Equal(t, StateActive, info.State)
}

func TestPool_UpstreamDisconnectRemovesConnection(t *testing.T) {
	pool, source, sink, _ := testPool(t)
	require.True(t, pool.Connect(context.Background(), "alice"))

	source.handlersFor("alice").Disconnected()

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.KindDisconnected, events[0].Kind)

	_, ok := pool.Info("alice")
	assert.False(t, ok)
}

func TestPool_StaleCallbackCannotEvictReplacement(t *testing.T) {
	pool, source, _, _ := testPool(t)
	require.True(t, pool.Connect(context.Background(), "alice"))
	stale := source.handlersFor("alice")

	pool.Disconnect("alice")
	require.True(t, pool.Connect(context.Background(), "alice"))

	// the old feed's teardown callback arrives late
	stale.Disconnected()

	info, ok := pool.Info("alice")
	require.True(t, ok)
	assert.Equal(t, StateActive, info.State)
}

func TestPool_EventsStayWithTheirTenant(t *testing.T) {
	pool, source, sink, _ := testPool(t)
	require.True(t, pool.Connect(context.Background(), "alice"))
	require.True(t, pool.Connect(context.Background(), "bob"))

	source.handlersFor("alice").Event(domain.RawEvent{Type: domain.RawChat, Comment: "hi"})

	events := sink.all()
	require.NotEmpty(t, events)
	for _, event := range events {
		assert.Equal(t, "alice", event.TenantID)
	}
}

func TestPool_CloseTearsDownEverything(t *testing.T) {
	pool, source, _, _ := testPool(t)
	require.True(t, pool.Connect(context.Background(), "alice"))
	require.True(t, pool.Connect(context.Background(), "bob"))

	pool.Close()

	assert.Empty(t, pool.ActiveTenants())
	assert.Equal(t, 1, source.stream(0).disconnectCount())
	assert.Equal(t, 1, source.stream(1).disconnectCount())
	assert.False(t, pool.Connect(context.Background(), "carol"))
}

func TestPool_TouchRefreshesActivity(t *testing.T) {
	pool, _, _, clock := testPool(t)
	require.True(t, pool.Connect(context.Background(), "alice"))
	before, _ := pool.Info("alice")

	clock.Advance(time.Minute)
	pool.Touch("alice")

	after, _ := pool.Info("alice")
	assert.Equal(t, before.LastActivity.Add(time.Minute), after.LastActivity)
}

func TestPool_TouchUnknownTenantIsNoop(t *testing.T) {
	pool, _, _, _ := testPool(t)

	pool.Touch("ghost")

	assert.Empty(t, pool.ActiveTenants())
}

func TestPool_SnapshotSortedByTenant(t *testing.T) {
	pool, _, _, _ := testPool(t)
	require.True(t, pool.Connect(context.Background(), "zoe"))
	require.True(t, pool.Connect(context.Background(), "alice"))

	snapshot := pool.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "alice", snapshot[0].TenantID)
	assert.Equal(t, "zoe", snapshot[1].TenantID)
}
