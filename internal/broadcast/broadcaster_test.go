package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vamnguyen/tiktok-live-games/internal/domain"
)

// mockPublisher records published payloads per channel.
type mockPublisher struct {
	mu       sync.Mutex
	failWith error
	byChan   map[string][][]byte
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{byChan: make(map[string][][]byte)}
}

func (m *mockPublisher) Publish(channel string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.byChan[channel] = append(m.byChan[channel], data)
	return nil
}

func (m *mockPublisher) published(channel string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byChan[channel]
}

func (m *mockPublisher) channels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.byChan))
	for ch := range m.byChan {
		out = append(out, ch)
	}
	return out
}

func chatEvent(tenantID, comment string) domain.Event {
	return domain.Event{
		Kind:      domain.KindChat,
		TenantID:  tenantID,
		User:      domain.User{ID: "u1", DisplayName: "Viewer"},
		Timestamp: time.Now(),
		Payload:   domain.ChatPayload{Comment: comment},
	}
}

func TestBroadcast_PublishesToTenantChannel(t *testing.T) {
	publisher := newMockPublisher()
	b := New(publisher)

	b.Broadcast("alice", chatEvent("alice", "hello"))

	require.Len(t, publisher.published("tiktok:alice"), 1)
}

func TestBroadcast_EnvelopeShape(t *testing.T) {
	publisher := newMockPublisher()
	b := New(publisher)

	event := domain.Event{
		Kind:      domain.KindGift,
		TenantID:  "alice",
		User:      domain.User{ID: "u2", DisplayName: "Fan", AvatarURL: "http://img"},
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Payload:   domain.GiftPayload{Name: "Lion", Value: 150, Class: domain.GiftLarge, RepeatCount: 1},
	}
	b.Broadcast("alice", event)

	payloads := publisher.published("tiktok:alice")
	require.Len(t, payloads, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payloads[0], &decoded))

	assert.Equal(t, "tiktok_gift", decoded["event"])
	assert.Equal(t, "alice", decoded["tenantId"])

	user := decoded["user"].(map[string]any)
	assert.Equal(t, "u2", user["id"])
	assert.Equal(t, "Fan", user["displayName"])

	data := decoded["data"].(map[string]any)
	assert.Equal(t, "Lion", data["giftName"])
	assert.Equal(t, float64(150), data["giftValue"])
	assert.Equal(t, "large", data["giftType"])
	assert.Equal(t, float64(1), data["repeatCount"])
}

func TestBroadcast_OmitsUserWhenAbsent(t *testing.T) {
	publisher := newMockPublisher()
	b := New(publisher)

	b.Broadcast("alice", domain.Event{
		Kind:      domain.KindDisconnected,
		TenantID:  "alice",
		Timestamp: time.Now(),
		Payload:   domain.DisconnectedPayload{},
	})

	payloads := publisher.published("tiktok:alice")
	require.Len(t, payloads, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payloads[0], &decoded))
	assert.NotContains(t, decoded, "user")
}

func TestBroadcast_NeverCrossesTenants(t *testing.T) {
	publisher := newMockPublisher()
	b := New(publisher)

	b.Broadcast("alice", chatEvent("alice", "for alice"))
	b.Broadcast("bob", chatEvent("bob", "for bob"))
	b.Broadcast("alice", chatEvent("alice", "also alice"))

	assert.Len(t, publisher.published("tiktok:alice"), 2)
	assert.Len(t, publisher.published("tiktok:bob"), 1)
	assert.ElementsMatch(t, []string{"tiktok:alice", "tiktok:bob"}, publisher.channels())
}

func TestBroadcast_DropsMismatchedTenantTag(t *testing.T) {
	publisher := newMockPublisher()
	b := New(publisher)

	// an event tagged bob must never reach alice's channel
	b.Broadcast("alice", chatEvent("bob", "smuggled"))

	assert.Empty(t, publisher.channels())
}

func TestBroadcast_PublishErrorIsSwallowed(t *testing.T) {
	publisher := newMockPublisher()
	publisher.failWith = errors.New("node down")
	b := New(publisher)

	b.Broadcast("alice", chatEvent("alice", "hello"))

	assert.Empty(t, publisher.channels())
}

func TestBroadcast_PreservesOrderPerTenant(t *testing.T) {
	publisher := newMockPublisher()
	b := New(publisher)

	for _, comment := range []string{"one", "two", "three"} {
		b.Broadcast("alice", chatEvent("alice", comment))
	}

	payloads := publisher.published("tiktok:alice")
	require.Len(t, payloads, 3)
	for i, want := range []string{"one", "two", "three"} {
		var decoded struct {
			Data struct {
				Comment string `json:"comment"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(payloads[i], &decoded))
		assert.Equal(t, want, decoded.Data.Comment)
	}
}
