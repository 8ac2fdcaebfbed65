package live

import (
	"sync"

	"github.com/vamnguyen/tiktok-live-games/internal/metrics"
)

// SubscriberRegistry tracks how many downstream clients watch each tenant.
// Counts never go below zero. Entries are created on first Increment and
// persist at zero rather than being deleted, so repeated Decrement calls
// stay harmless.
type SubscriberRegistry struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewSubscriberRegistry creates an empty registry.
func NewSubscriberRegistry() *SubscriberRegistry {
	return &SubscriberRegistry{counts: make(map[string]int)}
}

// Increment raises a tenant's count by one and returns the new count.
func (r *SubscriberRegistry) Increment(tenantID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[tenantID]++
	metrics.SubscribersActive.Inc()
	return r.counts[tenantID]
}

// Decrement lowers a tenant's count by one and returns the new count.
// Decrementing an unknown tenant or one already at zero is a no-op.
func (r *SubscriberRegistry) Decrement(tenantID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count, ok := r.counts[tenantID]
	if !ok || count == 0 {
		return 0
	}
	r.counts[tenantID] = count - 1
	metrics.SubscribersActive.Dec()
	return count - 1
}

// Count returns a tenant's current subscriber count, zero if unknown.
func (r *SubscriberRegistry) Count(tenantID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[tenantID]
}

// Snapshot returns a copy of every tracked tenant count, including the
// entries resting at zero.
func (r *SubscriberRegistry) Snapshot() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]int, len(r.counts))
	for tenantID, count := range r.counts {
		out[tenantID] = count
	}
	return out
}
