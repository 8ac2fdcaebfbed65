package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vamnguyen/tiktok-live-games/internal/metrics"
)

// Janitor periodically reclaims upstream connections nobody is watching.
// It only reads registry counts and pool snapshots; all teardown funnels
// through Pool.Disconnect.
type Janitor struct {
	pool     *Pool
	registry *SubscriberRegistry
	clock    clockwork.Clock
	period   time.Duration
	idle     time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewJanitor creates a janitor sweeping every period and evicting
// connections unwatched and inactive for longer than idle.
func NewJanitor(pool *Pool, registry *SubscriberRegistry, clock clockwork.Clock, period, idle time.Duration) *Janitor {
	return &Janitor{
		pool:     pool,
		registry: registry,
		clock:    clock,
		period:   period,
		idle:     idle,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop. Call Stop to halt it.
func (j *Janitor) Start() {
	ticker := j.clock.NewTicker(j.period)
	go func() {
		for {
			select {
			case <-ticker.Chan():
				j.sweep()
			case <-j.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
	slog.Info("Janitor started", "period", j.period.String(), "idle_threshold", j.idle.String())
}

// Stop halts the sweep loop. Safe to call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopCh)
	})
}

// sweep evicts every active connection that is both unwatched and idle
// past the threshold. The zero-subscriber guard is strict: a watched
// tenant is never evicted no matter how long it has been quiet.
func (j *Janitor) sweep() {
	start := j.clock.Now()
	defer func() {
		metrics.JanitorSweepsTotal.Inc()
		metrics.JanitorSweepDuration.Observe(j.clock.Since(start).Seconds())
	}()

	now := j.clock.Now()
	evicted := 0
	for _, info := range j.pool.Snapshot() {
		if info.State != StateActive {
			continue
		}
		if j.registry.Count(info.TenantID) > 0 {
			continue
		}
		idleFor := now.Sub(info.LastActivity)
		if idleFor <= j.idle {
			continue
		}

		slog.Info("Evicting idle upstream connection",
			"tenant_id", info.TenantID,
			"idle_for", idleFor.String())
		j.pool.Disconnect(info.TenantID)
		evicted++
	}

	if evicted > 0 {
		metrics.JanitorEvictionsTotal.Add(float64(evicted))
	}
}
