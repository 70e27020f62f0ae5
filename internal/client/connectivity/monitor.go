// Package connectivity tracks whether the backing store is reachable and
// publishes online/offline transitions.
//
// The state is either pushed by the host (Set) or polled by Run, which
// probes the backend on a ticker. Subscribers only see edges: setting the
// current state again publishes nothing.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/worklog/internal/logging"
	"github.com/dmitrijs2005/worklog/internal/pubsub"
)

// DefaultProbeTimeout bounds a single probe.
const DefaultProbeTimeout = 3 * time.Second

type Monitor struct {
	online  atomic.Bool
	mu      sync.Mutex
	changes pubsub.Subject[bool]

	prober       Prober
	interval     time.Duration
	probeTimeout time.Duration
	log          logging.Logger
}

// NewMonitor returns a Monitor that starts offline. prober may be nil when
// the state is only pushed through Set.
func NewMonitor(prober Prober, interval time.Duration, log logging.Logger) *Monitor {
	return &Monitor{
		prober:       prober,
		interval:     interval,
		probeTimeout: DefaultProbeTimeout,
		log:          log.With("module", "connectivity"),
	}
}

func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// OnChange subscribes fn to transitions. fn runs on the goroutine that
// caused the transition and must not block.
func (m *Monitor) OnChange(fn func(online bool)) (unsubscribe func()) {
	return m.changes.Subscribe(fn)
}

// Set records the current state and notifies subscribers if it changed.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online.Swap(online) == online {
		return
	}
	m.log.Info(context.Background(), "connectivity changed", "online", online)
	m.changes.Publish(online)
}

// Check probes the backend once and records the result.
func (m *Monitor) Check(ctx context.Context) bool {
	if m.prober == nil {
		return m.IsOnline()
	}

	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.prober.Probe(ctx)
	cancel()

	if err != nil {
		m.log.Debug(ctx, "probe failed", "error", err)
	}
	m.Set(err == nil)
	return err == nil
}

// Run probes immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
