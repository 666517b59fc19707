package store

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Pinger reports backend reachability. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor supervises the registry connection: it probes the backend on a
// fixed interval and exposes the observable connected/disconnected state
// the registry uses to fail fast instead of queuing while the database
// is down.
type Monitor struct {
	pinger    Pinger
	interval  time.Duration
	logger    *zap.Logger
	connected atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMonitor creates a connectivity monitor probing on the given
// interval (5s matches the registry reconnect policy).
func NewMonitor(pinger Pinger, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Monitor{
		pinger:   pinger,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start probes once synchronously so the initial state is accurate, then
// keeps probing in the background until Shutdown.
func (m *Monitor) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)

	m.probe(ctx)

	go m.loop(ctx)

	return nil
}

// Connected reports the state observed by the most recent probe.
func (m *Monitor) Connected() bool {
	return m.connected.Load()
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.pinger.Ping(ctx)
	was := m.connected.Swap(err == nil)

	switch {
	case err != nil && was:
		m.logger.Warn("registry connection lost", zap.Error(err))
	case err == nil && !was:
		m.logger.Info("registry connection established")
	}
}

// Shutdown stops the probe loop.
func (m *Monitor) Shutdown() error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}

	return nil
}
