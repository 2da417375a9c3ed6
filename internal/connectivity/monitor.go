package connectivity

import (
	"context"
	"log/slog"
	"time"
)

// DefaultProbeTimeout bounds a single health check
const DefaultProbeTimeout = 5 * time.Second

// HealthChecker issues one lightweight health request
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Monitor probes the agent service and records the result in a State
type Monitor struct {
	checker HealthChecker
	state   *State
	timeout time.Duration
	logger  *slog.Logger
}

// NewMonitor creates a monitor writing to state. A zero timeout uses
// DefaultProbeTimeout; a nil logger uses slog.Default().
func NewMonitor(checker HealthChecker, state *State, timeout time.Duration, logger *slog.Logger) *Monitor {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		checker: checker,
		state:   state,
		timeout: timeout,
		logger:  logger,
	}
}

// State returns the shared state the monitor writes to
func (m *Monitor) State() *State {
	return m.state
}

// Probe checks health once. Failure details are logged, not returned.
func (m *Monitor) Probe(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.checker.Health(ctx); err != nil {
		m.logger.Warn("health probe failed", "error", err)
		m.state.Set(Unreachable)
		return Unreachable
	}

	m.logger.Debug("health probe ok")
	m.state.Set(Reachable)
	return Reachable
}

// Watch probes immediately and then every interval until ctx is done.
// A non-positive interval probes once and returns.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration) {
	m.Probe(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
