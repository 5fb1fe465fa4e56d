package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sprintdeck/sprintdeck-go/internal/observability/metrics"
	"github.com/sprintdeck/sprintdeck-go/internal/observability/statsd"
	"github.com/sprintdeck/sprintdeck-go/internal/ports"
)

const defaultMonitorInterval = 5 * time.Minute

// Monitor periodically revalidates the stored token while a session is
// active. On the first failed validation it invokes the OnInvalid callback
// and stops; the session service owns starting and cancelling it so that at
// most one monitor runs at a time.
type Monitor struct {
	api       ports.AuthAPI
	interval  time.Duration
	logger    *slog.Logger
	metrics   statsd.Sink
	onInvalid func()
}

// MonitorOptions holds the dependencies for creating a Monitor.
type MonitorOptions struct {
	API       ports.AuthAPI
	Interval  time.Duration
	Logger    *slog.Logger
	Metrics   statsd.Sink
	OnInvalid func()
}

// NewMonitor creates a new session monitor with the given options.
func NewMonitor(opts MonitorOptions) (*Monitor, error) {
	if opts.API == nil {
		return nil, errors.New("auth API is required")
	}
	if opts.OnInvalid == nil {
		return nil, errors.New("OnInvalid callback is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultMonitorInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Monitor{
		api:       opts.API,
		interval:  opts.Interval,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		onInvalid: opts.OnInvalid,
	}, nil
}

// Run revalidates the token at the configured interval until the context is
// cancelled or a validation fails. A failed validation fires OnInvalid
// exactly once and ends the run; cancellation, including mid-validation, is
// a clean stop and never fires OnInvalid.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.DebugContext(ctx, "session monitor starting", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.DebugContext(ctx, "session monitor stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			start := time.Now()
			ok := m.api.ValidateToken(ctx)
			elapsed := time.Since(start)

			if ok {
				metrics.EmitMonitorTick(m.metrics, metrics.ResultSuccess, elapsed)
				continue
			}

			// A run cancelled mid-validation reads as false from the API.
			// That is a shutdown, not an invalid token.
			if ctx.Err() != nil {
				m.logger.DebugContext(ctx, "session monitor stopping", "reason", ctx.Err())
				if errors.Is(ctx.Err(), context.Canceled) {
					return nil
				}
				return ctx.Err()
			}

			metrics.EmitMonitorTick(m.metrics, metrics.ResultInvalid, elapsed)
			m.logger.InfoContext(ctx, "session token no longer valid, forcing logout")
			m.onInvalid()
			return nil
		}
	}
}
