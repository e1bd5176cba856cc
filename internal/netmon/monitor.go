package netmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/linkpulse/linkpulse/internal/metrics"
)

const (
	defaultFailureThreshold = 3
	defaultBackoffInitial   = 1 * time.Second
	defaultBackoffMaxSleep  = 30 * time.Second
)

// SampleReporter is the reporting boundary: completed samples and
// failure-streak events are surfaced through it. Advisory, not part of the
// core's contract.
type SampleReporter interface {
	Sample(s Sample)
	ConnectivityLost(ts time.Time, failures int, delay time.Duration)
}

type MonitorConfig struct {
	Clock      clockwork.Clock
	Controller *Controller
	Window     *Window
	Reporter   SampleReporter

	// FailureThreshold is the consecutive-failure count at which the
	// connectivity-lost signal fires; defaulted to 3.
	FailureThreshold int

	// BackoffInitial and BackoffMaxSleep bound the graduated retry delay
	// during sustained outages; defaulted to 1s and 30s.
	BackoffInitial  time.Duration
	BackoffMaxSleep time.Duration
}

func (c *MonitorConfig) Validate() error {
	if c.Clock == nil {
		return errors.New("clock is required")
	}
	if c.Controller == nil {
		return errors.New("controller is required")
	}
	if c.Window == nil {
		return errors.New("window is required")
	}
	if c.Reporter == nil {
		return errors.New("reporter is required")
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.FailureThreshold < 0 {
		return errors.New("failure threshold must be greater than 0")
	}
	if c.BackoffInitial == 0 {
		c.BackoffInitial = defaultBackoffInitial
	}
	if c.BackoffMaxSleep == 0 {
		c.BackoffMaxSleep = defaultBackoffMaxSleep
	}
	if c.BackoffInitial < 0 || c.BackoffMaxSleep < c.BackoffInitial {
		return errors.New("backoff bounds must satisfy 0 < initial <= max")
	}
	return nil
}

// Monitor ties the probe controller and the stability window together: it
// enforces the inter-test pacing derived from the window's cadence, applies
// exponential backoff on consecutive failures, and triggers window rollover.
//
// Probes are issued strictly sequentially; there is exactly one mutator of
// each piece of state, so no locking is needed.
type Monitor struct {
	log *slog.Logger
	cfg *MonitorConfig

	failureCount int
	retryBackoff *backoff.ExponentialBackOff
}

func NewMonitor(log *slog.Logger, cfg *MonitorConfig) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor config: %w", err)
	}
	return &Monitor{
		log: log,
		cfg: cfg,

		retryBackoff: backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(cfg.BackoffInitial),
			backoff.WithMultiplier(2.0),
			backoff.WithMaxInterval(cfg.BackoffMaxSleep),
			backoff.WithRandomizationFactor(0), // deterministic (no jitter)
			backoff.WithMaxElapsedTime(0),      // never give up
		),
	}, nil
}

// Run executes the monitoring loop until ctx is cancelled. Cancellation,
// including one received mid-sleep, produces a clean nil return; all state
// is in-memory and advisory, so no cleanup is required.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor: starting",
		"target", m.cfg.Controller.Target(),
		"windowDuration", m.cfg.Window.Duration(),
		"targetTests", m.cfg.Window.TargetTests(),
		"testInterval", m.cfg.Window.TestInterval(),
	)
	m.retryBackoff.Reset()

	for {
		if !m.waitForNextTest(ctx) {
			m.log.Info("monitor: context done, stopping", "reason", ctx.Err())
			return nil
		}

		sample := m.cfg.Controller.ExecuteTest(ctx)
		if ctx.Err() != nil {
			m.log.Info("monitor: context done, stopping", "reason", ctx.Err())
			return nil
		}

		if !sample.Success {
			m.failureCount++
			if m.failureCount >= m.cfg.FailureThreshold {
				delay := m.retryBackoff.NextBackOff()
				metrics.BackoffEvents.Inc()
				m.cfg.Reporter.ConnectivityLost(m.cfg.Clock.Now(), m.failureCount, delay)
				if !m.sleep(ctx, delay) {
					m.log.Info("monitor: context done, stopping", "reason", ctx.Err())
					return nil
				}
			}
			continue
		}

		m.failureCount = 0
		m.retryBackoff.Reset()

		m.cfg.Window.AddSample(sample)
		m.cfg.Reporter.Sample(sample)
		m.cfg.Controller.AdjustParameters(sample)

		if m.cfg.Window.IsComplete() {
			stability := m.cfg.Window.Analyse()
			metrics.StabilityScore.Set(stability)
			m.cfg.Window.AdjustFrequency(stability)
			m.cfg.Window.Reset()
		}
	}
}

// waitForNextTest enforces the pacing invariant: no probe is issued earlier
// than the window's test interval after the previous sample. The first probe
// of a window runs immediately.
func (m *Monitor) waitForNextTest(ctx context.Context) bool {
	last := m.cfg.Window.LastSampleTime()
	if last.IsZero() {
		return ctx.Err() == nil
	}
	elapsed := m.cfg.Clock.Now().Sub(last)
	if elapsed >= m.cfg.Window.TestInterval() {
		return ctx.Err() == nil
	}
	return m.sleep(ctx, m.cfg.Window.TestInterval()-elapsed)
}

// sleep blocks for d or until ctx is done, reporting whether the full wait
// elapsed.
func (m *Monitor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := m.cfg.Clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
