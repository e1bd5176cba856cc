package netmon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/linkpulse/linkpulse/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// fakeProber is a scriptable probe primitive for tests.
type fakeProber struct {
	target  string
	probeFn func(ctx context.Context, req ProbeRequest) (*ProbeReading, error)

	requests []ProbeRequest
}

func (f *fakeProber) Target() string {
	if f.target == "" {
		return "test-target"
	}
	return f.target
}

func (f *fakeProber) Probe(ctx context.Context, req ProbeRequest) (*ProbeReading, error) {
	f.requests = append(f.requests, req)
	if f.probeFn == nil {
		return &ProbeReading{OK: true, LatencyMS: 20, JitterMS: 2}, nil
	}
	return f.probeFn(ctx, req)
}

func (f *fakeProber) Close() {}

func okReading(latencyMS, jitterMS float64) func(context.Context, ProbeRequest) (*ProbeReading, error) {
	return func(context.Context, ProbeRequest) (*ProbeReading, error) {
		return &ProbeReading{OK: true, LatencyMS: latencyMS, JitterMS: jitterMS}, nil
	}
}

func failReading(reason ProbeFailReason) func(context.Context, ProbeRequest) (*ProbeReading, error) {
	return func(context.Context, ProbeRequest) (*ProbeReading, error) {
		return &ProbeReading{FailReason: reason}, nil
	}
}

func newTestController(t *testing.T, clk clockwork.Clock, prober Prober) *Controller {
	t.Helper()

	c, err := NewController(testLogger(), &ControllerConfig{
		Clock:        clk,
		Prober:       prober,
		Scorer:       testScorer(),
		ProbeTimeout: 10 * time.Second,
		Packets:      config.PacketsConfig{Default: 5, Step: 2, Min: 3, Max: 20},
		Interval:     config.IntervalConfig{DefaultMS: 200, MinMS: 50, MaxMS: 1000},
		Critical:     config.CriticalConfig{LatencyMS: 1000, JitterMS: 500},
		Cutoffs:      config.QualityCutoffsConfig{Poor: 60, Excellent: 10},
	})
	require.NoError(t, err)
	return c
}

func newTestWindow(t *testing.T, clk clockwork.Clock, cfg *WindowConfig) *Window {
	t.Helper()

	if cfg == nil {
		cfg = &WindowConfig{}
	}
	cfg.Clock = clk
	if cfg.Duration == 0 {
		cfg.Duration = 5 * time.Minute
	}
	if cfg.TargetTests == 0 {
		cfg.TargetTests = 10
	}
	if cfg.MinTests == 0 {
		cfg.MinTests = 5
	}
	if cfg.MaxTests == 0 {
		cfg.MaxTests = 30
	}
	if cfg.MaxSamples == 0 {
		cfg.MaxSamples = 30
	}
	if cfg.Stability == (config.StabilityConfig{}) {
		cfg.Stability = config.StabilityConfig{
			MinSamples:      5,
			LatencyVariance: 100,
			JitterVariance:  25,
			Instability:     0.5,
		}
	}
	w, err := NewWindow(testLogger(), cfg)
	require.NoError(t, err)
	return w
}

// recordingReporter captures reported samples and connectivity-lost events.
// The monitor loop runs in its own goroutine during tests, so access is
// guarded.
type lostEvent struct {
	failures int
	delay    time.Duration
}

type recordingReporter struct {
	mu      sync.Mutex
	samples []Sample
	lost    []lostEvent
}

func (r *recordingReporter) Sample(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
}

func (r *recordingReporter) ConnectivityLost(ts time.Time, failures int, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lost = append(r.lost, lostEvent{failures: failures, delay: delay})
}

func (r *recordingReporter) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

func (r *recordingReporter) Lost() []lostEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]lostEvent, len(r.lost))
	copy(out, r.lost)
	return out
}
