package netmon

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/linkpulse/linkpulse/internal/config"
	"github.com/linkpulse/linkpulse/internal/metrics"
)

type WindowConfig struct {
	Clock clockwork.Clock

	Duration    time.Duration
	TargetTests int
	MinTests    int
	MaxTests    int
	MaxSamples  int

	Stability config.StabilityConfig
}

func (c *WindowConfig) Validate() error {
	if c.Clock == nil {
		return errors.New("clock is required")
	}
	if c.Duration <= 0 {
		return errors.New("window duration must be greater than 0")
	}
	if c.TargetTests < 2 {
		return errors.New("target tests must be at least 2")
	}
	if c.MinTests < 2 || c.MaxTests < c.MinTests {
		return errors.New("test bounds must satisfy 2 <= min <= max")
	}
	if c.MaxSamples <= 0 {
		return errors.New("max samples must be greater than 0")
	}
	if c.Stability.MinSamples <= 0 {
		return errors.New("stability min samples must be greater than 0")
	}
	if c.Stability.LatencyVariance <= 0 || c.Stability.JitterVariance <= 0 {
		return errors.New("stability reference variances must be greater than 0")
	}
	return nil
}

// Window accumulates a bounded history of recent samples, estimates link
// stability from latency/jitter variance, and re-tunes the global test
// cadence from that estimate.
//
// Reset clears the sample ring and restarts the window clock. The adaptive
// targetTests survives resets: it is long-lived state, not per-window state.
type Window struct {
	log *slog.Logger
	cfg *WindowConfig

	samples        *Ring[Sample]
	startTime      time.Time
	testCount      int
	targetTests    int
	testInterval   time.Duration
	lastSampleTime time.Time
}

func NewWindow(log *slog.Logger, cfg *WindowConfig) (*Window, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid window config: %w", err)
	}
	w := &Window{
		log: log,
		cfg: cfg,

		samples:     NewRing[Sample](cfg.MaxSamples),
		startTime:   cfg.Clock.Now(),
		targetTests: cfg.TargetTests,
	}
	w.recomputeInterval()
	w.log.Info("window: test interval computed",
		"testInterval", w.testInterval,
		"targetTests", w.targetTests,
		"windowDuration", cfg.Duration,
	)
	return w, nil
}

// recomputeInterval maintains the invariant
// testInterval = duration / (targetTests - 1); the -1 accounts for the
// first test landing at the window start.
func (w *Window) recomputeInterval() {
	w.testInterval = w.cfg.Duration / time.Duration(w.targetTests-1)
	metrics.TargetTests.Set(float64(w.targetTests))
	metrics.TestInterval.Set(w.testInterval.Seconds())
}

// Duration returns the configured window duration.
func (w *Window) Duration() time.Duration { return w.cfg.Duration }

// TestInterval returns the current pacing interval between tests.
func (w *Window) TestInterval() time.Duration { return w.testInterval }

// TargetTests returns the current per-window test target.
func (w *Window) TargetTests() int { return w.targetTests }

// LastSampleTime returns the wall-clock time of the most recent sample in
// the current window, or the zero time when none exists.
func (w *Window) LastSampleTime() time.Time { return w.lastSampleTime }

// AddSample appends a sample to the bounded history, evicting the oldest
// past capacity.
func (w *Window) AddSample(s Sample) {
	w.samples.Push(s)
	w.testCount++
	w.lastSampleTime = w.cfg.Clock.Now()
	metrics.SamplesBuffered.Set(float64(w.samples.Len()))
}

// IsComplete reports whether the window's wall-clock duration has elapsed.
func (w *Window) IsComplete() bool {
	return w.cfg.Clock.Now().Sub(w.startTime) >= w.cfg.Duration
}

// Analyse computes a stability score in [0, 1] from the most recent
// samples: 1 means no variance, 0 means total failure. With fewer than the
// configured minimum buffered it returns 1 so that noise is not reacted to.
func (w *Window) Analyse() float64 {
	if w.samples.Len() < w.cfg.Stability.MinSamples {
		return 1.0
	}

	recent := w.samples.Tail(w.cfg.Stability.MinSamples)
	successes := make([]Sample, 0, len(recent))
	for _, s := range recent {
		if s.Success {
			successes = append(successes, s)
		}
	}
	if len(successes) == 0 {
		return 0.0
	}

	varLatency := populationVariance(successes, func(s Sample) float64 { return s.LatencyMS })
	varJitter := populationVariance(successes, func(s Sample) float64 { return s.JitterMS })

	normLatencyVar := min(varLatency/w.cfg.Stability.LatencyVariance, 1.0)
	normJitterVar := min(varJitter/w.cfg.Stability.JitterVariance, 1.0)

	return max(0.0, 1.0-(normLatencyVar+normJitterVar)/2)
}

// AdjustFrequency re-tunes the per-window test target from the stability
// score: instability warrants closer observation, a stable link can be
// sampled less often.
func (w *Window) AdjustFrequency(stability float64) {
	original := w.targetTests

	switch {
	case stability < w.cfg.Stability.Instability:
		w.targetTests = min(int(float64(w.targetTests)*1.2), w.cfg.MaxTests)
	case stability > 0.9:
		w.targetTests = max(int(float64(w.targetTests)*0.8), w.cfg.MinTests)
	}

	if w.targetTests != original {
		w.recomputeInterval()
		w.log.Info("window: adjusted test frequency",
			"targetTests", fmt.Sprintf("%d->%d", original, w.targetTests),
			"testInterval", w.testInterval,
			"stability", fmt.Sprintf("%.2f", stability),
		)
	}
}

// Reset starts a new window. The sample ring is cleared; targetTests and
// testInterval carry over.
func (w *Window) Reset() {
	w.log.Info("window: complete",
		"testsCompleted", w.testCount,
		"targetTests", w.targetTests,
		"windowDuration", w.cfg.Duration,
	)
	w.startTime = w.cfg.Clock.Now()
	w.testCount = 0
	w.lastSampleTime = time.Time{}
	w.samples.Clear()
	metrics.WindowRollovers.Inc()
	metrics.SamplesBuffered.Set(0)
}

func populationVariance(samples []Sample, value func(Sample) float64) float64 {
	mean := 0.0
	for _, s := range samples {
		mean += value(s)
	}
	mean /= float64(len(samples))

	variance := 0.0
	for _, s := range samples {
		d := value(s) - mean
		variance += d * d
	}
	return variance / float64(len(samples))
}
