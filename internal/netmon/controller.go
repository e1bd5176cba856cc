package netmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/linkpulse/linkpulse/internal/config"
	"github.com/linkpulse/linkpulse/internal/metrics"
)

type ControllerConfig struct {
	Clock  clockwork.Clock
	Prober Prober
	Scorer Scorer

	ProbeTimeout time.Duration
	Packets      config.PacketsConfig
	Interval     config.IntervalConfig
	Critical     config.CriticalConfig
	Cutoffs      config.QualityCutoffsConfig
}

func (c *ControllerConfig) Validate() error {
	if c.Clock == nil {
		return errors.New("clock is required")
	}
	if c.Prober == nil {
		return errors.New("prober is required")
	}
	if c.ProbeTimeout <= 0 {
		return errors.New("probe timeout must be greater than 0")
	}
	if c.Packets.Min <= 0 || c.Packets.Max < c.Packets.Min {
		return errors.New("packet bounds must satisfy 0 < min <= max")
	}
	if c.Packets.Step <= 0 {
		return errors.New("packet step must be greater than 0")
	}
	if c.Interval.MinMS <= 0 || c.Interval.MaxMS < c.Interval.MinMS {
		return errors.New("interval bounds must satisfy 0 < min <= max")
	}
	return nil
}

// Controller owns the per-probe parameters, executes probes through the
// probe primitive, classifies their readings, and adapts its own parameters
// from the latest quality score.
type Controller struct {
	log *slog.Logger
	cfg *ControllerConfig

	packets          int
	packetIntervalMS float64
}

func NewController(log *slog.Logger, cfg *ControllerConfig) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid controller config: %w", err)
	}
	c := &Controller{
		log: log,
		cfg: cfg,

		packets:          cfg.Packets.Default,
		packetIntervalMS: cfg.Interval.DefaultMS,
	}
	metrics.PacketCount.Set(float64(c.packets))
	metrics.PacketInterval.Set(c.packetIntervalMS)
	return c, nil
}

// Target returns the probed address.
func (c *Controller) Target() string { return c.cfg.Prober.Target() }

// Packets returns the current per-probe packet count.
func (c *Controller) Packets() int { return c.packets }

// PacketIntervalMS returns the current inter-packet interval.
func (c *Controller) PacketIntervalMS() float64 { return c.packetIntervalMS }

// ExecuteTest runs one probe with the current parameters and returns a
// Sample. Every failure mode, including an unexpected prober error, is
// recovered locally as a failed Sample; nothing is raised to the caller.
func (c *Controller) ExecuteTest(ctx context.Context) Sample {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	reading, err := c.cfg.Prober.Probe(timeoutCtx, ProbeRequest{
		Packets:    c.packets,
		IntervalMS: c.packetIntervalMS,
	})
	metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.log.Error("controller: probe execution failed", "target", c.cfg.Prober.Target(), "error", err)
		return c.failedSample(ProbeFailReasonOther)
	}
	if reading == nil {
		return c.failedSample(ProbeFailReasonOther)
	}
	if !reading.OK {
		if !errors.Is(reading.FailError, context.DeadlineExceeded) {
			c.log.Debug("controller: probe failed", "target", c.cfg.Prober.Target(), "reason", reading.FailReason, "error", reading.FailError)
		}
		return c.failedSample(reading.FailReason)
	}

	// A reading beyond the critical thresholds signals measurement
	// unreliability, not a merely poor link; treat it like no reading.
	if reading.LatencyMS > c.cfg.Critical.LatencyMS || reading.JitterMS > c.cfg.Critical.JitterMS {
		c.log.Debug("controller: critical reading downgraded to failure",
			"latencyMS", reading.LatencyMS, "jitterMS", reading.JitterMS)
		return c.failedSample(ProbeFailReasonCritical)
	}

	quality := c.cfg.Scorer.Score(reading.LatencyMS, reading.JitterMS, true)
	metrics.Probes.WithLabelValues("success", "").Inc()
	metrics.QualityScore.Set(quality)

	return Sample{
		Timestamp:        c.cfg.Clock.Now(),
		LatencyMS:        reading.LatencyMS,
		JitterMS:         reading.JitterMS,
		Success:          true,
		Quality:          quality,
		Level:            c.cfg.Scorer.Level(quality),
		Packets:          c.packets,
		PacketIntervalMS: c.packetIntervalMS,
	}
}

func (c *Controller) failedSample(reason ProbeFailReason) Sample {
	metrics.Probes.WithLabelValues("failure", string(reason)).Inc()
	quality := c.cfg.Scorer.Score(0, 0, false)
	return Sample{
		Timestamp:        c.cfg.Clock.Now(),
		Success:          false,
		Quality:          quality,
		Level:            c.cfg.Scorer.Level(quality),
		Packets:          c.packets,
		PacketIntervalMS: c.packetIntervalMS,
	}
}

// AdjustParameters re-tunes packet count and inter-packet interval from the
// latest quality score. Failed samples leave the parameters untouched.
// Poor quality warrants denser sampling; a clean link needs less.
func (c *Controller) AdjustParameters(s Sample) {
	if !s.Success {
		return
	}

	prevPackets, prevInterval := c.packets, c.packetIntervalMS

	switch {
	case s.Quality > c.cfg.Cutoffs.Poor:
		c.packets = min(c.packets+c.cfg.Packets.Step, c.cfg.Packets.Max)
		c.packetIntervalMS = max(c.packetIntervalMS*0.8, c.cfg.Interval.MinMS)

	case s.Quality < c.cfg.Cutoffs.Excellent:
		c.packets = max(c.packets-c.cfg.Packets.Step, c.cfg.Packets.Min)
		c.packetIntervalMS = min(c.packetIntervalMS*1.2, c.cfg.Interval.MaxMS)
	}

	if c.packets != prevPackets || c.packetIntervalMS != prevInterval {
		metrics.PacketCount.Set(float64(c.packets))
		metrics.PacketInterval.Set(c.packetIntervalMS)
		c.log.Debug("controller: adjusted probe parameters",
			"quality", s.Quality,
			"packets", fmt.Sprintf("%d->%d", prevPackets, c.packets),
			"packetIntervalMS", fmt.Sprintf("%.1f->%.1f", prevInterval, c.packetIntervalMS),
		)
	}
}
