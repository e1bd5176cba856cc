// Package config defines the linkpulse configuration document.
//
// The document is loaded once at startup and passed down explicitly; no
// component reads configuration from globals.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProbeKind selects the probe primitive implementation.
type ProbeKind string

const (
	ProbeKindICMP ProbeKind = "icmp"
	ProbeKindExec ProbeKind = "exec"
)

type Config struct {
	Target     TargetConfig     `yaml:"target"`
	Probe      ProbeConfig      `yaml:"probe"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Window     WindowConfig     `yaml:"window"`
}

type TargetConfig struct {
	// Address is the host probed for network quality.
	Address string `yaml:"address"`
}

type ProbeConfig struct {
	// Kind selects the probe primitive: "icmp" (in-process privileged
	// pinger) or "exec" (external ping_stats binary).
	Kind ProbeKind `yaml:"kind"`

	// ExecPath is the ping_stats binary for the exec prober. Resolved via
	// PATH when empty.
	ExecPath string `yaml:"exec_path"`

	// TimeoutSeconds bounds a single probe run.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	Packets  PacketsConfig  `yaml:"packets"`
	Interval IntervalConfig `yaml:"interval"`
}

// Timeout returns the probe timeout as a time.Duration.
func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// PacketsConfig bounds the per-probe packet count and its adaptation step.
type PacketsConfig struct {
	Default int `yaml:"default"`
	Step    int `yaml:"step"`
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
}

// IntervalConfig bounds the inter-packet interval in milliseconds.
type IntervalConfig struct {
	DefaultMS float64 `yaml:"default_ms"`
	MinMS     float64 `yaml:"min_ms"`
	MaxMS     float64 `yaml:"max_ms"`
}

type ScoringConfig struct {
	Weights WeightsConfig `yaml:"weights"`
	Limits  LimitsConfig  `yaml:"limits"`
	Levels  LevelsConfig  `yaml:"levels"`
}

// WeightsConfig weighs normalized latency and jitter in the quality score.
// The weights are applied as given; they are expected, but not required,
// to sum to 1.
type WeightsConfig struct {
	Latency float64 `yaml:"latency"`
	Jitter  float64 `yaml:"jitter"`
}

// LimitsConfig caps the normalization range for latency and jitter.
type LimitsConfig struct {
	MaxLatencyMS float64 `yaml:"max_latency_ms"`
	MaxJitterMS  float64 `yaml:"max_jitter_ms"`
}

// LevelsConfig holds the ascending quality-level breakpoints. A score at or
// below a breakpoint maps to that level; above Poor is Very Poor.
type LevelsConfig struct {
	Excellent float64 `yaml:"excellent"`
	Good      float64 `yaml:"good"`
	Fair      float64 `yaml:"fair"`
	Poor      float64 `yaml:"poor"`
}

type ThresholdsConfig struct {
	Critical  CriticalConfig       `yaml:"critical"`
	Quality   QualityCutoffsConfig `yaml:"quality"`
	Stability StabilityConfig      `yaml:"stability"`
}

// CriticalConfig marks readings beyond which a probe is treated as failed
// rather than merely poor; such readings indicate measurement corruption.
type CriticalConfig struct {
	LatencyMS float64 `yaml:"latency_ms"`
	JitterMS  float64 `yaml:"jitter_ms"`
}

// QualityCutoffsConfig drives probe parameter adaptation: quality above Poor
// densifies sampling, quality below Excellent relaxes it.
type QualityCutoffsConfig struct {
	Poor      float64 `yaml:"poor"`
	Excellent float64 `yaml:"excellent"`
}

type StabilityConfig struct {
	// MinSamples is the minimum buffered sample count before the stability
	// estimator reacts; below it the window is assumed stable.
	MinSamples int `yaml:"min_samples"`

	// LatencyVariance and JitterVariance are the reference variances (ms^2)
	// against which observed population variance is normalized.
	LatencyVariance float64 `yaml:"latency_variance"`
	JitterVariance  float64 `yaml:"jitter_variance"`

	// Instability is the stability score below which the test cadence is
	// increased.
	Instability float64 `yaml:"instability"`
}

type WindowConfig struct {
	DurationMinutes int `yaml:"duration_minutes"`
	TargetTests     int `yaml:"target_tests"`
	MinTests        int `yaml:"min_tests"`
	MaxTests        int `yaml:"max_tests"`

	// MaxSamples caps the sample history ring; independent of TargetTests.
	MaxSamples int `yaml:"max_samples"`
}

// Duration returns the window duration as a time.Duration.
func (w WindowConfig) Duration() time.Duration {
	return time.Duration(w.DurationMinutes) * time.Minute
}

// Default returns the configuration used when no document is provided.
func Default() Config {
	return Config{
		Target: TargetConfig{
			Address: "1.1.1.1",
		},
		Probe: ProbeConfig{
			Kind:           ProbeKindICMP,
			TimeoutSeconds: 10,
			Packets: PacketsConfig{
				Default: 5,
				Step:    2,
				Min:     3,
				Max:     20,
			},
			Interval: IntervalConfig{
				DefaultMS: 200,
				MinMS:     50,
				MaxMS:     1000,
			},
		},
		Scoring: ScoringConfig{
			Weights: WeightsConfig{Latency: 0.7, Jitter: 0.3},
			Limits:  LimitsConfig{MaxLatencyMS: 100, MaxJitterMS: 50},
			Levels:  LevelsConfig{Excellent: 10, Good: 20, Fair: 40, Poor: 60},
		},
		Thresholds: ThresholdsConfig{
			Critical: CriticalConfig{LatencyMS: 1000, JitterMS: 500},
			Quality:  QualityCutoffsConfig{Poor: 60, Excellent: 10},
			Stability: StabilityConfig{
				MinSamples:      5,
				LatencyVariance: 100,
				JitterVariance:  25,
				Instability:     0.5,
			},
		},
		Window: WindowConfig{
			DurationMinutes: 5,
			TargetTests:     10,
			MinTests:        5,
			MaxTests:        30,
			MaxSamples:      30,
		},
	}
}

// Load reads a YAML document from path, layered over Default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Target.Address == "" {
		return errors.New("target address is required")
	}
	if c.Probe.Kind != ProbeKindICMP && c.Probe.Kind != ProbeKindExec {
		return fmt.Errorf("unknown probe kind %q", c.Probe.Kind)
	}
	if c.Probe.TimeoutSeconds <= 0 {
		return errors.New("probe timeout must be greater than 0")
	}
	if c.Probe.Packets.Default <= 0 {
		return errors.New("default packet count must be greater than 0")
	}
	if c.Probe.Packets.Step <= 0 {
		return errors.New("packet step must be greater than 0")
	}
	if c.Probe.Packets.Min <= 0 || c.Probe.Packets.Max < c.Probe.Packets.Min {
		return errors.New("packet bounds must satisfy 0 < min <= max")
	}
	if c.Probe.Packets.Default < c.Probe.Packets.Min || c.Probe.Packets.Default > c.Probe.Packets.Max {
		return errors.New("default packet count must be within bounds")
	}
	if c.Probe.Interval.MinMS <= 0 || c.Probe.Interval.MaxMS < c.Probe.Interval.MinMS {
		return errors.New("interval bounds must satisfy 0 < min <= max")
	}
	if c.Probe.Interval.DefaultMS < c.Probe.Interval.MinMS || c.Probe.Interval.DefaultMS > c.Probe.Interval.MaxMS {
		return errors.New("default interval must be within bounds")
	}
	if c.Scoring.Limits.MaxLatencyMS <= 0 {
		return errors.New("max latency limit must be greater than 0")
	}
	if c.Scoring.Limits.MaxJitterMS <= 0 {
		return errors.New("max jitter limit must be greater than 0")
	}
	if l := c.Scoring.Levels; !(l.Excellent <= l.Good && l.Good <= l.Fair && l.Fair <= l.Poor) {
		return errors.New("quality level breakpoints must be ascending")
	}
	if c.Thresholds.Critical.LatencyMS <= 0 || c.Thresholds.Critical.JitterMS <= 0 {
		return errors.New("critical thresholds must be greater than 0")
	}
	if c.Thresholds.Stability.MinSamples <= 0 {
		return errors.New("stability min samples must be greater than 0")
	}
	if c.Thresholds.Stability.LatencyVariance <= 0 || c.Thresholds.Stability.JitterVariance <= 0 {
		return errors.New("stability reference variances must be greater than 0")
	}
	if c.Thresholds.Stability.Instability < 0 || c.Thresholds.Stability.Instability > 1 {
		return errors.New("instability threshold must be within [0, 1]")
	}
	if c.Window.DurationMinutes <= 0 {
		return errors.New("window duration must be greater than 0")
	}
	if c.Window.TargetTests < 2 {
		return errors.New("window target tests must be at least 2")
	}
	if c.Window.MinTests < 2 || c.Window.MaxTests < c.Window.MinTests {
		return errors.New("window test bounds must satisfy 2 <= min <= max")
	}
	if c.Window.TargetTests < c.Window.MinTests || c.Window.TargetTests > c.Window.MaxTests {
		return errors.New("window target tests must be within bounds")
	}
	if c.Window.MaxSamples <= 0 {
		return errors.New("window max samples must be greater than 0")
	}
	if c.Thresholds.Stability.MinSamples > c.Window.MaxSamples {
		return errors.New("stability min samples must not exceed window max samples")
	}
	return nil
}
