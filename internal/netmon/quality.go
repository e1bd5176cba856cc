package netmon

import (
	"github.com/linkpulse/linkpulse/internal/config"
)

// QualityLevel is the human-readable bucket for a quality score.
type QualityLevel string

const (
	QualityExcellent QualityLevel = "Excellent"
	QualityGood      QualityLevel = "Good"
	QualityFair      QualityLevel = "Fair"
	QualityPoor      QualityLevel = "Poor"
	QualityVeryPoor  QualityLevel = "Very Poor"
)

// Scorer maps a (latency, jitter, success) reading to a quality score in
// [0, 100], 0 best. It is pure and carries only configured constants.
type Scorer struct {
	weights config.WeightsConfig
	limits  config.LimitsConfig
	levels  config.LevelsConfig
}

func NewScorer(cfg config.ScoringConfig) Scorer {
	return Scorer{
		weights: cfg.Weights,
		limits:  cfg.Limits,
		levels:  cfg.Levels,
	}
}

// Score returns 100 for a failed reading. For a successful reading, latency
// and jitter are each normalized against their configured maximum (clamped
// to 1), weight-summed, and scaled to 100. Weights are applied as
// configured; they are not renormalized.
func (s Scorer) Score(latencyMS, jitterMS float64, success bool) float64 {
	if !success {
		return 100
	}
	normLatency := min(latencyMS/s.limits.MaxLatencyMS, 1.0)
	normJitter := min(jitterMS/s.limits.MaxJitterMS, 1.0)
	return (normLatency*s.weights.Latency + normJitter*s.weights.Jitter) * 100
}

// Level buckets a quality score by the configured ascending breakpoints.
// A score exactly at a breakpoint maps to the better level.
func (s Scorer) Level(quality float64) QualityLevel {
	switch {
	case quality <= s.levels.Excellent:
		return QualityExcellent
	case quality <= s.levels.Good:
		return QualityGood
	case quality <= s.levels.Fair:
		return QualityFair
	case quality <= s.levels.Poor:
		return QualityPoor
	default:
		return QualityVeryPoor
	}
}
