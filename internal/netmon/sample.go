package netmon

import (
	"fmt"
	"time"
)

// Sample is the immutable record of one probe attempt. Quality and its level
// are computed once at construction and never mutated afterwards.
type Sample struct {
	// Timestamp is the time the sample was taken.
	Timestamp time.Time `json:"timestamp"`

	// LatencyMS is the average round-trip latency in milliseconds.
	LatencyMS float64 `json:"latency_ms"`

	// JitterMS is the round-trip jitter in milliseconds.
	JitterMS float64 `json:"jitter_ms"`

	// Success is false when the probe failed or its reading was downgraded
	// as critically implausible.
	Success bool `json:"success"`

	// Quality is the composite score (0 best, 100 worst).
	Quality float64 `json:"quality"`

	// Level is the human-readable quality level for Quality.
	Level QualityLevel `json:"level"`

	// Packets is the packet count the probe ran with.
	Packets int `json:"packets"`

	// PacketIntervalMS is the inter-packet interval the probe ran with.
	PacketIntervalMS float64 `json:"packet_interval_ms"`
}

// String renders the human-readable report line for the sample.
func (s Sample) String() string {
	if !s.Success {
		return "[Connection unavailable]"
	}
	return fmt.Sprintf("[P:%d PI:%.1fms] L:%.1fms J:%.1fms Q:%.1f (%s)",
		s.Packets, s.PacketIntervalMS, s.LatencyMS, s.JitterMS, s.Quality, s.Level)
}
