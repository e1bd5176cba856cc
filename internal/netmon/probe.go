package netmon

import (
	"context"
	"fmt"
)

type ProbeFailReason string

const (
	ProbeFailReasonPacketsLost ProbeFailReason = "packets-lost"
	ProbeFailReasonNotReady    ProbeFailReason = "not-ready"
	ProbeFailReasonTimeout     ProbeFailReason = "timeout"
	ProbeFailReasonCritical    ProbeFailReason = "critical-reading"
	ProbeFailReasonExec        ProbeFailReason = "exec"
	ProbeFailReasonParse       ProbeFailReason = "parse"
	ProbeFailReasonOther       ProbeFailReason = "other"
)

// ProbeRequest carries the per-probe parameters chosen by the controller.
type ProbeRequest struct {
	Packets    int
	IntervalMS float64
}

// ProbeReading is the raw outcome of one probe run, before quality scoring
// and critical-threshold classification.
type ProbeReading struct {
	OK         bool
	LatencyMS  float64
	JitterMS   float64
	FailReason ProbeFailReason
	FailError  error
}

// Prober is the probe primitive: given per-probe parameters it produces a
// latency/jitter reading or a failure indication.
// NOTE: Probe assumes the caller has configured a timeout context.
type Prober interface {
	Target() string
	Probe(ctx context.Context, req ProbeRequest) (*ProbeReading, error)
	Close()
}

func (r *ProbeReading) String() string {
	if r.OK {
		return fmt.Sprintf("latency: %.2fms, jitter: %.2fms", r.LatencyMS, r.JitterMS)
	}
	return fmt.Sprintf("failed: %s", r.FailReason)
}
