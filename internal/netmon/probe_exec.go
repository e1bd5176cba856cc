package netmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
)

var (
	execLatencyRe = regexp.MustCompile(`Average Latency (\d+\.?\d*)ms`)
	execJitterRe  = regexp.MustCompile(`Jitter (\d+\.?\d*)ms`)
)

// ExecProber shells out to an external ping_stats binary that prints an
// average-latency and a jitter line, and extracts both via pattern match.
// The binary is run through sudo since it needs raw-socket access.
type ExecProber struct {
	log    *slog.Logger
	target string
	path   string
}

// NewExecProber resolves the binary path up front; a missing binary is the
// one unrecoverable startup condition.
func NewExecProber(log *slog.Logger, target, path string) (*ExecProber, error) {
	if log == nil {
		return nil, fmt.Errorf("log is nil")
	}
	if target == "" {
		return nil, fmt.Errorf("target is required")
	}
	if path == "" {
		path = "ping_stats"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("ping_stats binary not found: %w", err)
	}
	return &ExecProber{
		log:    log,
		target: target,
		path:   resolved,
	}, nil
}

func (p *ExecProber) Target() string {
	return p.target
}

func (p *ExecProber) Probe(ctx context.Context, req ProbeRequest) (*ProbeReading, error) {
	cmd := exec.CommandContext(ctx, "sudo", "-n", p.path,
		p.target,
		strconv.Itoa(req.Packets),
		strconv.FormatFloat(req.IntervalMS, 'f', -1, 64),
	)
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &ProbeReading{
				FailReason: ProbeFailReasonTimeout,
				FailError:  ctx.Err(),
			}, nil
		}
		return &ProbeReading{
			FailReason: ProbeFailReasonExec,
			FailError:  err,
		}, nil
	}
	return parseExecOutput(out)
}

func (p *ExecProber) Close() {}

// parseExecOutput extracts the latency and jitter fields; either missing
// makes the reading a parse failure.
func parseExecOutput(out []byte) (*ProbeReading, error) {
	latencyMatch := execLatencyRe.FindSubmatch(out)
	jitterMatch := execJitterRe.FindSubmatch(out)
	if latencyMatch == nil || jitterMatch == nil {
		return &ProbeReading{
			FailReason: ProbeFailReasonParse,
			FailError:  errors.New("missing latency or jitter field in output"),
		}, nil
	}

	latency, err := strconv.ParseFloat(string(latencyMatch[1]), 64)
	if err != nil {
		return &ProbeReading{
			FailReason: ProbeFailReasonParse,
			FailError:  fmt.Errorf("bad latency field: %w", err),
		}, nil
	}
	jitter, err := strconv.ParseFloat(string(jitterMatch[1]), 64)
	if err != nil {
		return &ProbeReading{
			FailReason: ProbeFailReasonParse,
			FailError:  fmt.Errorf("bad jitter field: %w", err),
		}, nil
	}

	return &ProbeReading{
		OK:        true,
		LatencyMS: latency,
		JitterMS:  jitter,
	}, nil
}
