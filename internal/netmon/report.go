package netmon

import (
	"log/slog"
	"time"

	influxdb2api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const influxTableProbe = "linkpulse_probe"

// Reporter surfaces completed samples and failure-streak events as
// human-readable log lines, and optionally exports them to InfluxDB when a
// write API is configured (nil skips export).
type Reporter struct {
	log       *slog.Logger
	target    string
	influxAPI influxdb2api.WriteAPI
}

func NewReporter(log *slog.Logger, target string, influxAPI influxdb2api.WriteAPI) *Reporter {
	return &Reporter{
		log:       log,
		target:    target,
		influxAPI: influxAPI,
	}
}

// Sample reports one completed probe. Advisory output; not part of the
// core's contract.
func (r *Reporter) Sample(s Sample) {
	r.log.Info("monitor: "+s.String(),
		"target", r.target,
		"latencyMS", s.LatencyMS,
		"jitterMS", s.JitterMS,
		"quality", s.Quality,
		"level", string(s.Level),
	)

	if r.influxAPI == nil {
		return
	}
	tags := map[string]string{
		"target": r.target,
		"level":  string(s.Level),
	}
	fields := map[string]any{
		"probe_ok":           s.Success,
		"latency_ms":         s.LatencyMS,
		"jitter_ms":          s.JitterMS,
		"quality":            s.Quality,
		"packets":            s.Packets,
		"packet_interval_ms": s.PacketIntervalMS,
	}
	r.influxAPI.WritePoint(write.NewPoint(influxTableProbe, tags, fields, s.Timestamp))
}

// ConnectivityLost reports a consecutive-failure streak and the backoff
// delay about to be applied.
func (r *Reporter) ConnectivityLost(ts time.Time, failures int, delay time.Duration) {
	r.log.Warn("monitor: [Connection unavailable]",
		"target", r.target,
		"consecutiveFailures", failures,
		"backoffDelay", delay,
	)

	if r.influxAPI == nil {
		return
	}
	tags := map[string]string{"target": r.target}
	fields := map[string]any{
		"probe_ok":             false,
		"consecutive_failures": failures,
	}
	r.influxAPI.WritePoint(write.NewPoint(influxTableProbe, tags, fields, ts))
}
