package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "linkpulse"

	// Metric names.
	MetricNameBuildInfo       = Namespace + "_build_info"
	MetricNameProbes          = Namespace + "_probes_total"
	MetricNameProbeDuration   = Namespace + "_probe_duration_seconds"
	MetricNameQualityScore    = Namespace + "_quality_score"
	MetricNameStabilityScore  = Namespace + "_stability_score"
	MetricNameTargetTests     = Namespace + "_window_target_tests"
	MetricNameTestInterval    = Namespace + "_test_interval_seconds"
	MetricNamePacketCount     = Namespace + "_probe_packets"
	MetricNamePacketInterval  = Namespace + "_probe_packet_interval_ms"
	MetricNameBackoffEvents   = Namespace + "_backoff_events_total"
	MetricNameWindowRollovers = Namespace + "_window_rollovers_total"
	MetricNameSamplesBuffered = Namespace + "_samples_buffered"

	// Labels.
	LabelVersion = "version"
	LabelCommit  = "commit"
	LabelDate    = "date"
	LabelResult  = "result"
	LabelReason  = "reason"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameBuildInfo,
			Help: "Build information of the linkpulse monitor",
		},
		[]string{LabelVersion, LabelCommit, LabelDate},
	)

	Probes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameProbes,
			Help: "Number of probes executed, by result and failure reason",
		},
		[]string{LabelResult, LabelReason},
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameProbeDuration,
			Help:    "Duration of probe executions in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	QualityScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameQualityScore,
			Help: "Latest quality score (0 best, 100 worst)",
		},
	)

	StabilityScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameStabilityScore,
			Help: "Latest window stability score (0 worst, 1 best)",
		},
	)

	TargetTests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameTargetTests,
			Help: "Current target number of tests per window",
		},
	)

	TestInterval = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameTestInterval,
			Help: "Current interval between tests in seconds",
		},
	)

	PacketCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNamePacketCount,
			Help: "Current per-probe packet count",
		},
	)

	PacketInterval = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNamePacketInterval,
			Help: "Current inter-packet interval in milliseconds",
		},
	)

	BackoffEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameBackoffEvents,
			Help: "Number of connectivity-lost backoff events",
		},
	)

	WindowRollovers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameWindowRollovers,
			Help: "Number of completed measurement windows",
		},
	)

	SamplesBuffered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameSamplesBuffered,
			Help: "Number of samples currently buffered in the window",
		},
	)
)
