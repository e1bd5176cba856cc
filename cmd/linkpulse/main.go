package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/linkpulse/linkpulse/internal/config"
	"github.com/linkpulse/linkpulse/internal/metrics"
	"github.com/linkpulse/linkpulse/internal/netmon"

	_ "net/http/pprof"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultMetricsAddr = ":8080"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	showVersionFlag := flag.Bool("version", false, "show version and exit")
	verboseFlag := flag.Bool("verbose", false, "verbose mode - show debug logs")
	enablePprofFlag := flag.Bool("enable-pprof", false, "enable pprof server")
	configPathFlag := flag.String("config", "", "path to the YAML configuration document (defaults used when empty)")
	targetFlag := flag.String("target", "", "override the configured target address")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")

	flag.Parse()

	if *showVersionFlag {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		os.Exit(0)
	}

	log := newLogger(*verboseFlag)

	// Load .env file if it exists; carries the InfluxDB credentials.
	_ = godotenv.Load()

	// Start pprof server
	if *enablePprofFlag {
		go func() {
			log.Info("starting pprof server", "address", "localhost:6060")
			err := http.ListenAndServe("localhost:6060", nil)
			if err != nil {
				log.Error("failed to start pprof server", "error", err)
			}
		}()
	}

	cfg := config.Default()
	if *configPathFlag != "" {
		var err error
		cfg, err = config.Load(*configPathFlag)
		if err != nil {
			log.Error("failed to load config", "path", *configPathFlag, "error", err)
			return err
		}
	}
	if *targetFlag != "" {
		cfg.Target.Address = *targetFlag
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Set up prometheus metrics server if enabled.
	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("Failed to start prometheus metrics server listener", "error", err)
				os.Exit(1)
			}
			log.Info("Prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("Failed to start prometheus metrics server", "error", err)
				os.Exit(1)
			}
		}()
	}

	clock := clockwork.NewRealClock()

	// The prober is resolved at startup; an unavailable probe primitive is
	// the one unrecoverable condition in the whole design.
	var prober netmon.Prober
	var err error
	switch cfg.Probe.Kind {
	case config.ProbeKindExec:
		prober, err = netmon.NewExecProber(log, cfg.Target.Address, cfg.Probe.ExecPath)
	default:
		prober, err = netmon.NewICMPProber(log, cfg.Target.Address)
	}
	if err != nil {
		log.Error("failed to create prober", "error", err)
		return err
	}
	defer prober.Close()

	// InfluxDB configuration.
	influxUrl := os.Getenv("INFLUX_URL")
	influxToken := os.Getenv("INFLUX_TOKEN")
	influxOrg := os.Getenv("INFLUX_ORG")
	influxBucket := os.Getenv("INFLUX_BUCKET")
	influxEnabled := influxUrl != "" && influxToken != "" && influxOrg != "" && influxBucket != ""
	var influxAPI influxdb2api.WriteAPI
	if influxEnabled {
		client := influxdb2.NewClient(influxUrl, influxToken)
		defer client.Close()
		influxAPI = client.WriteAPI(influxOrg, influxBucket)
		defer influxAPI.Flush()
	} else {
		log.Warn("influx api is not configured, skipping sample export")
	}

	controller, err := netmon.NewController(log, &netmon.ControllerConfig{
		Clock:        clock,
		Prober:       prober,
		Scorer:       netmon.NewScorer(cfg.Scoring),
		ProbeTimeout: cfg.Probe.Timeout(),
		Packets:      cfg.Probe.Packets,
		Interval:     cfg.Probe.Interval,
		Critical:     cfg.Thresholds.Critical,
		Cutoffs:      cfg.Thresholds.Quality,
	})
	if err != nil {
		log.Error("failed to create controller", "error", err)
		return err
	}

	window, err := netmon.NewWindow(log, &netmon.WindowConfig{
		Clock:       clock,
		Duration:    cfg.Window.Duration(),
		TargetTests: cfg.Window.TargetTests,
		MinTests:    cfg.Window.MinTests,
		MaxTests:    cfg.Window.MaxTests,
		MaxSamples:  cfg.Window.MaxSamples,
		Stability:   cfg.Thresholds.Stability,
	})
	if err != nil {
		log.Error("failed to create window", "error", err)
		return err
	}

	reporter := netmon.NewReporter(log, cfg.Target.Address, influxAPI)

	monitor, err := netmon.NewMonitor(log, &netmon.MonitorConfig{
		Clock:      clock,
		Controller: controller,
		Window:     window,
		Reporter:   reporter,
	})
	if err != nil {
		log.Error("failed to create monitor", "error", err)
		return err
	}

	if err := monitor.Run(ctx); err != nil {
		log.Error("monitor: error", "error", err)
		return err
	}
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(formatRFC3339Millis(t))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	base := t.Format("2006-01-02T15:04:05")
	ms := t.Nanosecond() / 1_000_000
	return fmt.Sprintf("%s.%03dZ", base, ms)
}
