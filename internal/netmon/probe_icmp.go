package netmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const (
	// 64 bytes - 8 byte ICMP header
	icmpPacketSize = 56
)

// ICMPProber probes the target with privileged ICMP echo requests using an
// in-process pinger. It requires raw-socket access.
type ICMPProber struct {
	log    *slog.Logger
	target string
	ip     net.IP
}

// NewICMPProber resolves the target once up front so that an unreachable
// resolver or bogus address fails at startup rather than on the first probe.
func NewICMPProber(log *slog.Logger, target string) (*ICMPProber, error) {
	if log == nil {
		return nil, fmt.Errorf("log is nil")
	}
	if target == "" {
		return nil, fmt.Errorf("target is required")
	}
	addr, err := net.ResolveIPAddr("ip", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target %q: %w", target, err)
	}
	return &ICMPProber{
		log:    log,
		target: target,
		ip:     addr.IP,
	}, nil
}

func (p *ICMPProber) Target() string {
	return p.target
}

func (p *ICMPProber) Probe(ctx context.Context, req ProbeRequest) (*ProbeReading, error) {
	pinger, err := probing.NewPinger(p.ip.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create pinger: %w", err)
	}
	defer pinger.Stop()
	pinger.SetPrivileged(true)

	pinger.Count = req.Packets
	pinger.Interval = time.Duration(req.IntervalMS * float64(time.Millisecond))
	pinger.Size = icmpPacketSize

	if err := pinger.RunWithContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ProbeReading{
				FailReason: ProbeFailReasonTimeout,
				FailError:  err,
			}, nil
		}
		return &ProbeReading{
			FailReason: ProbeFailReasonOther,
			FailError:  err,
		}, nil
	}

	stats := pinger.Statistics()
	if icmpStatsNotReady(stats) {
		return &ProbeReading{
			FailReason: ProbeFailReasonNotReady,
			FailError:  errors.New("stats not ready"),
		}, nil
	}
	if stats.PacketsSent > 0 && stats.PacketsRecv == 0 {
		return &ProbeReading{
			FailReason: ProbeFailReasonPacketsLost,
			FailError:  errors.New("no packets received"),
		}, nil
	}

	return &ProbeReading{
		OK:        true,
		LatencyMS: float64(stats.AvgRtt) / float64(time.Millisecond),
		JitterMS:  float64(stats.StdDevRtt) / float64(time.Millisecond),
	}, nil
}

func (p *ICMPProber) Close() {}

// icmpStatsNotReady returns true when the stats still look like the initial
// defaults.
func icmpStatsNotReady(stats *probing.Statistics) bool {
	if stats == nil {
		return true
	}
	return stats.PacketsSent == 0 || (stats.PacketsRecv > 0 && stats.AvgRtt == 0)
}
