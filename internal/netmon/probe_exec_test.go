package netmon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkPulse_ExecProber_New(t *testing.T) {
	t.Parallel()

	_, err := NewExecProber(nil, "1.1.1.1", "")
	require.Error(t, err)

	_, err = NewExecProber(testLogger(), "", "")
	require.Error(t, err)

	// A binary that cannot be resolved is a startup failure, not a probe
	// failure.
	_, err = NewExecProber(testLogger(), "1.1.1.1", "linkpulse-no-such-binary")
	require.ErrorContains(t, err, "ping_stats binary not found")

	path := filepath.Join(t.TempDir(), "ping_stats")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	p, err := NewExecProber(testLogger(), "1.1.1.1", path)
	require.NoError(t, err)
	require.Equal(t, "1.1.1.1", p.Target())
	require.Equal(t, path, p.path)
}

func TestLinkPulse_ExecProber_ParseOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  string
		want *ProbeReading
	}{
		{
			name: "both fields present",
			out:  "Sent 5 packets\nAverage Latency 23.5ms\nJitter 1.2ms\n",
			want: &ProbeReading{OK: true, LatencyMS: 23.5, JitterMS: 1.2},
		},
		{
			name: "integer values",
			out:  "Average Latency 20ms Jitter 3ms",
			want: &ProbeReading{OK: true, LatencyMS: 20, JitterMS: 3},
		},
		{
			name: "missing jitter",
			out:  "Average Latency 23.5ms\n",
			want: &ProbeReading{FailReason: ProbeFailReasonParse},
		},
		{
			name: "missing latency",
			out:  "Jitter 1.2ms\n",
			want: &ProbeReading{FailReason: ProbeFailReasonParse},
		},
		{
			name: "empty output",
			out:  "",
			want: &ProbeReading{FailReason: ProbeFailReasonParse},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseExecOutput([]byte(tt.out))
			require.NoError(t, err)
			require.Equal(t, tt.want.OK, got.OK)
			if tt.want.OK {
				require.Equal(t, tt.want.LatencyMS, got.LatencyMS)
				require.Equal(t, tt.want.JitterMS, got.JitterMS)
			} else {
				require.Equal(t, tt.want.FailReason, got.FailReason)
				require.Error(t, got.FailError)
			}
		})
	}
}
