package netmon

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/linkpulse/linkpulse/internal/config"
)

func successSample(latencyMS, jitterMS float64) Sample {
	return Sample{Success: true, LatencyMS: latencyMS, JitterMS: jitterMS}
}

func TestLinkPulse_Window_ConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := &WindowConfig{}
	require.Error(t, cfg.Validate())

	cfg.Clock = clockwork.NewFakeClock()
	require.Error(t, cfg.Validate())

	cfg.Duration = 5 * time.Minute
	require.Error(t, cfg.Validate())

	cfg.TargetTests = 10
	require.Error(t, cfg.Validate())

	cfg.MinTests = 5
	cfg.MaxTests = 30
	require.Error(t, cfg.Validate())

	cfg.MaxSamples = 30
	require.Error(t, cfg.Validate())

	cfg.Stability = config.StabilityConfig{MinSamples: 5, LatencyVariance: 100, JitterVariance: 25, Instability: 0.5}
	require.NoError(t, cfg.Validate())
}

func TestLinkPulse_Window_TestIntervalInvariant(t *testing.T) {
	t.Parallel()

	w := newTestWindow(t, clockwork.NewFakeClock(), nil)

	// 10 tests spread over 5 minutes: 300/(10-1) ≈ 33.33s.
	require.InDelta(t, 300.0/9.0, w.TestInterval().Seconds(), 1e-6)

	// A 20% increase lands on 12 targets: 300/11 ≈ 27.27s.
	w.AdjustFrequency(0.2)
	require.Equal(t, 12, w.TargetTests())
	require.InDelta(t, 300.0/11.0, w.TestInterval().Seconds(), 1e-6)
}

func TestLinkPulse_Window_AddSampleAndEviction(t *testing.T) {
	t.Parallel()

	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	w := newTestWindow(t, clk, &WindowConfig{MaxSamples: 3})

	require.True(t, w.LastSampleTime().IsZero())

	for i := 0; i < 5; i++ {
		w.AddSample(successSample(float64(i), 1))
	}
	require.Equal(t, 3, w.samples.Len())
	require.Equal(t, time.Unix(1000, 0), w.LastSampleTime())

	// Oldest evicted first.
	buffered := w.samples.Items()
	require.Equal(t, 2.0, buffered[0].LatencyMS)
	require.Equal(t, 4.0, buffered[2].LatencyMS)
}

func TestLinkPulse_Window_IsComplete(t *testing.T) {
	t.Parallel()

	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	w := newTestWindow(t, clk, nil)

	require.False(t, w.IsComplete())

	clk.Advance(5*time.Minute - time.Second)
	require.False(t, w.IsComplete())

	clk.Advance(time.Second)
	require.True(t, w.IsComplete())
}

func TestLinkPulse_Window_Analyse_InsufficientDataAssumesStable(t *testing.T) {
	t.Parallel()

	w := newTestWindow(t, clockwork.NewFakeClock(), nil)

	require.Equal(t, 1.0, w.Analyse())

	for i := 0; i < 4; i++ {
		w.AddSample(successSample(10, 1))
	}
	require.Equal(t, 1.0, w.Analyse())
}

func TestLinkPulse_Window_Analyse_AllFailedIsWorstStability(t *testing.T) {
	t.Parallel()

	w := newTestWindow(t, clockwork.NewFakeClock(), nil)

	for i := 0; i < 5; i++ {
		w.AddSample(Sample{Success: false})
	}
	require.Equal(t, 0.0, w.Analyse())
}

func TestLinkPulse_Window_Analyse_ZeroVarianceIsPerfectlyStable(t *testing.T) {
	t.Parallel()

	w := newTestWindow(t, clockwork.NewFakeClock(), nil)

	for i := 0; i < 5; i++ {
		w.AddSample(successSample(10, 1))
	}
	require.Equal(t, 1.0, w.Analyse())
}

func TestLinkPulse_Window_Analyse_KnownVariance(t *testing.T) {
	t.Parallel()

	w := newTestWindow(t, clockwork.NewFakeClock(), nil)

	// Latencies {10,20,30,20,20}: population variance 40.
	// Jitters {1,2,3,2,2}: population variance 0.4.
	// Stability = 1 - (40/100 + 0.4/25)/2 = 0.792.
	lat := []float64{10, 20, 30, 20, 20}
	jit := []float64{1, 2, 3, 2, 2}
	for i := range lat {
		w.AddSample(successSample(lat[i], jit[i]))
	}
	require.InDelta(t, 0.792, w.Analyse(), 1e-9)
}

func TestLinkPulse_Window_Analyse_UsesMostRecentSamplesOnly(t *testing.T) {
	t.Parallel()

	w := newTestWindow(t, clockwork.NewFakeClock(), nil)

	// Old noisy samples pushed out of the analysis tail by identical
	// recent ones.
	w.AddSample(successSample(500, 100))
	w.AddSample(successSample(0, 0))
	for i := 0; i < 5; i++ {
		w.AddSample(successSample(10, 1))
	}
	require.Equal(t, 1.0, w.Analyse())
}

func TestLinkPulse_Window_Analyse_FailuresInTailAreFiltered(t *testing.T) {
	t.Parallel()

	w := newTestWindow(t, clockwork.NewFakeClock(), nil)

	for i := 0; i < 3; i++ {
		w.AddSample(successSample(10, 1))
	}
	w.AddSample(Sample{Success: false})
	w.AddSample(successSample(10, 1))
	require.Equal(t, 1.0, w.Analyse())
}

func TestLinkPulse_Window_AdjustFrequency_Bounds(t *testing.T) {
	t.Parallel()

	w := newTestWindow(t, clockwork.NewFakeClock(), nil)

	// Instability keeps increasing the target until the cap.
	for i := 0; i < 20; i++ {
		w.AdjustFrequency(0.0)
	}
	require.Equal(t, 30, w.TargetTests())
	require.InDelta(t, 300.0/29.0, w.TestInterval().Seconds(), 1e-6)

	// Sustained stability floors at the minimum.
	for i := 0; i < 20; i++ {
		w.AdjustFrequency(1.0)
	}
	require.Equal(t, 5, w.TargetTests())
	require.InDelta(t, 300.0/4.0, w.TestInterval().Seconds(), 1e-6)
}

func TestLinkPulse_Window_AdjustFrequency_MidStabilityIsNoOp(t *testing.T) {
	t.Parallel()

	w := newTestWindow(t, clockwork.NewFakeClock(), nil)

	// Between the instability threshold and 0.9 nothing changes.
	w.AdjustFrequency(0.7)
	require.Equal(t, 10, w.TargetTests())
	require.InDelta(t, 300.0/9.0, w.TestInterval().Seconds(), 1e-6)
}

func TestLinkPulse_Window_Reset_PreservesAdaptiveState(t *testing.T) {
	t.Parallel()

	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	w := newTestWindow(t, clk, nil)

	for i := 0; i < 5; i++ {
		w.AddSample(successSample(10, 1))
	}
	w.AdjustFrequency(0.2)
	require.Equal(t, 12, w.TargetTests())

	clk.Advance(6 * time.Minute)
	w.Reset()

	require.Equal(t, 0, w.samples.Len())
	require.True(t, w.LastSampleTime().IsZero())
	require.False(t, w.IsComplete())

	// targetTests and testInterval survive the reset.
	require.Equal(t, 12, w.TargetTests())
	require.InDelta(t, 300.0/11.0, w.TestInterval().Seconds(), 1e-6)
}
