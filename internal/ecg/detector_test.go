package ecg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/banshee-data/pulse.report/internal/signal"
	"github.com/banshee-data/pulse.report/internal/testutil"
)

// Allowed distance between a detected beat and the synthetic pulse centre.
// The one-pole high-pass leads the peak by a few samples.
const beatToleranceSamples = 8

func referenceWaveform(opts testutil.ECGOptions) (signal.Waveform, []int) {
	data, beats := testutil.SyntheticECG(testutil.ReferenceRR, opts)
	return signal.NewWaveform(opts.FS, data), beats
}

func assertBeatsNear(t *testing.T, got, want []int, tol int) {
	t.Helper()
	require.Len(t, got, len(want), "got beats %v, want near %v", got, want)
	for i := range want {
		d := got[i] - want[i]
		if d < 0 {
			d = -d
		}
		assert.LessOrEqualf(t, d, tol, "beat %d at %d, expected near %d", i, got[i], want[i])
	}
}

func TestDetect_RecoversSyntheticBeats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts func() testutil.ECGOptions
	}{
		{"default", testutil.DefaultECGOptions},
		{"baseline wander", func() testutil.ECGOptions {
			o := testutil.DefaultECGOptions()
			o.WanderAmp = 0.3
			return o
		}},
		{"low amplitude", func() testutil.ECGOptions {
			o := testutil.DefaultECGOptions()
			o.Amplitude = 0.001
			return o
		}},
		{"short padding", func() testutil.ECGOptions {
			o := testutil.DefaultECGOptions()
			o.LeadS, o.TailS = 0.05, 0.05
			return o
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, truth := referenceWaveform(tt.opts())
			events := Detect(w, 0.25)
			assertBeatsNear(t, events.Indices, truth, beatToleranceSamples)

			rr := signal.RRFromEvents(events, w.FS)
			require.Equal(t, len(truth)-1, rr.Len())
			for i, want := range testutil.ReferenceRR {
				assert.InDelta(t, want, rr.RR[i], 2*beatToleranceSamples/w.FS)
			}
		})
	}
}

func TestDetect_ThresholdScaleRange(t *testing.T) {
	t.Parallel()

	w, truth := referenceWaveform(testutil.DefaultECGOptions())
	for _, scale := range []float64{0.1, 0.6, 5, 50, 1000} {
		cfg := DefaultDetectorConfig()
		cfg.ThresholdScale = scale
		events, strat := detect(w, cfg)
		assert.Equal(t, strategyAdaptive, strat, "scale %g", scale)
		assertBeatsNear(t, events.Indices, truth, beatToleranceSamples)
	}
}

func TestDetect_SortedUniqueInRange(t *testing.T) {
	t.Parallel()

	w, _ := referenceWaveform(testutil.DefaultECGOptions())
	events := Detect(w, 0.3)
	for i, idx := range events.Indices {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, w.Len())
		if i > 0 {
			assert.Greater(t, idx, events.Indices[i-1])
		}
	}
}

func TestDetect_Deterministic(t *testing.T) {
	t.Parallel()

	w, _ := referenceWaveform(testutil.DefaultECGOptions())
	first := Detect(w, 0.25)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, Detect(w, 0.25))
	}
}

func TestDetect_EmptyWaveform(t *testing.T) {
	t.Parallel()

	events, strat := detect(signal.NewWaveform(250, nil), DefaultDetectorConfig())
	assert.Equal(t, strategyNone, strat)
	assert.NotNil(t, events.Indices)
	assert.Empty(t, events.Indices)

	assert.Equal(t, 0, Detect(signal.NewWaveform(250, []float64{}), 0.25).Len())
}

// Not parallel: it swaps the package logger.
func TestDetect_FallbackPolicy(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()

	t.Run("single pulse", func(t *testing.T) {
		o := testutil.DefaultECGOptions()
		o.TailS = 1.0
		data, truth := testutil.SyntheticECG(nil, o)
		w := signal.NewWaveform(o.FS, data)

		events, strat := detect(w, DefaultDetectorConfig())
		assert.Equal(t, strategyFallback, strat)
		assert.Equal(t, truth, events.Indices)
	})

	t.Run("flat signal", func(t *testing.T) {
		flat := make([]float64, 100)
		for i := range flat {
			flat[i] = 1.0
		}
		events, strat := detect(signal.NewWaveform(250, flat), DefaultDetectorConfig())
		assert.Equal(t, strategyFallback, strat)
		assert.Empty(t, events.Indices)
		assert.NotNil(t, events.Indices)
	})

	lines := rec.Lines()
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.True(t, strings.Contains(l, "fallback"), l)
	}
}

// The threshold collapses to zero on a silent recording. The detector still
// requires some envelope energy before it fires, so silence yields no beats
// rather than one per refractory period.
func TestDetectAdaptive_ZeroEnvelopeNeverFires(t *testing.T) {
	flat := make([]float64, 2500)
	for i := range flat {
		flat[i] = 0.7
	}
	for _, tt := range []struct {
		name string
		data []float64
	}{
		{"all zero", make([]float64, 2500)},
		{"constant offset", flat},
	} {
		t.Run(tt.name, func(t *testing.T) {
			w := signal.NewWaveform(250, tt.data)
			_, envelope := Condition(w, DefaultDetectorConfig())
			for i, v := range envelope {
				require.Zero(t, v, "envelope[%d]", i)
			}
			assert.Empty(t, detectAdaptive(w, DefaultDetectorConfig()))
		})
	}
}

func TestDetectNaive(t *testing.T) {
	t.Parallel()

	w, truth := referenceWaveform(testutil.DefaultECGOptions())
	assert.Equal(t, truth, detectNaive(w, 0.25))

	assert.Nil(t, detectNaive(signal.NewWaveform(250, []float64{1, 2}), 0.25))
}

func TestDetectNaive_RespectsMinimumGap(t *testing.T) {
	t.Parallel()

	w, _ := referenceWaveform(testutil.DefaultECGOptions())
	peaks := detectNaive(w, 1.0)
	gap := secondsToSamples(1.0, w.FS)
	for i := 1; i < len(peaks); i++ {
		assert.GreaterOrEqual(t, peaks[i]-peaks[i-1], gap)
	}
	assert.Less(t, len(peaks), 9)
}

func TestLevelTracker(t *testing.T) {
	t.Parallel()

	lt := newLevelTracker(2, 0.5)
	assert.InDelta(t, 1.5, lt.threshold, 1e-12) // noise 1 + 0.5*(2-1)

	lt.observeNoise(9)
	lt.recompute()
	// noise = 0.125*9 + 0.875*1 = 2, level with signal
	assert.InDelta(t, 2, lt.noise, 1e-12)
	assert.InDelta(t, 2, lt.threshold, 1e-12)

	lt.observeSignal(10)
	lt.recompute()
	assert.InDelta(t, 3, lt.signal, 1e-12)
	assert.InDelta(t, 2.5, lt.threshold, 1e-12)
}

func TestStrategyString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "adaptive", strategyAdaptive.String())
	assert.Equal(t, "fallback", strategyFallback.String())
	assert.Equal(t, "none", strategyNone.String())
}

func TestSortUnique(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{1, 3, 7}, sortUnique([]int{7, 3, 3, 1, 7}))
	assert.Empty(t, sortUnique(nil))
}
