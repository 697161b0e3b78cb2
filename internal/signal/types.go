package signal

import "fmt"

// Waveform is a uniformly sampled signal.
type Waveform struct {
	// FS is the sampling rate in Hz. Callers must ensure it is positive.
	FS   float64   `json:"fs"`
	Data []float64 `json:"data"`
}

// NewWaveform wraps samples recorded at fs Hz.
func NewWaveform(fs float64, data []float64) Waveform {
	return Waveform{FS: fs, Data: data}
}

// Len returns the number of samples.
func (w Waveform) Len() int { return len(w.Data) }

// IsEmpty reports whether the waveform has no samples.
func (w Waveform) IsEmpty() bool { return len(w.Data) == 0 }

// Duration returns the recording length in seconds.
func (w Waveform) Duration() float64 {
	if w.FS <= 0 {
		return 0
	}
	return float64(len(w.Data)) / w.FS
}

// Events are point events on a waveform's timeline, stored as sample indices
// (for example R-peak positions).
type Events struct {
	Indices []int `json:"indices"`
}

// EventsFromIndices wraps a list of sample indices.
func EventsFromIndices(indices []int) Events {
	if indices == nil {
		indices = []int{}
	}
	return Events{Indices: indices}
}

// Len returns the number of events.
func (e Events) Len() int { return len(e.Indices) }

// Validate checks that the indices are ascending and fall inside a waveform
// of sampleCount samples, so the derived RR series has no negative intervals.
// Repeated indices are allowed and yield zero intervals.
func (e Events) Validate(sampleCount int) error {
	for i, idx := range e.Indices {
		if idx < 0 || idx >= sampleCount {
			return fmt.Errorf("event %d at sample %d is outside the waveform (0-%d)", i, idx, sampleCount-1)
		}
		if i > 0 && idx < e.Indices[i-1] {
			return fmt.Errorf("events must be in ascending order (event %d)", i)
		}
	}
	return nil
}

// Seconds converts the event indices to onsets in seconds at fs Hz.
func (e Events) Seconds(fs float64) []float64 {
	out := make([]float64, len(e.Indices))
	for i, idx := range e.Indices {
		out[i] = float64(idx) / fs
	}
	return out
}

// RRSeries holds beat-to-beat intervals in seconds.
type RRSeries struct {
	RR []float64 `json:"rr"`
}

// NewRRSeries wraps a list of intervals in seconds.
func NewRRSeries(rr []float64) RRSeries {
	if rr == nil {
		rr = []float64{}
	}
	return RRSeries{RR: rr}
}

// Len returns the number of intervals.
func (r RRSeries) Len() int { return len(r.RR) }

// RRFromEvents derives the interval between each pair of consecutive events.
// The result has one element fewer than events, or none when there are fewer
// than two events.
func RRFromEvents(events Events, fs float64) RRSeries {
	if len(events.Indices) < 2 {
		return NewRRSeries(nil)
	}
	rr := make([]float64, 0, len(events.Indices)-1)
	for i := 1; i < len(events.Indices); i++ {
		rr = append(rr, float64(events.Indices[i]-events.Indices[i-1])/fs)
	}
	return RRSeries{RR: rr}
}
