package ecg

import (
	"github.com/banshee-data/pulse.report/internal/hrv"
	"github.com/banshee-data/pulse.report/internal/signal"
)

// PipelineResult is the output of the beat-to-HRV pipeline.
type PipelineResult struct {
	FS          float64         `json:"fs"`
	SampleCount int             `json:"sample_count"`
	Events      signal.Events   `json:"events"`
	RR          signal.RRSeries `json:"rr"`
	HRVTime     hrv.TimeMetrics `json:"hrv_time"`
}

// RunPipeline detects beats in w, derives the RR series and computes the
// time-domain metrics.
func RunPipeline(w signal.Waveform, cfg DetectorConfig) PipelineResult {
	return RunPipelineWithEvents(w, DetectWithConfig(w, cfg))
}

// RunPipelineWithEvents skips detection and derives RR and time-domain metrics
// from externally supplied events, such as an annotation file.
func RunPipelineWithEvents(w signal.Waveform, events signal.Events) PipelineResult {
	events = signal.EventsFromIndices(events.Indices)
	rr := signal.RRFromEvents(events, w.FS)
	return PipelineResult{
		FS:          w.FS,
		SampleCount: w.Len(),
		Events:      events,
		RR:          rr,
		HRVTime:     hrv.Time(rr),
	}
}
