package api

import (
	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/ecg"
	"github.com/banshee-data/pulse.report/internal/hrv"
	"github.com/banshee-data/pulse.report/internal/report"
	"github.com/banshee-data/pulse.report/internal/signal"
	"github.com/banshee-data/pulse.report/internal/sqi"
)

// Analysis is one complete pass over a recording: beats, RR, every HRV
// family and the signal-quality grade.
type Analysis struct {
	Source   string
	Pipeline ecg.PipelineResult
	HRV      hrv.Derived
	SQI      sqi.Result
}

// Analyze runs the pipeline on w. Detection is skipped when events is
// non-nil. The CLI and the /api/runs handler share this path.
func Analyze(source string, w signal.Waveform, events *signal.Events, tuning *config.TuningConfig) Analysis {
	return derive(source, w, pipeline(w, events, tuning), tuning)
}

func pipeline(w signal.Waveform, events *signal.Events, tuning *config.TuningConfig) ecg.PipelineResult {
	if events != nil {
		return ecg.RunPipelineWithEvents(w, *events)
	}
	return ecg.RunPipeline(w, tuning.DetectorConfig())
}

// derive fills in the HRV and signal-quality results for a pipeline pass.
func derive(source string, w signal.Waveform, res ecg.PipelineResult, tuning *config.TuningConfig) Analysis {
	return Analysis{
		Source:   source,
		Pipeline: res,
		HRV:      hrv.Derive(res.RR, tuning.GetPSDInterpFS()),
		SQI:      sqi.Evaluate(w, res.RR),
	}
}

// Run converts the analysis to its stored form.
func (a Analysis) Run() db.AnalysisRun {
	return db.AnalysisRun{
		Source:      a.Source,
		FS:          a.Pipeline.FS,
		SampleCount: a.Pipeline.SampleCount,
		BeatCount:   a.Pipeline.Events.Len(),
		RR:          a.Pipeline.RR.RR,
		Time:        a.HRV.Time,
		PSD:         a.HRV.PSD,
		Nonlinear:   a.HRV.Nonlinear,
		SQI:         a.SQI,
	}
}

// Report prepares the analysis for the chart renderers.
func (a Analysis) Report(tuning *config.TuningConfig) report.Analysis {
	out := report.FromDerived(a.Source, a.HRV)
	grade := a.SQI
	out.SQI = &grade
	out.HistogramBins = tuning.GetHistogramBins()
	out.MaxPoints = tuning.GetChartMaxPoints()
	return out
}

// runReport rebuilds a chartable analysis from a stored run. The PSD bins are
// not stored, so the spectrum is recomputed from the RR series.
func runReport(run db.AnalysisRun, tuning *config.TuningConfig) report.Analysis {
	rr := signal.NewRRSeries(run.RR)
	psd := hrv.PSD(rr, tuning.GetPSDInterpFS())
	grade := run.SQI
	return report.Analysis{
		Title:         run.Source,
		RR:            rr,
		Time:          run.Time,
		PSD:           psd,
		Nonlinear:     run.Nonlinear,
		SQI:           &grade,
		HistogramBins: tuning.GetHistogramBins(),
		MaxPoints:     tuning.GetChartMaxPoints(),
	}
}
