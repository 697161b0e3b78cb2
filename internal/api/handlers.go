package api

import (
	"fmt"
	"math"
	"net/http"

	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/ecg"
	"github.com/banshee-data/pulse.report/internal/httputil"
	"github.com/banshee-data/pulse.report/internal/hrv"
	"github.com/banshee-data/pulse.report/internal/signal"
	"github.com/banshee-data/pulse.report/internal/sqi"
)

type waveformRequest struct {
	FS   float64   `json:"fs"`
	Data []float64 `json:"data"`
}

func (r waveformRequest) waveform() (signal.Waveform, error) {
	if !(r.FS > 0) || math.IsInf(r.FS, 1) {
		return signal.Waveform{}, fmt.Errorf("fs must be a positive sampling rate, got %g", r.FS)
	}
	return signal.NewWaveform(r.FS, r.Data), nil
}

type detectRequest struct {
	waveformRequest
	MinRRS *float64 `json:"min_rr_s,omitempty"`
}

type pipelineRequest struct {
	waveformRequest
	Config *config.TuningConfig `json:"config,omitempty"`
	Events *signal.Events       `json:"events,omitempty"`
}

type rrRequest struct {
	RR       []float64 `json:"rr"`
	FSInterp *float64  `json:"fs_interp,omitempty"`
}

type sqiRequest struct {
	waveformRequest
	RR []float64 `json:"rr"`
}

// tuningFor merges a request's overrides onto the server defaults.
func (s *Server) tuningFor(override *config.TuningConfig) (*config.TuningConfig, error) {
	merged := s.tuning.Merge(override)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// maxRRIntervals caps the RR series accepted from a request. Sample entropy
// compares every pair of templates.
const maxRRIntervals = 20000

func (s *Server) fsInterp(override *float64) (float64, error) {
	if override == nil {
		return s.tuning.GetPSDInterpFS(), nil
	}
	if err := hrv.CheckInterpFS(*override); err != nil {
		return 0, fmt.Errorf("fs_interp: %w", err)
	}
	return *override, nil
}

// checkRR bounds the work the HRV metrics will do on rr.
func checkRR(rr []float64, fsInterp float64) error {
	if len(rr) > maxRRIntervals {
		return fmt.Errorf("%d RR intervals exceeds the limit of %d", len(rr), maxRRIntervals)
	}
	return hrv.CheckResampling(rr, fsInterp)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req detectRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	wf, err := req.waveform()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	tuning, err := s.tuningFor(&config.TuningConfig{MinRRS: req.MinRRS})
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, ecg.DetectWithConfig(wf, tuning.DetectorConfig()))
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req pipelineRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	wf, err := req.waveform()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Events != nil {
		if err := req.Events.Validate(wf.Len()); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, ecg.RunPipelineWithEvents(wf, *req.Events))
		return
	}
	tuning, err := s.tuningFor(req.Config)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, ecg.RunPipeline(wf, tuning.DetectorConfig()))
}

// decodeRR handles the shared body of the /api/hrv routes.
func (s *Server) decodeRR(w http.ResponseWriter, r *http.Request) (signal.RRSeries, float64, bool) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return signal.RRSeries{}, 0, false
	}
	var req rrRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return signal.RRSeries{}, 0, false
	}
	fs, err := s.fsInterp(req.FSInterp)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return signal.RRSeries{}, 0, false
	}
	if err := checkRR(req.RR, fs); err != nil {
		httputil.BadRequest(w, err.Error())
		return signal.RRSeries{}, 0, false
	}
	return signal.NewRRSeries(req.RR), fs, true
}

func (s *Server) handleHRVTime(w http.ResponseWriter, r *http.Request) {
	rr, _, ok := s.decodeRR(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, hrv.Time(rr))
}

func (s *Server) handleHRVPSD(w http.ResponseWriter, r *http.Request) {
	rr, fs, ok := s.decodeRR(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, hrv.PSD(rr, fs))
}

func (s *Server) handleHRVNonlinear(w http.ResponseWriter, r *http.Request) {
	rr, _, ok := s.decodeRR(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, hrv.Nonlinear(rr))
}

func (s *Server) handleHRVDerive(w http.ResponseWriter, r *http.Request) {
	rr, fs, ok := s.decodeRR(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, hrv.Derive(rr, fs))
}

func (s *Server) handleSQI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req sqiRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	wf, err := req.waveform()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, sqi.Evaluate(wf, signal.NewRRSeries(req.RR)))
}
