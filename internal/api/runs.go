package api

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/httputil"
	"github.com/banshee-data/pulse.report/internal/report"
	"github.com/banshee-data/pulse.report/internal/security"
	"github.com/banshee-data/pulse.report/internal/signal"
)

const defaultRunsLimit = 50

type runRequest struct {
	Source string `json:"source"`
	waveformRequest
	Config *config.TuningConfig `json:"config,omitempty"`
	Events *signal.Events       `json:"events,omitempty"`
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "run store not configured")
		return false
	}
	return true
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.listRuns(w, r)
	case http.MethodPost:
		s.createRun(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.store.Runs(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
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
	}
	tuning, err := s.tuningFor(req.Config)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	res := pipeline(wf, req.Events, tuning)
	if err := checkRR(res.RR.RR, tuning.GetPSDInterpFS()); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	run := derive(req.Source, wf, res, tuning).Run()
	id, err := s.store.RecordRun(run)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to record run: %v", err))
		return
	}
	stored, err := s.store.RunByID(id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to read back run: %v", err))
		return
	}
	log.Printf("[api] recorded run %s (%d beats, acceptable=%v)", id, stored.BeatCount, stored.Acceptable())
	httputil.WriteJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		run, err := s.store.RunByID(id)
		if err != nil {
			s.writeRunError(w, id, err)
			return
		}
		httputil.WriteJSONOK(w, run)
	case http.MethodDelete:
		if err := s.store.DeleteRun(id); err != nil {
			s.writeRunError(w, id, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) writeRunError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, fmt.Sprintf("run %s not found", id))
		return
	}
	httputil.InternalServerError(w, err.Error())
}

// handleRunChart renders the echarts dashboard for a stored run.
func (s *Server) handleRunChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}
	id := r.PathValue("id")
	run, err := s.store.RunByID(id)
	if err != nil {
		s.writeRunError(w, id, err)
		return
	}

	var buf bytes.Buffer
	if err := report.RenderDashboard(&buf, runReport(run, s.tuning)); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", chartFilename(run)))
	}
	_, _ = w.Write(buf.Bytes())
}

// chartFilename names a downloaded dashboard after the recording and run.
func chartFilename(run db.AnalysisRun) string {
	id := run.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s.html", security.SanitizeFilename(run.Source), security.SanitizeFilename(id))
}
