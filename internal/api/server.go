// Package api serves the analysis core over HTTP as JSON, plus HTML
// dashboards for stored runs.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/httputil"
	"github.com/banshee-data/pulse.report/internal/units"
)

// ANSI escape codes for status and path colouring in request logs
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server holds the dependencies shared by all handlers. The core analysis is
// stateless, so handlers run concurrently without locking.
type Server struct {
	// store is optional; without it the /api/runs and /charts routes
	// answer 503.
	store  *db.Store
	tuning *config.TuningConfig
}

// NewServer creates a server. A nil tuning config uses the built-in defaults.
func NewServer(store *db.Store, tuning *config.TuningConfig) *Server {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	return &Server{
		store:  store,
		tuning: tuning,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/detect", s.handleDetect)
	mux.HandleFunc("/api/pipeline", s.handlePipeline)
	mux.HandleFunc("/api/hrv/time", s.handleHRVTime)
	mux.HandleFunc("/api/hrv/psd", s.handleHRVPSD)
	mux.HandleFunc("/api/hrv/nonlinear", s.handleHRVNonlinear)
	mux.HandleFunc("/api/hrv/derive", s.handleHRVDerive)
	mux.HandleFunc("/api/sqi", s.handleSQI)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/{id}", s.handleRun)
	mux.HandleFunc("/charts/runs/{id}", s.handleRunChart)
	return mux
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"detector":         s.tuning.DetectorConfig(),
		"psd_interp_fs":    s.tuning.GetPSDInterpFS(),
		"histogram_bins":   s.tuning.GetHistogramBins(),
		"chart_max_points": s.tuning.GetChartMaxPoints(),
		"units":            units.S,
		"store":            s.store != nil,
	})
}
