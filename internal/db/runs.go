package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pulse.report/internal/hrv"
	"github.com/banshee-data/pulse.report/internal/sqi"
	"github.com/banshee-data/pulse.report/internal/timeutil"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("analysis run not found")

// AnalysisRun is one stored analysis of a recording.
type AnalysisRun struct {
	RunID       string               `json:"run_id"`
	Source      string               `json:"source"`
	FS          float64              `json:"fs"`
	SampleCount int                  `json:"sample_count"`
	BeatCount   int                  `json:"beat_count"`
	RR          []float64            `json:"rr"`
	Time        hrv.TimeMetrics      `json:"hrv_time"`
	PSD         hrv.PSDMetrics       `json:"hrv_psd"`
	Nonlinear   hrv.NonlinearMetrics `json:"hrv_nonlinear"`
	SQI         sqi.Result           `json:"sqi"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Acceptable reports the SQI verdict stored with the run.
func (r AnalysisRun) Acceptable() bool { return r.SQI.IsAcceptable() }

// Store reads and writes analysis runs.
type Store struct {
	db    *DB
	clock timeutil.Clock
}

// NewStore wraps db. A nil clock uses the wall clock.
func NewStore(db *DB, clock timeutil.Clock) *Store {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Store{db: db, clock: clock}
}

// DB returns the underlying database handle.
func (s *Store) DB() *DB { return s.db }

const runColumns = `run_id, source, fs, sample_count, beat_count,
	avnn, sdnn, rmssd, pnn50,
	lf, hf, vlf, lf_hf, total_power,
	sd1, sd2, samp_entropy, dfa_alpha1,
	kurtosis, snr, rr_cv, spectral_entropy, ppg_spike_ratio,
	acceptable, created_at, rr_json`

// RecordRun inserts run and returns its ID. An empty RunID is replaced with a
// new UUID and CreatedAt is always set from the store's clock. The PSD bins
// are not persisted; readers get only the band powers.
func (s *Store) RecordRun(run AnalysisRun) (string, error) {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	run.CreatedAt = s.clock.Now().UTC()

	rr := run.RR
	if rr == nil {
		rr = []float64{}
	}
	rrJSON, err := json.Marshal(rr)
	if err != nil {
		return "", fmt.Errorf("failed to encode rr series: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO analysis_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Source, run.FS, run.SampleCount, run.BeatCount,
		run.Time.AVNN, run.Time.SDNN, run.Time.RMSSD, run.Time.PNN50,
		run.PSD.LF, run.PSD.HF, run.PSD.VLF, run.PSD.LFHF, run.PSD.TotalPower,
		run.Nonlinear.SD1, run.Nonlinear.SD2, run.Nonlinear.SampEntropy, run.Nonlinear.DFAAlpha1,
		run.SQI.Kurtosis, run.SQI.SNR, run.SQI.RRCV, run.SQI.SpectralEntropy, run.SQI.SpikeRatio,
		run.Acceptable(), run.CreatedAt.UnixNano(), string(rrJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return run.RunID, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(limit int) ([]AnalysisRun, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs ORDER BY created_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer rows.Close()

	runs := []AnalysisRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis runs: %w", err)
	}
	return runs, nil
}

// RunByID returns a single run or ErrRunNotFound.
func (s *Store) RunByID(id string) (AnalysisRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM analysis_runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return AnalysisRun{}, ErrRunNotFound
	}
	return run, err
}

// DeleteRun removes a run. Deleting a missing run returns ErrRunNotFound.
func (s *Store) DeleteRun(id string) error {
	res, err := s.db.Exec(`DELETE FROM analysis_runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete analysis run: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (AnalysisRun, error) {
	var (
		run        AnalysisRun
		acceptable bool
		createdAt  int64
		rrJSON     string
	)
	err := sc.Scan(
		&run.RunID, &run.Source, &run.FS, &run.SampleCount, &run.BeatCount,
		&run.Time.AVNN, &run.Time.SDNN, &run.Time.RMSSD, &run.Time.PNN50,
		&run.PSD.LF, &run.PSD.HF, &run.PSD.VLF, &run.PSD.LFHF, &run.PSD.TotalPower,
		&run.Nonlinear.SD1, &run.Nonlinear.SD2, &run.Nonlinear.SampEntropy, &run.Nonlinear.DFAAlpha1,
		&run.SQI.Kurtosis, &run.SQI.SNR, &run.SQI.RRCV, &run.SQI.SpectralEntropy, &run.SQI.SpikeRatio,
		&acceptable, &createdAt, &rrJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AnalysisRun{}, err
		}
		return AnalysisRun{}, fmt.Errorf("failed to scan analysis run: %w", err)
	}

	if err := json.Unmarshal([]byte(rrJSON), &run.RR); err != nil {
		return AnalysisRun{}, fmt.Errorf("failed to decode rr series for run %s: %w", run.RunID, err)
	}
	run.Time.N = len(run.RR)
	run.PSD.Points = []hrv.PSDPoint{}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return run, nil
}
