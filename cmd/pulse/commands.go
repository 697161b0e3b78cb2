package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/banshee-data/pulse.report/internal/api"
	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/ecg"
	"github.com/banshee-data/pulse.report/internal/fsutil"
	"github.com/banshee-data/pulse.report/internal/hrv"
	"github.com/banshee-data/pulse.report/internal/report"
	"github.com/banshee-data/pulse.report/internal/signal"
	"github.com/banshee-data/pulse.report/internal/sqi"
	"github.com/banshee-data/pulse.report/internal/units"
	"github.com/banshee-data/pulse.report/internal/version"
)

// defaultCLIMinRRS is the refractory period ecg-find-rpeaks uses when
// --min-rr-s is not given.
const defaultCLIMinRRS = 0.3

func writeJSON(w io.Writer, v interface{}) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func checkFS(fs float64) error {
	if !(fs > 0) {
		return fmt.Errorf("--fs must be positive, got %g", fs)
	}
	return nil
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func cmdFindRPeaks(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("ecg-find-rpeaks", stderr)
	rate := fs.Float64("fs", 250, "Sampling rate in Hz")
	minRR := fs.Float64("min-rr-s", defaultCLIMinRRS, "Minimum RR interval (refractory period) in seconds")
	input := fs.String("input", "", "Input file of samples, one per line (stdin when empty or -)")
	seconds := fs.Bool("seconds", false, "Also report beat onsets in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkFS(*rate); err != nil {
		return err
	}
	if !(*minRR > 0) {
		return fmt.Errorf("--min-rr-s must be positive, got %g", *minRR)
	}

	data, err := readFloatsFrom(*input, stdin)
	if err != nil {
		return err
	}
	events := ecg.Detect(signal.NewWaveform(*rate, data), *minRR)
	if !*seconds {
		return writeJSON(stdout, events)
	}
	return writeJSON(stdout, struct {
		signal.Events
		Seconds []float64 `json:"seconds"`
	}{events, events.Seconds(*rate)})
}

func cmdHRVTime(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("hrv-time", stderr)
	input := fs.String("input", "", "Input file of RR intervals in seconds (stdin when empty or -)")
	unit := fs.String("units", units.S, "Units for AVNN, SDNN and RMSSD: "+units.GetValidUnitsString())
	format := fs.String("format", "json", "Output format: json or tsv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !units.IsValid(*unit) {
		return fmt.Errorf("invalid --units %q, must be one of: %s", *unit, units.GetValidUnitsString())
	}

	rr, err := readFloatsFrom(*input, stdin)
	if err != nil {
		return err
	}
	m := hrv.Time(signal.NewRRSeries(rr))
	m.AVNN = units.ConvertInterval(m.AVNN, *unit)
	m.SDNN = units.ConvertInterval(m.SDNN, *unit)
	m.RMSSD = units.ConvertInterval(m.RMSSD, *unit)

	switch *format {
	case "json":
		return writeJSON(stdout, m)
	case "tsv":
		fmt.Fprintln(stdout, strings.Join([]string{"n", "avnn", "sdnn", "rmssd", "pnn50"}, "\t"))
		fmt.Fprintf(stdout, "%d\t%g\t%g\t%g\t%g\n", m.N, m.AVNN, m.SDNN, m.RMSSD, m.PNN50)
		return nil
	default:
		return fmt.Errorf("invalid --format %q, must be json or tsv", *format)
	}
}

func cmdHRVPSD(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("hrv-psd", stderr)
	input := fs.String("input", "", "Input file of RR intervals in seconds (stdin when empty or -)")
	interp := fs.Float64("interp-fs", hrv.DefaultInterpFS, "Resampling rate of the heart-rate signal in Hz")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := hrv.CheckInterpFS(*interp); err != nil {
		return fmt.Errorf("--interp-fs: %w", err)
	}

	rr, err := readFloatsFrom(*input, stdin)
	if err != nil {
		return err
	}
	if err := hrv.CheckResampling(rr, *interp); err != nil {
		return err
	}
	return writeJSON(stdout, hrv.PSD(signal.NewRRSeries(rr), *interp))
}

func cmdHRVNonlinear(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("hrv-nonlinear", stderr)
	input := fs.String("input", "", "Input file of RR intervals in seconds (stdin when empty or -)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rr, err := readFloatsFrom(*input, stdin)
	if err != nil {
		return err
	}
	return writeJSON(stdout, hrv.Nonlinear(signal.NewRRSeries(rr)))
}

// rrSummary is the output of rr-summary.
type rrSummary struct {
	hrv.Summary
	HeartRate *float64 `json:"heart_rate_bpm"`
}

func cmdRRSummary(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("rr-summary", stderr)
	input := fs.String("input", "", "Input file of RR intervals in seconds (stdin when empty or -)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rr, err := readFloatsFrom(*input, stdin)
	if err != nil {
		return err
	}
	series := signal.NewRRSeries(rr)
	out := rrSummary{Summary: hrv.Summarize(series)}
	if bpm, ok := hrv.HeartRate(series); ok {
		out.HeartRate = &bpm
	}
	return writeJSON(stdout, out)
}

func cmdHRVReport(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("hrv-report", stderr)
	input := fs.String("input", "", "Input file of RR intervals in seconds (stdin when empty or -)")
	out := fs.String("out", "report", "Output directory")
	title := fs.String("title", "", "Report title (defaults to the input file name)")
	configPath := fs.String("config", "", "Tuning config JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tuning, err := loadTuning(*configPath)
	if err != nil {
		return err
	}

	rr, err := readFloatsFrom(*input, stdin)
	if err != nil {
		return err
	}
	if *title == "" {
		*title = sourceName(*input)
	}
	a := report.FromDerived(*title, hrv.Derive(signal.NewRRSeries(rr), tuning.GetPSDInterpFS()))
	a.HistogramBins = tuning.GetHistogramBins()
	a.MaxPoints = tuning.GetChartMaxPoints()

	written, err := writeReport(*out, a)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintln(stdout, path)
	}
	return nil
}

func cmdSQI(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("sqi", stderr)
	rate := fs.Float64("fs", 250, "Sampling rate in Hz")
	input := fs.String("input", "", "Input file of samples, one per line (stdin when empty or -)")
	rrPath := fs.String("rr", "", "Optional file of RR intervals in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkFS(*rate); err != nil {
		return err
	}

	data, err := readFloatsFrom(*input, stdin)
	if err != nil {
		return err
	}
	var rr []float64
	if *rrPath != "" {
		if *rrPath == "-" && (*input == "" || *input == "-") {
			return fmt.Errorf("--input and --rr cannot both read stdin")
		}
		if rr, err = readFloatsFrom(*rrPath, stdin); err != nil {
			return err
		}
	}
	return writeJSON(stdout, sqi.Evaluate(signal.NewWaveform(*rate, data), signal.NewRRSeries(rr)))
}

func cmdPipeline(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("beat-hrv-pipeline", stderr)
	rate := fs.Float64("fs", 250, "Sampling rate in Hz")
	input := fs.String("input", "", "Input file of samples, one per line (stdin when empty or -)")
	annotations := fs.String("annotations", "", "File of beat sample indices; skips detection")
	configPath := fs.String("config", "", "Tuning config JSON file")
	thresholdScale := fs.Float64("threshold-scale", ecg.DefaultThresholdScale, "Detector threshold scale (overrides config)")
	minRR := fs.Float64("min-rr-s", ecg.DefaultMinRRS, "Minimum RR interval in seconds (overrides config)")
	storePath := fs.String("store", "", "Record the run in this SQLite database")
	reportDir := fs.String("report", "", "Write PNG figures and dashboard to this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkFS(*rate); err != nil {
		return err
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		return err
	}
	set := flagsSet(fs)
	override := config.EmptyTuningConfig()
	if set["threshold-scale"] {
		override.ThresholdScale = thresholdScale
	}
	if set["min-rr-s"] {
		override.MinRRS = minRR
	}
	tuning = tuning.Merge(override)
	if err := tuning.Validate(); err != nil {
		return err
	}

	data, err := readFloatsFrom(*input, stdin)
	if err != nil {
		return err
	}
	wf := signal.NewWaveform(*rate, data)

	var events *signal.Events
	if *annotations != "" {
		idx, err := readIndicesFrom(*annotations)
		if err != nil {
			return err
		}
		e := signal.EventsFromIndices(idx)
		if err := e.Validate(wf.Len()); err != nil {
			return fmt.Errorf("invalid annotations %s: %w", *annotations, err)
		}
		events = &e
	}

	analysis := api.Analyze(sourceName(*input), wf, events, tuning)

	if *storePath != "" {
		if err := storeRun(*storePath, analysis); err != nil {
			return err
		}
	}
	if *reportDir != "" {
		written, err := writeReport(*reportDir, analysis.Report(tuning))
		if err != nil {
			return err
		}
		log.Printf("wrote %d report files to %s", len(written), *reportDir)
	}
	return writeJSON(stdout, analysis.Pipeline)
}

func storeRun(path string, analysis api.Analysis) error {
	database, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer database.Close()

	id, err := db.NewStore(database, nil).RecordRun(analysis.Run())
	if err != nil {
		return err
	}
	log.Printf("recorded run %s in %s", id, path)
	return nil
}

// writeReport writes the PNG figures and the HTML dashboard into dir and
// returns their paths.
func writeReport(dir string, a report.Analysis) ([]string, error) {
	fsys, err := fsutil.NewDirFS(dir)
	if err != nil {
		return nil, err
	}
	names, err := report.WriteReport(fsys, a)
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, err
}

func sourceName(input string) string {
	if input == "" || input == "-" {
		return "stdin"
	}
	return filepath.Base(input)
}

func cmdMigrate(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("migrate", stderr)
	dbPath := fs.String("db", "pulse.db", "Path to the SQLite database")
	fs.Usage = func() { db.PrintMigrateHelp(stderr) }
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	return db.RunMigrateCommand(positional, *dbPath, stdout)
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments, so "migrate up --db x" and "migrate --db x up" agree.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func cmdVersion(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fmt.Fprintln(stdout, version.String())
	return nil
}
