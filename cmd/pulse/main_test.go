package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/ecg"
	"github.com/banshee-data/pulse.report/internal/hrv"
	"github.com/banshee-data/pulse.report/internal/report"
	"github.com/banshee-data/pulse.report/internal/signal"
	"github.com/banshee-data/pulse.report/internal/sqi"
	"github.com/banshee-data/pulse.report/internal/testutil"
)

func floatLines(values []float64) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// runCLI executes a command line and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func TestRun_Dispatch(t *testing.T) {
	_, err := runCLI(t, "")
	assert.Error(t, err)

	out, err := runCLI(t, "", "help")
	require.NoError(t, err)
	for name := range commands {
		assert.Contains(t, out, name)
	}

	_, err = runCLI(t, "", "frobnicate")
	assert.ErrorContains(t, err, "unknown command")
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "pulse dev (unknown, built unknown)\n", out)
}

func TestFindRPeaks(t *testing.T) {
	data, beats := testutil.SyntheticECG(testutil.ReferenceRR, testutil.DefaultECGOptions())

	out, err := runCLI(t, floatLines(data), "ecg-find-rpeaks", "--fs", "250")
	require.NoError(t, err)

	var events signal.Events
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events.Indices, len(beats))
	for i, idx := range events.Indices {
		assert.InDelta(t, beats[i], idx, 8)
	}
}

func TestFindRPeaks_Seconds(t *testing.T) {
	out, err := runCLI(t, "0\n0\n5\n0\n0\n0\n0\n6\n0\n0\n", "ecg-find-rpeaks", "--fs", "2", "--seconds", "--min-rr-s", "1")
	require.NoError(t, err)

	var got struct {
		Indices []int     `json:"indices"`
		Seconds []float64 `json:"seconds"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Seconds, len(got.Indices))
	for i, idx := range got.Indices {
		assert.InDelta(t, float64(idx)/2, got.Seconds[i], 1e-12)
	}
}

func TestRRSummary(t *testing.T) {
	out, err := runCLI(t, "0.8\n1.0\n1.2\n", "rr-summary")
	require.NoError(t, err)

	var got map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.InDelta(t, 0.8, got["min"], 1e-12)
	assert.InDelta(t, 1.2, got["max"], 1e-12)
	assert.InDelta(t, 1.0, got["mean"], 1e-12)
	assert.Equal(t, 3.0, got["count"])
	assert.InDelta(t, 60.0, got["heart_rate_bpm"], 1e-9)

	out, err = runCLI(t, "", "rr-summary")
	require.NoError(t, err)
	assert.JSONEq(t, `{"min":0,"max":0,"mean":0,"count":0,"heart_rate_bpm":null}`, out)
}

func TestFindRPeaks_BadFlags(t *testing.T) {
	_, err := runCLI(t, "1\n2\n", "ecg-find-rpeaks", "--fs", "0")
	assert.Error(t, err)
	_, err = runCLI(t, "1\n2\n", "ecg-find-rpeaks", "--min-rr-s", "-1")
	assert.Error(t, err)
	_, err = runCLI(t, "1\nabc\n", "ecg-find-rpeaks")
	assert.ErrorContains(t, err, "line 2")
	_, err = runCLI(t, "", "ecg-find-rpeaks", "--no-such-flag")
	assert.Error(t, err)
}

func TestHRVTime(t *testing.T) {
	input := floatLines(testutil.RegressionRR)

	out, err := runCLI(t, input, "hrv-time")
	require.NoError(t, err)
	var m hrv.TimeMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, 20, m.N)
	testutil.AssertClose(t, "avnn", m.AVNN, 0.8155, 1e-9)

	out, err = runCLI(t, input, "hrv-time", "--units", "ms")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	testutil.AssertClose(t, "avnn ms", m.AVNN, 815.5, 1e-9)
	testutil.AssertClose(t, "pnn50", m.PNN50, 3.0/19.0, 1e-12)

	out, err = runCLI(t, "0.8\n0.8\n", "hrv-time", "--format", "tsv")
	require.NoError(t, err)
	assert.Equal(t, "n\tavnn\tsdnn\trmssd\tpnn50\n2\t0.8\t0\t0\t0\n", out)

	_, err = runCLI(t, input, "hrv-time", "--units", "bpm")
	assert.Error(t, err)
	_, err = runCLI(t, input, "hrv-time", "--format", "xml")
	assert.Error(t, err)
}

func TestHRVTime_FromFile(t *testing.T) {
	path := writeTempFile(t, "rr.txt", "# rr in seconds\n0.8\n\n1.0\n")

	out, err := runCLI(t, "", "hrv-time", "--input", path)
	require.NoError(t, err)
	var m hrv.TimeMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, 2, m.N)
	testutil.AssertClose(t, "avnn", m.AVNN, 0.9, 1e-12)

	_, err = runCLI(t, "", "hrv-time", "--input", filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestHRVPSDAndNonlinear(t *testing.T) {
	input := floatLines(testutil.RegressionRR)

	out, err := runCLI(t, input, "hrv-psd")
	require.NoError(t, err)
	var psd hrv.PSDMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &psd))
	assert.Len(t, psd.Points, 34)
	testutil.AssertClose(t, "lf", psd.LF, 43426.12412415339, 1e-6)

	_, err = runCLI(t, input, "hrv-psd", "--interp-fs", "0")
	assert.Error(t, err)
	_, err = runCLI(t, input, "hrv-psd", "--interp-fs", "1e10")
	assert.Error(t, err)
	_, err = runCLI(t, "1e9\n", "hrv-psd")
	assert.Error(t, err)

	out, err = runCLI(t, input, "hrv-nonlinear")
	require.NoError(t, err)
	var nl hrv.NonlinearMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &nl))
	testutil.AssertClose(t, "sampen", nl.SampEntropy, 0.40546510810816444, 1e-9)
}

func TestSQI(t *testing.T) {
	data, _ := testutil.SyntheticECG(testutil.ReferenceRR, testutil.DefaultECGOptions())
	input := writeTempFile(t, "ecg.txt", floatLines(data))
	rr := writeTempFile(t, "rr.txt", floatLines(testutil.ReferenceRR))

	out, err := runCLI(t, "", "sqi", "--fs", "250", "--input", input, "--rr", rr)
	require.NoError(t, err)
	var res sqi.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.IsAcceptable())
	assert.Equal(t, sqi.RRCV(testutil.ReferenceRR), res.RRCV)
	assert.Contains(t, out, `"acceptable":true`)

	_, err = runCLI(t, "", "sqi", "--rr", "-")
	assert.Error(t, err)
}

func TestPipeline(t *testing.T) {
	data, _ := testutil.SyntheticECG(testutil.ReferenceRR, testutil.DefaultECGOptions())
	input := writeTempFile(t, "recording_a.txt", floatLines(data))

	out, err := runCLI(t, "", "beat-hrv-pipeline", "--fs", "250", "--input", input)
	require.NoError(t, err)
	var res ecg.PipelineResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 9, res.Events.Len())
	assert.Equal(t, len(data), res.SampleCount)
	assert.Greater(t, res.HRVTime.RMSSD, 0.0)
	assert.Contains(t, out, `"hrv_time"`)
}

func TestPipeline_AnnotationsStoreAndReport(t *testing.T) {
	dir := t.TempDir()
	data := make([]float64, 500)
	input := writeTempFile(t, "flat.txt", floatLines(data))
	annotations := writeTempFile(t, "beats.txt", "0\n80\n160\n250\n")
	storePath := filepath.Join(dir, "runs.db")
	reportDir := filepath.Join(dir, "report")

	out, err := runCLI(t, "", "beat-hrv-pipeline", "--fs", "100", "--input", input,
		"--annotations", annotations, "--store", storePath, "--report", reportDir)
	require.NoError(t, err)

	var res ecg.PipelineResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []int{0, 80, 160, 250}, res.Events.Indices)
	assert.Equal(t, []float64{0.8, 0.8, 0.9}, res.RR.RR)

	database, err := db.NewDB(storePath)
	require.NoError(t, err)
	defer database.Close()
	runs, err := db.NewStore(database, nil).Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "flat.txt", runs[0].Source)
	assert.Equal(t, 4, runs[0].BeatCount)

	for _, name := range []string{report.TachogramFile, report.PSDFile, report.PoincareFile, report.HistogramFile, report.DashboardFile} {
		assert.FileExists(t, filepath.Join(reportDir, name))
	}
}

func TestPipeline_Overrides(t *testing.T) {
	cfg := writeTempFile(t, "tuning.json", `{"threshold_scale": 0.5}`)

	_, err := runCLI(t, "1\n2\n3\n", "beat-hrv-pipeline", "--config", cfg, "--min-rr-s", "0")
	assert.ErrorContains(t, err, "min_rr_s")

	_, err = runCLI(t, "1\n2\n3\n", "beat-hrv-pipeline", "--config", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)

	_, err = runCLI(t, "1\n2\n3\n", "beat-hrv-pipeline", "--annotations", filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)

	bad := writeTempFile(t, "bad.txt", "12\n-4\n")
	_, err = runCLI(t, "1\n2\n3\n", "beat-hrv-pipeline", "--annotations", bad)
	assert.ErrorContains(t, err, "line 2")
}

func TestPipeline_RejectsBadAnnotations(t *testing.T) {
	samples := "0\n0\n0\n0\n0\n"
	input := writeTempFile(t, "five.txt", samples)
	storePath := filepath.Join(t.TempDir(), "runs.db")

	tests := []struct {
		name        string
		annotations string
		wantErr     string
	}{
		{"descending and out of range", "100\n50\n900\n", "outside the waveform"},
		{"descending in range", "3\n1\n", "ascending order"},
		{"past the last sample", "0\n5\n", "outside the waveform"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "beats.txt", tt.annotations)
			out, err := runCLI(t, "", "beat-hrv-pipeline", "--fs", "1", "--input", input,
				"--annotations", path, "--store", storePath)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.Empty(t, out)
		})
	}
	assert.NoFileExists(t, storePath)

	out, err := runCLI(t, "", "beat-hrv-pipeline", "--fs", "1", "--input", input,
		"--annotations", writeTempFile(t, "ok.txt", "0\n2\n2\n4\n"))
	require.NoError(t, err)
	var res ecg.PipelineResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []float64{2, 0, 2}, res.RR.RR)
}

func TestHRVReport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "figs")

	stdout, err := runCLI(t, floatLines(testutil.RegressionRR), "hrv-report", "--out", out, "--title", "regression")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 5)
	assert.FileExists(t, filepath.Join(out, report.DashboardFile))

	html, err := os.ReadFile(filepath.Join(out, report.DashboardFile))
	require.NoError(t, err)
	assert.Contains(t, string(html), "regression")
}

func TestMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")

	out, err := runCLI(t, "", "migrate", "up", "--db", path)
	require.NoError(t, err)
	latest, err := db.LatestMigrationVersion()
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("Current version: %d (dirty: false)", latest))

	out, err = runCLI(t, "", "migrate", "--db", path, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending: 0")

	_, err = runCLI(t, "", "migrate", "--db", path, "sideways")
	assert.Error(t, err)
}

func TestParseInterspersed(t *testing.T) {
	fs := newFlagSet("test", &bytes.Buffer{})
	dbPath := fs.String("db", "default.db", "")

	pos, err := parseInterspersed(fs, []string{"version", "--db", "x.db", "3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"version", "3"}, pos)
	assert.Equal(t, "x.db", *dbPath)
}

func TestReadInput(t *testing.T) {
	floats, err := readFloats(strings.NewReader(" 1.5 \n\n# skip\n-2\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2}, floats)

	floats, err = readFloats(strings.NewReader(""))
	require.NoError(t, err)
	assert.NotNil(t, floats)
	assert.Empty(t, floats)

	idx, err := readIndices(strings.NewReader("3\n10\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 10}, idx)

	_, err = readIndices(strings.NewReader("1.5\n"))
	assert.ErrorContains(t, err, "line 1")

	assert.Equal(t, "stdin", sourceName(""))
	assert.Equal(t, "stdin", sourceName("-"))
	assert.Equal(t, "a.txt", sourceName("/tmp/x/a.txt"))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, server) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
