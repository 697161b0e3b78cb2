package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/testutil"
	"github.com/banshee-data/pulse.report/internal/timeutil"
)

// setupTestServer returns a server backed by a fresh, migrated store.
func setupTestServer(t *testing.T) (*Server, *db.Store) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	clock := timeutil.NewMockClock(time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	store := db.NewStore(database, clock)
	return NewServer(store, config.EmptyTuningConfig()), store
}

// do sends body (marshalled to JSON unless it is already a string) through
// the server's mux.
func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload string
	switch b := body.(type) {
	case nil:
	case string:
		payload = b
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		payload = string(raw)
	}
	req := testutil.NewJSONRequest(method, path, payload)
	w := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(dst), "body: %s", w.Body.String())
}

// referenceRecording is the synthetic nine-beat ECG used across handler tests.
func referenceRecording() (fs float64, data []float64, beats []int) {
	opts := testutil.DefaultECGOptions()
	data, beats = testutil.SyntheticECG(testutil.ReferenceRR, opts)
	return opts.FS, data, beats
}
