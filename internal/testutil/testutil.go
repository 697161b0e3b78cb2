// Package testutil provides shared test utilities and fixtures.
//
// It holds the float comparison helpers used by the numeric packages and the
// synthetic ECG generator that stands in for real recordings in tests.
package testutil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertClose fails the test unless got is within relTol of want, where the
// tolerance is scaled by max(|want|, 1). This matches how the regression
// fixtures were recorded.
func AssertClose(t testing.TB, name string, got, want, relTol float64) {
	t.Helper()
	if !Close(got, want, relTol) {
		t.Errorf("%s = %.12g, want %.12g (tol %g)", name, got, want, math.Max(math.Abs(want), 1)*relTol)
	}
}

// Close reports whether got is within relTol·max(|want|, 1) of want.
func Close(got, want, relTol float64) bool {
	tol := math.Max(math.Abs(want), 1) * relTol
	return math.Abs(got-want) <= tol
}

// NewJSONRequest creates a test HTTP request carrying a JSON body.
func NewJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
