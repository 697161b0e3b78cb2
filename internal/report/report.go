// Package report renders HRV analyses as PNG figures (gonum/plot) and as an
// interactive HTML dashboard (go-echarts).
package report

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/pulse.report/internal/hrv"
	"github.com/banshee-data/pulse.report/internal/signal"
	"github.com/banshee-data/pulse.report/internal/sqi"
	"github.com/banshee-data/pulse.report/internal/units"
)

const (
	DefaultHistogramBins = 20
	DefaultMaxPoints     = 2000
)

// Analysis is everything a report draws.
type Analysis struct {
	Title     string
	RR        signal.RRSeries
	Time      hrv.TimeMetrics
	PSD       hrv.PSDMetrics
	Nonlinear hrv.NonlinearMetrics
	// SQI is optional; RR-only analyses have no waveform to grade.
	SQI *sqi.Result

	// HistogramBins and MaxPoints fall back to the package defaults when <= 0.
	HistogramBins int
	MaxPoints     int
}

// FromDerived builds an Analysis from a derived HRV bundle.
func FromDerived(title string, d hrv.Derived) Analysis {
	return Analysis{
		Title:     title,
		RR:        d.RR,
		Time:      d.Time,
		PSD:       d.PSD,
		Nonlinear: d.Nonlinear,
	}
}

func (a Analysis) histogramBins() int {
	if a.HistogramBins <= 0 {
		return DefaultHistogramBins
	}
	return a.HistogramBins
}

func (a Analysis) maxPoints() int {
	if a.MaxPoints <= 0 {
		return DefaultMaxPoints
	}
	return a.MaxPoints
}

func (a Analysis) title() string {
	if a.Title == "" {
		return "HRV report"
	}
	return a.Title
}

// Point is an (x, y) sample of a chart series.
type Point struct {
	X float64
	Y float64
}

// Decimate keeps at most max points by taking the first point of each of max
// equal-width buckets. Series already within the limit, or a non-positive
// max, are returned as a copy.
func Decimate(points []Point, max int) []Point {
	if max <= 0 || len(points) <= max {
		return append([]Point(nil), points...)
	}
	bucket := float64(len(points)) / float64(max)
	out := make([]Point, 0, max)
	for i := 0; i < max; i++ {
		start := int(math.Floor(float64(i) * bucket))
		if start >= len(points) {
			break
		}
		out = append(out, points[start])
	}
	return out
}

// tachogramPoints places each interval, in ms, at the time its closing beat
// occurs relative to the first beat.
func tachogramPoints(rr signal.RRSeries) []Point {
	if rr.Len() == 0 {
		return nil
	}
	at := floats.CumSum(make([]float64, rr.Len()), rr.RR)
	out := make([]Point, rr.Len())
	for i, v := range rr.RR {
		out[i] = Point{X: at[i], Y: units.ConvertInterval(v, units.MS)}
	}
	return out
}

func psdPoints(m hrv.PSDMetrics) []Point {
	out := make([]Point, len(m.Points))
	for i, p := range m.Points {
		out[i] = Point{X: p.Freq, Y: p.Power}
	}
	return out
}

// poincarePoints pairs each interval with its successor, in ms.
func poincarePoints(rr signal.RRSeries) []Point {
	if rr.Len() < 2 {
		return nil
	}
	out := make([]Point, rr.Len()-1)
	for i := 1; i < rr.Len(); i++ {
		out[i-1] = Point{
			X: units.ConvertInterval(rr.RR[i-1], units.MS),
			Y: units.ConvertInterval(rr.RR[i], units.MS),
		}
	}
	return out
}
