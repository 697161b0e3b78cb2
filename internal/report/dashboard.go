package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pulse.report/internal/fsutil"
	"github.com/banshee-data/pulse.report/internal/hrv"
	"github.com/banshee-data/pulse.report/internal/units"
)

const chartHeight = "360px"

// RenderDashboard writes a single HTML page with the tachogram, PSD,
// Poincaré and summary charts of a. Series with no data are left out; the
// summary chart is always present.
func RenderDashboard(w io.Writer, a Analysis) error {
	page := components.NewPage()
	if pts := tachogramPoints(a.RR); len(pts) > 0 {
		page.AddCharts(tachogramChart(a, Decimate(pts, a.maxPoints())))
	}
	if pts := psdPoints(a.PSD); len(pts) > 0 {
		page.AddCharts(psdChart(a, Decimate(pts, a.maxPoints())))
	}
	if pts := poincarePoints(a.RR); len(pts) > 0 {
		page.AddCharts(poincareChart(a, Decimate(pts, a.maxPoints())))
	}
	page.AddCharts(summaryChart(a))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

// WriteReport writes the PNG figures followed by DashboardFile into fsys
// and returns the names written.
func WriteReport(fsys fsutil.FileSystem, a Analysis) ([]string, error) {
	written, err := WritePNGs(fsys, a)
	if err != nil {
		return written, err
	}

	f, err := fsys.Create(DashboardFile)
	if err != nil {
		return written, fmt.Errorf("create %s: %w", DashboardFile, err)
	}
	if err := RenderDashboard(f, a); err != nil {
		f.Close()
		return written, err
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("save %s: %w", DashboardFile, err)
	}
	return append(written, DashboardFile), nil
}

func lineData(points []Point) []opts.LineData {
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		data[i] = opts.LineData{Value: []interface{}{p.X, p.Y}}
	}
	return data
}

func tachogramChart(a Analysis, pts []Point) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: a.title(), Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "RR tachogram", Subtitle: fmt.Sprintf("%s intervals=%d points=%d", a.title(), a.RR.Len(), len(pts))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "RR (ms)"}),
	)
	line.AddSeries("rr", lineData(pts))
	return line
}

func psdChart(a Analysis, pts []Point) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: a.title(), Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Heart-rate PSD", Subtitle: fmt.Sprintf("LF=%.1f HF=%.1f LF/HF=%.2f", a.PSD.LF, a.PSD.HF, a.PSD.LFHF)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Frequency (Hz)", NameLocation: "middle", NameGap: 25, Max: psdMaxFreq}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Power"}),
	)
	line.AddSeries("psd", lineData(pts))
	return line
}

func poincareChart(a Analysis, pts []Point) *charts.Scatter {
	data := make([]opts.ScatterData, len(pts))
	for i, p := range pts {
		data[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: a.title(), Width: "600px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Poincaré", Subtitle: fmt.Sprintf("SD1=%.1fms SD2=%.1fms",
			units.ConvertInterval(a.Nonlinear.SD1, units.MS), units.ConvertInterval(a.Nonlinear.SD2, units.MS))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "RR(n) (ms)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "RR(n+1) (ms)"}),
	)
	scatter.AddSeries("poincare", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	return scatter
}

// summaryChart shows the interval-valued metrics as bars, with the unitless
// ones in the subtitle.
func summaryChart(a Analysis) *charts.Bar {
	x := []string{"AVNN", "SDNN", "RMSSD", "SD1", "SD2"}
	y := []opts.BarData{
		{Value: units.ConvertInterval(a.Time.AVNN, units.MS)},
		{Value: units.ConvertInterval(a.Time.SDNN, units.MS)},
		{Value: units.ConvertInterval(a.Time.RMSSD, units.MS)},
		{Value: units.ConvertInterval(a.Nonlinear.SD1, units.MS)},
		{Value: units.ConvertInterval(a.Nonlinear.SD2, units.MS)},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: a.title(), Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: a.title(), Subtitle: summaryLine(a)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ms"}),
	)
	bar.SetXAxis(x).
		AddSeries("metrics", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func summaryLine(a Analysis) string {
	s := fmt.Sprintf("n=%d pNN50=%.3f SampEn=%.3f DFA α1=%.3f", a.Time.N, a.Time.PNN50, a.Nonlinear.SampEntropy, a.Nonlinear.DFAAlpha1)
	if bpm, ok := hrv.HeartRate(a.RR); ok {
		s = fmt.Sprintf("HR=%.1f bpm %s", bpm, s)
	}
	if a.SQI != nil {
		verdict := "rejected"
		if a.SQI.IsAcceptable() {
			verdict = "accepted"
		}
		s += fmt.Sprintf(" SQI=%s", verdict)
	}
	return s
}
