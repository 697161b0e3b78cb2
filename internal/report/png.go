package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pulse.report/internal/fsutil"
	"github.com/banshee-data/pulse.report/internal/hrv"
	"github.com/banshee-data/pulse.report/internal/units"
)

// File names written by WritePNGs and WriteReport.
const (
	DashboardFile = "dashboard.html"

	TachogramFile = "tachogram.png"
	PSDFile       = "psd.png"
	PoincareFile  = "poincare.png"
	HistogramFile = "rr_histogram.png"
)

// psdMaxFreq bounds the PSD x axis; everything above HF is uninteresting.
const psdMaxFreq = 0.5

type figure struct {
	name          string
	width, height vg.Length
	build         func(Analysis) (*plot.Plot, error)
}

var figures = []figure{
	{TachogramFile, 10 * vg.Inch, 4 * vg.Inch, tachogramPlot},
	{PSDFile, 10 * vg.Inch, 4 * vg.Inch, psdPlot},
	{PoincareFile, 6 * vg.Inch, 6 * vg.Inch, poincarePlot},
	{HistogramFile, 8 * vg.Inch, 4 * vg.Inch, histogramPlot},
}

// WritePNGs writes one PNG per figure into fsys and returns the names
// written. Figures whose series is empty are skipped.
func WritePNGs(fsys fsutil.FileSystem, a Analysis) ([]string, error) {
	var written []string
	for _, f := range figures {
		p, err := f.build(a)
		if err != nil {
			return written, fmt.Errorf("build %s: %w", f.name, err)
		}
		if p == nil {
			continue
		}
		if err := savePNG(fsys, f, p); err != nil {
			return written, err
		}
		written = append(written, f.name)
	}
	return written, nil
}

func savePNG(fsys fsutil.FileSystem, f figure, p *plot.Plot) error {
	wt, err := p.WriterTo(f.width, f.height, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", f.name, err)
	}
	out, err := fsys.Create(f.name)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.name, err)
	}
	if _, err := wt.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("save %s: %w", f.name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("save %s: %w", f.name, err)
	}
	return nil
}

func toXYs(points []Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, p := range points {
		xys[i] = plotter.XY{X: p.X, Y: p.Y}
	}
	return xys
}

func tachogramPlot(a Analysis) (*plot.Plot, error) {
	pts := tachogramPoints(a.RR)
	if len(pts) == 0 {
		return nil, nil
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: RR tachogram (%d intervals)", a.title(), a.RR.Len())
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "RR (ms)"

	line, err := plotter.NewLine(toXYs(Decimate(pts, a.maxPoints())))
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	p.Add(plotter.NewGrid(), line)
	return p, nil
}

func psdPlot(a Analysis) (*plot.Plot, error) {
	pts := psdPoints(a.PSD)
	if len(pts) == 0 {
		return nil, nil
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Heart-rate PSD  LF %.1f  HF %.1f  LF/HF %.2f", a.PSD.LF, a.PSD.HF, a.PSD.LFHF)
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = "Power (bpm²/Hz)"

	line, err := plotter.NewLine(toXYs(Decimate(pts, a.maxPoints())))
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	p.Add(plotter.NewGrid(), line)
	if pts[len(pts)-1].X > psdMaxFreq {
		p.X.Min = 0
		p.X.Max = psdMaxFreq
	}
	return p, nil
}

func poincarePlot(a Analysis) (*plot.Plot, error) {
	pts := poincarePoints(a.RR)
	if len(pts) == 0 {
		return nil, nil
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Poincaré  SD1 %.1f ms  SD2 %.1f ms",
		units.ConvertInterval(a.Nonlinear.SD1, units.MS),
		units.ConvertInterval(a.Nonlinear.SD2, units.MS))
	p.X.Label.Text = "RR(n) (ms)"
	p.Y.Label.Text = "RR(n+1) (ms)"

	scatter, err := plotter.NewScatter(toXYs(Decimate(pts, a.maxPoints())))
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(plotter.NewGrid(), scatter)
	return p, nil
}

func histogramPlot(a Analysis) (*plot.Plot, error) {
	bins := hrv.Histogram(a.RR, a.histogramBins())
	if bins == nil {
		return nil, nil
	}

	values := make(plotter.Values, len(bins))
	labels := make([]string, len(bins))
	for i, b := range bins {
		values[i] = b.Fraction
		labels[i] = fmt.Sprintf("%.0f", units.ConvertInterval(b.Center, units.MS))
	}

	p := plot.New()
	p.Title.Text = "RR histogram"
	p.X.Label.Text = "RR bin centre (ms)"
	p.Y.Label.Text = "Fraction"

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return nil, err
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}
