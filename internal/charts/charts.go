// Package charts renders the analysis charts as PNG images with gonum/plot.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"stocklens/internal/dataprocessing"
	apperrors "stocklens/internal/errors"
	"stocklens/internal/table"
	"stocklens/pkg/contracts/domain"
)

// Chart names, used for file names and HTTP routes
const (
	ClosingPriceChart       = "closing-price"
	CorrelationHeatmapChart = "correlation-heatmap"
	ReturnDistributionChart = "return-distribution"
)

// ErrNoData is returned when a chart would have nothing to draw
var ErrNoData = errors.New("charts: no data to plot")

var (
	lineColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	barColor     = color.RGBA{R: 31, G: 119, B: 180, A: 160}
	densityColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	nanColor     = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

// Options sets the canvas size of rendered charts
type Options struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions returns a 10x6 inch canvas
func DefaultOptions() Options {
	return Options{Width: 10 * vg.Inch, Height: 6 * vg.Inch}
}

// OptionsInches builds Options from a size in inches, falling back to the
// defaults for non-positive values.
func OptionsInches(width, height float64) Options {
	opts := DefaultOptions()
	if width > 0 {
		opts.Width = vg.Length(width) * vg.Inch
	}
	if height > 0 {
		opts.Height = vg.Length(height) * vg.Inch
	}
	return opts
}

// ClosingPrice plots Close against Date in chronological order.
// The Date column must already hold dates.
func ClosingPrice(t *table.Table) (*plot.Plot, error) {
	for _, name := range []string{dataprocessing.ColumnDate, dataprocessing.ColumnClose} {
		if !t.HasColumn(name) {
			return nil, apperrors.NewMissingColumnError("closing price chart", name)
		}
	}
	dates, ok := t.Times(dataprocessing.ColumnDate)
	if !ok {
		return nil, apperrors.NewAppValidationError("closing price chart: Date column holds no dates")
	}
	closes, _ := t.Floats(dataprocessing.ColumnClose)

	pts := make(plotter.XYs, 0, len(dates))
	for i, d := range dates {
		if math.IsNaN(closes[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(d.Unix()), Y: closes[i]})
	}
	if len(pts) == 0 {
		return nil, ErrNoData
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	p := plot.New()
	p.Title.Text = "Closing Price Over Time"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Close"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build price line: %w", err)
	}
	line.Color = lineColor
	line.Width = vg.Points(1.5)
	p.Add(line)

	return p, nil
}

// correlationGrid adapts a correlation table to plotter.GridXYZ with the
// first column drawn in the top row.
type correlationGrid struct {
	values [][]float64
}

func (g correlationGrid) Dims() (c, r int) { return len(g.values), len(g.values) }
func (g correlationGrid) Z(c, r int) float64 {
	return g.values[len(g.values)-1-r][c]
}
func (g correlationGrid) X(c int) float64 { return float64(c) }
func (g correlationGrid) Y(r int) float64 { return float64(r) }

// CorrelationHeatmap draws the coefficient matrix on a blue-red diverging
// scale fixed to [-1, 1], each cell annotated to two decimals.
func CorrelationHeatmap(corr domain.CorrelationTable) (*plot.Plot, error) {
	n := len(corr.Columns)
	if n == 0 {
		return nil, ErrNoData
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	grid := correlationGrid{values: corr.Values}
	heat := plotter.NewHeatMap(grid, cmap.Palette(255))
	heat.Min, heat.Max = -1, 1
	heat.NaN = nanColor

	p := plot.New()
	p.Title.Text = "Feature Correlation Heatmap"
	p.Add(heat)

	var cells plotter.XYLabels
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := grid.Z(c, r)
			if math.IsNaN(v) {
				continue
			}
			cells.XYs = append(cells.XYs, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			cells.Labels = append(cells.Labels, fmt.Sprintf("%.2f", v))
		}
	}
	if len(cells.Labels) > 0 {
		labels, err := plotter.NewLabels(cells)
		if err != nil {
			return nil, fmt.Errorf("failed to build heatmap labels: %w", err)
		}
		for i := range labels.TextStyle {
			labels.TextStyle[i].XAlign = text.XCenter
			labels.TextStyle[i].YAlign = text.YCenter
		}
		p.Add(labels)
	}

	reversed := make([]string, n)
	for i, name := range corr.Columns {
		reversed[n-1-i] = name
	}
	p.NominalX(corr.Columns...)
	p.NominalY(reversed...)
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter

	return p, nil
}

// ReturnDistribution draws the histogram with its density curve overlaid
func ReturnDistribution(dist domain.Distribution) (*plot.Plot, error) {
	if len(dist.Bins) == 0 {
		return nil, ErrNoData
	}

	hist := &plotter.Histogram{
		Bins:      make([]plotter.HistogramBin, len(dist.Bins)),
		Width:     dist.Width,
		FillColor: barColor,
		LineStyle: plotter.DefaultLineStyle,
	}
	for i, b := range dist.Bins {
		hist.Bins[i] = plotter.HistogramBin{Min: b.Low, Max: b.High, Weight: float64(b.Count)}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Distribution", dist.Column)
	p.X.Label.Text = dist.Column
	p.Y.Label.Text = "Count"
	p.Add(hist)

	if len(dist.Density) > 0 {
		pts := make(plotter.XYs, len(dist.Density))
		for i, d := range dist.Density {
			pts[i] = plotter.XY{X: d.X, Y: d.Y}
		}
		curve, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build density line: %w", err)
		}
		curve.Color = densityColor
		curve.Width = vg.Points(2)
		p.Add(curve)
		p.Legend.Add("density", curve)
		p.Legend.Top = true
	}

	return p, nil
}

// WritePNG renders p onto a canvas of the configured size and writes it as PNG
func WritePNG(w io.Writer, p *plot.Plot, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultOptions()
	}
	canvas := vgimg.PngCanvas{Canvas: vgimg.New(opts.Width, opts.Height)}
	p.Draw(draw.New(canvas))
	if _, err := canvas.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// PNG renders p to an in-memory PNG
func PNG(p *plot.Plot, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, p, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SavePNG writes p to dir/name.png and returns the file path
func SavePNG(dir, name string, p *plot.Plot, opts Options) (string, error) {
	path := filepath.Join(dir, name+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", apperrors.NewStorageError("failed to create chart file", err).WithContext("path", path)
	}
	defer f.Close()

	if err := WritePNG(f, p, opts); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", apperrors.NewStorageError("failed to close chart file", err).WithContext("path", path)
	}
	return path, nil
}
