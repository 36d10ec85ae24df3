package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/groundtruth/dataset"
)

// seriesColors is the palette used for per-component lines.
var seriesColors = []color.Color{
	color.RGBA{R: 214, G: 72, B: 54, A: 255},
	color.RGBA{R: 57, G: 139, B: 59, A: 255},
	color.RGBA{R: 64, G: 83, B: 211, A: 255},
	color.RGBA{R: 178, G: 124, B: 15, A: 255},
}

// SavePNGs writes PNG plots for the dataset into dir, creating it if
// needed, and returns the paths written. Components the dataset does
// not carry are skipped.
func SavePNGs(dir string, ds *dataset.Dataset) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot dir: %w", err)
	}

	var written []string

	if ds.PositionSeries() != nil {
		posFile := filepath.Join(dir, "positions.png")
		if err := savePositionPlot(posFile, ds); err != nil {
			return written, err
		}
		written = append(written, posFile)

		pathFile := filepath.Join(dir, "path_xy.png")
		if err := savePathPlot(pathFile, ds); err != nil {
			return written, err
		}
		written = append(written, pathFile)
	}

	if ds.OrientationSeries() != nil {
		orientFile := filepath.Join(dir, "orientation.png")
		if err := saveOrientationPlot(orientFile, ds); err != nil {
			return written, err
		}
		written = append(written, orientFile)
	}

	return written, nil
}

func savePositionPlot(path string, ds *dataset.Dataset) error {
	series := ds.PositionSeries()

	p := plot.New()
	p.Title.Text = "Position"
	p.X.Label.Text = "t (s)"
	p.Y.Label.Text = "position (m)"

	components := []struct {
		label string
		value func(i int) float64
	}{
		{"x", func(i int) float64 { _, v := series.At(i); return v.X }},
		{"y", func(i int) float64 { _, v := series.At(i); return v.Y }},
		{"z", func(i int) float64 { _, v := series.At(i); return v.Z }},
	}

	for ci, comp := range components {
		pts := make(plotter.XYs, series.Len())
		for i := 0; i < series.Len(); i++ {
			t, _ := series.At(i)
			pts[i] = plotter.XY{X: t, Y: comp.value(i)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("position %s line: %w", comp.label, err)
		}
		line.Color = seriesColors[ci]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(comp.label, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save position plot: %w", err)
	}
	return nil
}

func savePathPlot(path string, ds *dataset.Dataset) error {
	series := ds.PositionSeries()

	p := plot.New()
	p.Title.Text = "Path (top down)"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	pts := make(plotter.XYs, series.Len())
	for i := 0; i < series.Len(); i++ {
		_, v := series.At(i)
		pts[i] = plotter.XY{X: v.X, Y: v.Y}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("path line: %w", err)
	}
	line.Color = seriesColors[2]
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save path plot: %w", err)
	}
	return nil
}

func saveOrientationPlot(path string, ds *dataset.Dataset) error {
	series := ds.OrientationSeries()

	p := plot.New()
	p.Title.Text = "Orientation"
	p.X.Label.Text = "t (s)"
	p.Y.Label.Text = "quaternion component"

	components := []struct {
		label string
		value func(i int) float64
	}{
		{"w", func(i int) float64 { _, q := series.At(i); return q.Real }},
		{"i", func(i int) float64 { _, q := series.At(i); return q.Imag }},
		{"j", func(i int) float64 { _, q := series.At(i); return q.Jmag }},
		{"k", func(i int) float64 { _, q := series.At(i); return q.Kmag }},
	}

	for ci, comp := range components {
		pts := make(plotter.XYs, series.Len())
		for i := 0; i < series.Len(); i++ {
			t, _ := series.At(i)
			pts[i] = plotter.XY{X: t, Y: comp.value(i)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("orientation %s line: %w", comp.label, err)
		}
		line.Color = seriesColors[ci]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(comp.label, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save orientation plot: %w", err)
	}
	return nil
}
