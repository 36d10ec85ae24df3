// Package report renders built datasets as HTML chart pages and PNG
// plots for visual inspection.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/groundtruth/dataset"
)

// speedSampleCount is the number of trajectory samples drawn on the
// speed chart.
const speedSampleCount = 200

// WriteHTML renders an HTML page of charts for the dataset: position
// and orientation sample series, trajectory speed, and the landmark
// cloud. Components the dataset does not carry are skipped.
func WriteHTML(w io.Writer, ds *dataset.Dataset, name string) error {
	page := components.NewPage()
	page.PageTitle = name

	if chart := positionChart(ds, name); chart != nil {
		page.AddCharts(chart)
	}
	if chart := orientationChart(ds, name); chart != nil {
		page.AddCharts(chart)
	}
	if chart := speedChart(ds, name); chart != nil {
		page.AddCharts(chart)
	}
	if chart := landmarkChart(ds, name); chart != nil {
		page.AddCharts(chart)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report page: %w", err)
	}
	return nil
}

// WriteHTMLFile renders the dataset report to a file at path.
func WriteHTMLFile(path string, ds *dataset.Dataset, name string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := WriteHTML(file, ds, name); err != nil {
		return err
	}
	return file.Close()
}

func positionChart(ds *dataset.Dataset, name string) components.Charter {
	series := ds.PositionSeries()
	if series == nil {
		return nil
	}

	xs := make([]string, 0, series.Len())
	dataX := make([]opts.LineData, 0, series.Len())
	dataY := make([]opts.LineData, 0, series.Len())
	dataZ := make([]opts.LineData, 0, series.Len())
	for i := 0; i < series.Len(); i++ {
		t, v := series.At(i)
		xs = append(xs, formatTime(t))
		dataX = append(dataX, opts.LineData{Value: v.X})
		dataY = append(dataY, opts.LineData{Value: v.Y})
		dataZ = append(dataZ, opts.LineData{Value: v.Z})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Position", Subtitle: fmt.Sprintf("dataset=%s samples=%d", name, series.Len())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "position (m)"}),
	)
	line.SetXAxis(xs).
		AddSeries("x", dataX).
		AddSeries("y", dataY).
		AddSeries("z", dataZ)
	return line
}

func orientationChart(ds *dataset.Dataset, name string) components.Charter {
	series := ds.OrientationSeries()
	if series == nil {
		return nil
	}

	xs := make([]string, 0, series.Len())
	dataW := make([]opts.LineData, 0, series.Len())
	dataX := make([]opts.LineData, 0, series.Len())
	dataY := make([]opts.LineData, 0, series.Len())
	dataZ := make([]opts.LineData, 0, series.Len())
	for i := 0; i < series.Len(); i++ {
		t, q := series.At(i)
		xs = append(xs, formatTime(t))
		dataW = append(dataW, opts.LineData{Value: q.Real})
		dataX = append(dataX, opts.LineData{Value: q.Imag})
		dataY = append(dataY, opts.LineData{Value: q.Jmag})
		dataZ = append(dataZ, opts.LineData{Value: q.Kmag})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Orientation", Subtitle: fmt.Sprintf("dataset=%s samples=%d", name, series.Len())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "quaternion component"}),
	)
	line.SetXAxis(xs).
		AddSeries("w", dataW).
		AddSeries("i", dataX).
		AddSeries("j", dataY).
		AddSeries("k", dataZ)
	return line
}

func speedChart(ds *dataset.Dataset, name string) components.Charter {
	traj := ds.Trajectory()
	series := ds.PositionSeries()
	if traj == nil || series == nil || series.Len() < 2 {
		return nil
	}

	start := series.StartTime()
	end := series.EndTime()
	step := (end - start) / float64(speedSampleCount-1)

	xs := make([]string, 0, speedSampleCount)
	data := make([]opts.LineData, 0, speedSampleCount)
	for i := 0; i < speedSampleCount; i++ {
		t := start + float64(i)*step
		if i == speedSampleCount-1 {
			t = end
		}
		v, err := traj.Velocity(t)
		if err != nil {
			continue
		}
		xs = append(xs, formatTime(t))
		data = append(data, opts.LineData{Value: r3.Norm(v)})
	}
	if len(data) == 0 {
		return nil
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Speed", Subtitle: fmt.Sprintf("dataset=%s spline samples=%d", name, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "speed (m/s)"}),
	)
	line.SetXAxis(xs).AddSeries("speed", data)
	return line
}

func landmarkChart(ds *dataset.Dataset, name string) components.Charter {
	landmarks := ds.Landmarks()
	if len(landmarks) == 0 {
		return nil
	}

	data := make([]opts.ScatterData, 0, len(landmarks))
	maxAbs := 0.0
	maxSeen := 0
	for _, lm := range landmarks {
		if abs := absMax(lm.Position.X, lm.Position.Y); abs > maxAbs {
			maxAbs = abs
		}
		seen := len(lm.VisibleInFrames)
		if seen > maxSeen {
			maxSeen = seen
		}
		data = append(data, opts.ScatterData{Value: []interface{}{lm.Position.X, lm.Position.Y, seen}})
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxSeen == 0 {
		maxSeen = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Landmarks", Subtitle: fmt.Sprintf("dataset=%s points=%d", name, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxSeen),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	scatter.AddSeries("landmarks", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}

func formatTime(t float64) string {
	return strconv.FormatFloat(t, 'f', 3, 64)
}

func absMax(a, b float64) float64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}
