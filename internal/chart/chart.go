// Package chart renders a numeric column over its row index as a PNG line
// chart, with the outlier band and flagged values overlaid.
package chart

import (
	"bytes"
	"errors"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/dataset"
)

// ErrTooFewPoints is returned when a column has fewer than two values to plot.
var ErrTooFewPoints = errors.New("need at least two values to plot")

// Options controls the rendered image.
type Options struct {
	Width  int
	Height int
	// BandWidth is k in mean ± kσ; 0 means analysis.DefaultBandWidth.
	BandWidth float64
	// HideBand suppresses the band lines and anomaly markers.
	HideBand bool
}

// DefaultOptions returns a size suited to the web dashboard and the PDF.
func DefaultOptions() Options {
	return Options{Width: 900, Height: 360, BandWidth: analysis.DefaultBandWidth}
}

var (
	lineColor    = drawing.ColorFromHex("1f77b4")
	bandColor    = drawing.ColorFromHex("ff7f0e")
	anomalyColor = drawing.ColorRed
)

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 0,
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    4,
		DotColor:    col,
	}
}

// LinePNG renders col as a PNG. Missing values are skipped; the x axis is
// the 0-based row index.
func LinePNG(col *dataset.Column, opt Options) ([]byte, error) {
	if err := analysis.RequireNumeric(col); err != nil {
		return nil, err
	}
	if opt.Width <= 0 || opt.Height <= 0 {
		d := DefaultOptions()
		opt.Width, opt.Height = d.Width, d.Height
	}
	if opt.BandWidth <= 0 {
		opt.BandWidth = analysis.DefaultBandWidth
	}
	rows, vals := col.Present()
	if len(vals) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrTooFewPoints, col.Name)
	}
	xs := make([]float64, len(rows))
	for i, r := range rows {
		xs[i] = float64(r)
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    col.Name,
			XValues: xs,
			YValues: vals,
			Style:   chart.Style{StrokeColor: lineColor, StrokeWidth: 1.5},
		},
	}
	if !opt.HideBand {
		if lo, hi, ok := analysis.BandK(col, opt.BandWidth); ok && lo != hi {
			edge := []float64{xs[0], xs[len(xs)-1]}
			band := chart.Style{StrokeColor: bandColor, StrokeWidth: 1, StrokeDashArray: []float64{5, 4}}
			series = append(series,
				chart.ContinuousSeries{Name: fmt.Sprintf("+%.0fσ", opt.BandWidth), XValues: edge, YValues: []float64{hi, hi}, Style: band},
				chart.ContinuousSeries{Name: fmt.Sprintf("-%.0fσ", opt.BandWidth), XValues: edge, YValues: []float64{lo, lo}, Style: band},
			)
		}
		anoms := analysis.DetectOutliersK(col, opt.BandWidth)
		if len(anoms) > 0 {
			ax := make([]float64, len(anoms))
			ay := make([]float64, len(anoms))
			for i, a := range anoms {
				ax[i], ay[i] = float64(a.Row), a.Value
			}
			// a single point still needs two x values
			if len(ax) == 1 {
				ax = append(ax, ax[0])
				ay = append(ay, ay[0])
			}
			series = append(series, chart.ContinuousSeries{Name: "anomalieën", XValues: ax, YValues: ay, Style: pointStyle(anomalyColor)})
		}
	}

	yName := col.Name
	if col.Unit != "" {
		yName = col.Unit
	}
	ch := chart.Chart{
		Title:      col.Name,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: chart.Style{Padding: chart.Box{Top: 30, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "rij"},
		YAxis:      chart.YAxis{Name: yName},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart %s: %w", col.Name, err)
	}
	return buf.Bytes(), nil
}
