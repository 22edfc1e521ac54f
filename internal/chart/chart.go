// Package chart renders the rolling window as a PNG line chart.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"smart_environment/internal/models"
)

// ErrNotEnoughPoints is returned when fewer than two samples are available;
// a line needs two.
var ErrNotEnoughPoints = errors.New("chart needs at least two samples")

const (
	DefaultWidth  = 800
	DefaultHeight = 360
)

type Options struct {
	Width  int
	Height int
	Title  string
}

func lineStyle(s gochart.Style) gochart.Style {
	s.StrokeWidth = 2
	s.DotWidth = 3
	return s
}

// paddedRange keeps the axis valid when every value is the same.
func paddedRange(vals []float64) *gochart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func sameInstant(ts []time.Time) bool {
	for _, t := range ts[1:] {
		if !t.Equal(ts[0]) {
			return false
		}
	}
	return true
}

// RenderPNG draws temperature on the primary axis and humidity plus numeric
// air quality on the secondary axis.
func RenderPNG(w io.Writer, samples []models.Sample, opts Options) error {
	if len(samples) < 2 {
		return ErrNotEnoughPoints
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	times := make([]time.Time, len(samples))
	temps := make([]float64, len(samples))
	hums := make([]float64, len(samples))
	var aqIdx []int
	var aqVals []float64
	for i, s := range samples {
		times[i] = s.CapturedAt
		temps[i] = s.TemperatureC
		hums[i] = s.HumidityPct
		if v, ok := s.AirQuality.Numeric(); ok {
			aqIdx = append(aqIdx, i)
			aqVals = append(aqVals, v)
		}
	}

	// Providers that stamp samples with an upstream observation time can
	// fill the window with one timestamp; plot by position instead.
	byIndex := sameInstant(times)
	line := func(name string, idx []int, ys []float64, axis gochart.YAxisType, color drawing.Color) gochart.Series {
		style := lineStyle(gochart.Style{StrokeColor: color, DotColor: color})
		if byIndex {
			xs := make([]float64, len(idx))
			for i, j := range idx {
				xs[i] = float64(j)
			}
			return gochart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, YAxis: axis, Style: style}
		}
		ts := make([]time.Time, len(idx))
		for i, j := range idx {
			ts[i] = times[j]
		}
		return gochart.TimeSeries{Name: name, XValues: ts, YValues: ys, YAxis: axis, Style: style}
	}

	all := make([]int, len(samples))
	for i := range all {
		all[i] = i
	}
	series := []gochart.Series{
		line("Temperature (°C)", all, temps, gochart.YAxisPrimary, gochart.ColorRed),
		line("Humidity (%)", all, hums, gochart.YAxisSecondary, gochart.ColorBlue),
	}
	secondary := hums
	if len(aqVals) >= 2 {
		series = append(series, line("Air quality", aqIdx, aqVals, gochart.YAxisSecondary, gochart.ColorGreen))
		secondary = append(append([]float64{}, hums...), aqVals...)
	}

	xAxis := gochart.XAxis{ValueFormatter: gochart.TimeValueFormatterWithFormat("15:04:05")}
	if byIndex {
		xAxis = gochart.XAxis{
			Name: "sample @ " + times[0].UTC().Format("15:04:05"),
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("#%d", int(f)+1)
				}
				return ""
			},
		}
	}

	ch := gochart.Chart{
		Title:          opts.Title,
		Width:          opts.Width,
		Height:         opts.Height,
		Background:     gochart.Style{Padding: gochart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16}},
		XAxis:          xAxis,
		YAxis:          gochart.YAxis{Name: "°C", Range: paddedRange(temps)},
		YAxisSecondary: gochart.YAxis{Name: "% / AQI", Range: paddedRange(secondary)},
		Series:         series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
