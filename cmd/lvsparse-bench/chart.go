// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Chart size.
const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// writeChart plots stage time (ms) versus density, one line per stage.
// The file extension of cfg.out selects the image format.
func writeChart(cfg config, results []result) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("lvsparse %dx%d %v %v", cfg.rows, cfg.cols, cfg.typ, cfg.format)
	p.X.Label.Text = "density"
	p.Y.Label.Text = "time (ms)"
	p.Add(plotter.NewGrid())

	series := []struct {
		name string
		get  func(result) time.Duration
	}{
		{"analyze", func(r result) time.Duration { return r.analyze }},
		{"convert", func(r result) time.Duration { return r.convert }},
		{"spvv", func(r result) time.Duration { return r.spvv }},
		{"sddmm", func(r result) time.Duration { return r.sddmm }},
	}
	if cfg.webgpu && len(results) > 0 && results[0].transfer > 0 {
		series = append(series, struct {
			name string
			get  func(result) time.Duration
		}{"webgpu", func(r result) time.Duration { return r.transfer }})
	}

	var args []any
	for _, s := range series {
		args = append(args, s.name, points(results, s.get))
	}
	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	p.Legend.Top = true

	if err := p.Save(chartWidth, chartHeight, cfg.out); err != nil {
		return fmt.Errorf("chart: %w", err)
	}

	return nil
}

func points(results []result, get func(result) time.Duration) plotter.XYs {
	xys := make(plotter.XYs, len(results))
	for i, r := range results {
		xys[i].X = r.density
		xys[i].Y = float64(get(r)) / float64(time.Millisecond)
	}

	return xys
}
