package charts

import (
	"bytes"
	"fmt"
	"math"
	"time"

	echarts "github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// Interactive previews are embedded in the data view, so they stay small:
// long series are strided down before plotting.
const (
	maxLinePoints    = 720
	maxHeatmapWidth  = 240
	previewWidthPx   = "820px"
	previewHeightPx  = "300px"
	heatmapHeightPx  = "340px"
	previewTimeStamp = "15:04:05"
)

// SeriesPreviewHTML renders an interactive line chart of one series as a
// self-contained HTML snippet.
func (g *Generator) SeriesPreviewHTML(name string, times []time.Time, values []float64) (string, error) {
	if len(times) == 0 || len(times) != len(values) {
		return "", fmt.Errorf("series %s has %d times for %d values", name, len(times), len(values))
	}

	stride := (len(values) + maxLinePoints - 1) / maxLinePoints
	var labels []string
	var data []opts.LineData
	for i := 0; i < len(values); i += stride {
		labels = append(labels, times[i].Format(previewTimeStamp))
		data = append(data, opts.LineData{Value: values[i]})
	}

	line := echarts.NewLine()
	line.SetGlobalOptions(
		echarts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  previewWidthPx,
			Height: previewHeightPx,
		}),
		echarts.WithTitleOpts(opts.Title{
			Title: name,
		}),
		echarts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
	)

	line.SetXAxis(labels).
		AddSeries(name, data).
		SetSeriesOptions(echarts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render %s preview: %w", name, err)
	}
	return buf.String(), nil
}

// SpectrogramPreviewHTML renders the wavelet power matrix as an interactive
// heatmap. Returns an empty string without error when the group carries no
// wavelet output, so callers can skip the panel.
func (g *Generator) SpectrogramPreviewHTML(group *paldata.DataTree) (string, error) {
	power, ok := group.Var(waveletPower)
	if !ok || len(power.Shape) != 2 {
		return "", nil
	}
	freqs, ok := group.Var(waveletFreqs)
	if !ok || freqs.Len() != power.Shape[0] {
		return "", nil
	}
	nfreq, n := power.Shape[0], power.Shape[1]
	if nfreq == 0 || n == 0 {
		return "", nil
	}

	times := group.TimesAsTime()
	stride := (n + maxHeatmapWidth - 1) / maxHeatmapWidth

	maxP := 0.0
	for _, v := range power.Values {
		if !math.IsNaN(v) && v > maxP {
			maxP = v
		}
	}
	if maxP <= 0 {
		return "", nil
	}
	logMax := math.Log10(maxP)
	logMin := logMax - 3

	var xLabels []string
	var data []opts.HeatMapData
	for ti, xi := 0, 0; ti < n; ti, xi = ti+stride, xi+1 {
		label := ""
		if ti < len(times) {
			label = times[ti].Format(previewTimeStamp)
		}
		xLabels = append(xLabels, label)
		for fi := 0; fi < nfreq; fi++ {
			v := power.At(fi, ti)
			if math.IsNaN(v) || v <= 0 {
				continue
			}
			lv := math.Log10(v)
			if lv < logMin {
				lv = logMin
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{xi, fi, lv}})
		}
	}

	yLabels := make([]string, nfreq)
	for fi := 0; fi < nfreq; fi++ {
		yLabels[fi] = fmt.Sprintf("%.3g", freqs.Values[fi])
	}

	heatmap := echarts.NewHeatMap()
	heatmap.SetGlobalOptions(
		echarts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  previewWidthPx,
			Height: heatmapHeightPx,
		}),
		echarts.WithTitleOpts(opts.Title{
			Title:    "Wavelet power",
			Subtitle: "log10 scale, frequency in Hz",
		}),
		echarts.WithXAxisOpts(opts.XAxis{
			Type: "category",
			Data: xLabels,
		}),
		echarts.WithYAxisOpts(opts.YAxis{
			Type: "category",
			Data: yLabels,
		}),
		echarts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(logMin),
			Max:        float32(logMax),
			InRange: &opts.VisualMapInRange{
				Color: paletteHex(),
			},
		}),
	)

	heatmap.AddSeries("wavelet power", data)

	var buf bytes.Buffer
	if err := heatmap.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render spectrogram preview: %w", err)
	}
	return buf.String(), nil
}

// paletteHex exposes the heatmap ramp as CSS colours for echarts.
func paletteHex() []string {
	out := make([]string, len(heatPalette))
	for i, c := range heatPalette {
		out[i] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return out
}
