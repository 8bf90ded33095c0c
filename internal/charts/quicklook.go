package charts

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// Variable names produced by the TFA processing chain.
const (
	tfaVariable  = "TFA_Variable"
	waveletPower = "wavelet_power"
	waveletFreqs = "wavelet_frequencies"
)

// Heatmap palette, low to high. Same ramp as the HTML previews so the PNG
// and interactive views read the same way.
var heatPalette = []color.RGBA{
	{R: 0x31, G: 0x36, B: 0x95, A: 0xff},
	{R: 0x45, G: 0x75, B: 0xb4, A: 0xff},
	{R: 0x74, G: 0xad, B: 0xd1, A: 0xff},
	{R: 0xab, G: 0xd9, B: 0xe9, A: 0xff},
	{R: 0xe0, G: 0xf3, B: 0xf8, A: 0xff},
	{R: 0xff, G: 0xff, B: 0xbf, A: 0xff},
	{R: 0xfe, G: 0xe0, B: 0x90, A: 0xff},
	{R: 0xfd, G: 0xae, B: 0x61, A: 0xff},
	{R: 0xf4, G: 0x6d, B: 0x43, A: 0xff},
	{R: 0xd7, G: 0x30, B: 0x27, A: 0xff},
	{R: 0xa5, G: 0x00, B: 0x26, A: 0xff},
}

// TFAQuicklook renders the time-frequency quicklook figure: the preprocessed
// series panel on top and, when the wavelet step has run, the spectrogram
// strip underneath sharing the same time span.
func (g *Generator) TFAQuicklook(tree *paldata.DataTree) ([]byte, error) {
	if tree == nil {
		return nil, fmt.Errorf("no data tree")
	}
	group, series := findSeries(tree, tfaVariable)
	if series == nil {
		return nil, fmt.Errorf("no %s variable in tree", tfaVariable)
	}

	times := group.TimesAsTime()
	if len(times) < 2 || len(times) != series.Len() {
		return nil, fmt.Errorf("series and time index mismatch: %d times, %d samples", len(times), series.Len())
	}
	values := series.Column(0)

	graph := chart.Chart{
		Title: quicklookTitle(group),
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: drawing.ColorBlack,
		},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   70,
				Right:  20,
				Bottom: 40,
			},
		},
		Width:  g.width,
		Height: g.panelHeight,
		XAxis: chart.XAxis{
			Name: "Time (UTC)",
			NameStyle: chart.Style{
				FontSize: 12,
			},
			Style: chart.Style{
				FontSize: 9,
			},
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(time.Time); ok {
					return t.Format("15:04")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name: "Field (nT)",
			NameStyle: chart.Style{
				FontSize: 12,
			},
			Style: chart.Style{
				FontSize: 10,
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: tfaVariable,
				Style: chart.Style{
					StrokeColor: drawing.Color{R: 51, G: 102, B: 204, A: 255},
					StrokeWidth: 2,
				},
				XValues: times,
				YValues: values,
			},
		},
	}

	panel, err := renderChart(graph)
	if err != nil {
		return nil, fmt.Errorf("failed to render series panel: %w", err)
	}

	strip := g.spectrogramStrip(group)
	if strip == nil {
		return encodePNG(panel)
	}

	out := image.NewRGBA(image.Rect(0, 0, g.width, panel.Bounds().Dy()+strip.Bounds().Dy()))
	draw.Draw(out, out.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(out, panel.Bounds(), panel, image.Point{}, draw.Src)
	draw.Draw(out, strip.Bounds().Add(image.Pt(0, panel.Bounds().Dy())), strip, image.Point{}, draw.Src)
	return encodePNG(out)
}

// spectrogramStrip paints the wavelet power matrix as a heatmap, time along
// the X axis and log-spaced frequency rows bottom-up. Returns nil when the
// wavelet output is absent or unusable, so the quicklook degrades to the
// series panel alone.
func (g *Generator) spectrogramStrip(group *paldata.DataTree) image.Image {
	power, ok := group.Var(waveletPower)
	if !ok || len(power.Shape) != 2 {
		return nil
	}
	nfreq, n := power.Shape[0], power.Shape[1]
	if nfreq < 1 || n < 2 {
		return nil
	}

	maxP := 0.0
	for _, v := range power.Values {
		if !math.IsNaN(v) && v > maxP {
			maxP = v
		}
	}
	if maxP <= 0 || math.IsInf(maxP, 1) {
		return nil
	}

	const (
		marginLeft  = 70
		marginRight = 20
		marginTop   = 8
		marginBot   = 8
	)
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.stripHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	plotW := g.width - marginLeft - marginRight
	plotH := g.stripHeight - marginTop - marginBot
	if plotW < 2 || plotH < 2 {
		return nil
	}

	// Power spans orders of magnitude; map the top three decades onto the
	// colour ramp.
	logMax := math.Log10(maxP)
	for py := 0; py < plotH; py++ {
		fi := (nfreq - 1) - py*(nfreq-1)/(plotH-1)
		for px := 0; px < plotW; px++ {
			ti := px * (n - 1) / (plotW - 1)
			v := power.At(fi, ti)
			if math.IsNaN(v) {
				continue
			}
			t := 0.0
			if v > 0 {
				t = (math.Log10(v) - logMax + 3) / 3
			}
			img.Set(marginLeft+px, marginTop+py, heatColor(t))
		}
	}

	if freqs, ok := group.Var(waveletFreqs); ok && freqs.Len() == nfreq {
		top := fmt.Sprintf("%.3g Hz", freqs.Values[nfreq-1])
		bot := fmt.Sprintf("%.3g Hz", freqs.Values[0])
		drawLabel(img, top, 4, marginTop+10)
		drawLabel(img, bot, 4, marginTop+plotH-2)
	}

	return img
}

// heatColor maps t in [0, 1] onto the palette with linear interpolation
// between stops.
func heatColor(t float64) color.RGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	pos := t * float64(len(heatPalette)-1)
	i := int(pos)
	if i >= len(heatPalette)-1 {
		return heatPalette[len(heatPalette)-1]
	}
	frac := pos - float64(i)
	a, b := heatPalette[i], heatPalette[i+1]
	return color.RGBA{
		R: uint8(float64(a.R) + frac*(float64(b.R)-float64(a.R))),
		G: uint8(float64(a.G) + frac*(float64(b.G)-float64(a.G))),
		B: uint8(float64(a.B) + frac*(float64(b.B)-float64(a.B))),
		A: 0xff,
	}
}

// quicklookTitle labels the figure with the source collection and component.
func quicklookTitle(group *paldata.DataTree) string {
	title := "Time-frequency analysis"
	if group.Name != "" {
		title += " " + group.Name
	}
	if src, ok := group.Attrs["tfa_source"]; ok {
		title += " " + src
	}
	return title
}

// findSeries walks the tree for the first group carrying the named variable.
func findSeries(tree *paldata.DataTree, name string) (*paldata.DataTree, *paldata.Variable) {
	var group *paldata.DataTree
	var found *paldata.Variable
	tree.Walk(func(path string, node *paldata.DataTree) {
		if found != nil {
			return
		}
		if v, ok := node.Var(name); ok {
			group, found = node, v
		}
	})
	return group, found
}
