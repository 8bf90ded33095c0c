// Package charts renders the dashboard figures: PNG quicklooks and frame
// animations from processed data trees, plus embeddable HTML previews for
// the data view.
package charts

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/wcharczuk/go-chart/v2"
)

// Generator renders figure artifacts. One instance is shared by all
// dashboards; methods are stateless.
type Generator struct {
	width       int
	panelHeight int
	stripHeight int
	frameHeight int
}

// NewGenerator creates a generator with the standard figure geometry.
func NewGenerator() *Generator {
	return &Generator{
		width:       900,
		panelHeight: 280,
		stripHeight: 220,
		frameHeight: 360,
	}
}

// renderChart renders a go-chart graph and decodes it back for composition.
func renderChart(graph chart.Chart) (image.Image, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered chart: %w", err)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
