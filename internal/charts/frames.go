package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// Group and variable names produced by the DSECS analysis.
const (
	dsecsOutputGroup = "DSECS_output"
	latitudeVar      = "Latitude"
	jPhiVar          = "JPhi"
	jThetaVar        = "JTheta"
)

// DSECSFrames renders one latitude-profile figure per analysis frame, keyed
// by frame index. Each frame shows the eastward and southward sheet current
// densities along one satellite pass.
func (g *Generator) DSECSFrames(tree *paldata.DataTree) (map[int][]byte, error) {
	if tree == nil {
		return nil, fmt.Errorf("no data tree")
	}
	out := findGroupNamed(tree, dsecsOutputGroup)
	if out == nil {
		return nil, fmt.Errorf("no %s group in tree", dsecsOutputGroup)
	}

	lat, ok := out.Var(latitudeVar)
	if !ok {
		return nil, fmt.Errorf("%s group has no %s", dsecsOutputGroup, latitudeVar)
	}
	jPhi, ok := out.Var(jPhiVar)
	if !ok {
		return nil, fmt.Errorf("%s group has no %s", dsecsOutputGroup, jPhiVar)
	}
	jTheta, ok := out.Var(jThetaVar)
	if !ok {
		return nil, fmt.Errorf("%s group has no %s", dsecsOutputGroup, jThetaVar)
	}

	nFrames := lat.Len()
	if nFrames == 0 {
		return nil, fmt.Errorf("%s holds no frames", dsecsOutputGroup)
	}
	if jPhi.Len() != nFrames || jTheta.Len() != nFrames || jPhi.Width() != lat.Width() || jTheta.Width() != lat.Width() {
		return nil, fmt.Errorf("current profiles do not match latitude grid")
	}

	times := out.TimesAsTime()
	frames := make(map[int][]byte, nFrames)
	for k := 0; k < nFrames; k++ {
		stamp := ""
		if k < len(times) {
			stamp = times[k].Format("2006-01-02 15:04:05 UTC")
		}
		data, err := g.renderCurrentProfile(varRow(lat, k), varRow(jPhi, k), varRow(jTheta, k),
			fmt.Sprintf("Ionospheric currents, pass %d of %d  %s", k+1, nFrames, stamp))
		if err != nil {
			return nil, fmt.Errorf("failed to render frame %d: %w", k, err)
		}
		frames[k] = data
	}
	return frames, nil
}

// renderCurrentProfile draws both current components against latitude for a
// single pass.
func (g *Generator) renderCurrentProfile(lats, jPhi, jTheta []float64, title string) ([]byte, error) {
	graph := chart.Chart{
		Title: title,
		TitleStyle: chart.Style{
			FontSize:  12,
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
		Height: g.frameHeight,
		XAxis: chart.XAxis{
			Name: "Latitude (deg)",
			NameStyle: chart.Style{
				FontSize: 12,
			},
			Style: chart.Style{
				FontSize: 9,
			},
		},
		YAxis: chart.YAxis{
			Name: "Current density (A/km)",
			NameStyle: chart.Style{
				FontSize: 12,
			},
			Style: chart.Style{
				FontSize: 10,
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "JPhi (eastward)",
				Style: chart.Style{
					StrokeColor: drawing.Color{R: 51, G: 102, B: 204, A: 255},
					StrokeWidth: 2,
				},
				XValues: lats,
				YValues: jPhi,
			},
			chart.ContinuousSeries{
				Name: "JTheta (southward)",
				Style: chart.Style{
					StrokeColor: drawing.Color{R: 204, G: 51, B: 51, A: 255},
					StrokeWidth: 2,
				},
				XValues: lats,
				YValues: jTheta,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// varRow extracts row i of a 2-dimensional variable.
func varRow(v *paldata.Variable, i int) []float64 {
	w := v.Width()
	out := make([]float64, w)
	for j := 0; j < w; j++ {
		out[j] = v.At(i, j)
	}
	return out
}

// findGroupNamed walks the tree for the first group with the given name.
func findGroupNamed(tree *paldata.DataTree, name string) *paldata.DataTree {
	var found *paldata.DataTree
	tree.Walk(func(path string, node *paldata.DataTree) {
		if found == nil && node.Name == name {
			found = node
		}
	})
	return found
}
