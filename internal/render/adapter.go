// Package render converts dashboard state into display artifacts: the data
// view pane, the plot frames and the code/CLI snippets. Rendering is a pure
// function of (raw, processed, config) and never fails the pipeline; every
// error path degrades to a fallback representation.
package render

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/charts"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/logger"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// Artifacts is the display output for one dashboard state. Artifacts are
// cached alongside the data, so a restored dashboard paints without
// recomputing anything.
type Artifacts struct {
	Title           string         `json:"title"`
	DataViewHTML    string         `json:"data_view_html"`
	Frames          map[int][]byte `json:"frames,omitempty"`
	CodeSnippetMD   string         `json:"code_snippet_md"`
	CodeSnippetHTML string         `json:"code_snippet_html"`
	CLISnippetMD    string         `json:"cli_snippet_md"`
	CLISnippetHTML  string         `json:"cli_snippet_html"`
}

// FrameKeys returns the frame indexes in ascending order.
func (a *Artifacts) FrameKeys() []int {
	keys := make([]int, 0, len(a.Frames))
	for k := range a.Frames {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// PlotFunc renders the dashboard figure set from a processed tree, keyed by
// frame index. Single-figure dashboards return one entry under key 0.
type PlotFunc func(tree *paldata.DataTree) (map[int][]byte, error)

// ViewFunc renders the primary data-view HTML.
type ViewFunc func(tree *paldata.DataTree) (string, error)

// Adapter renders artifacts for one dashboard. The plot hook is what makes
// an adapter dashboard-specific; the data view and snippets are generic.
type Adapter struct {
	title string
	gen   *charts.Generator
	plot  PlotFunc
	view  ViewFunc
	dump  ViewFunc
	md    goldmark.Markdown
	log   *logger.Logger
}

// NewAdapter wires an adapter for a dashboard. gen must not be nil; plot may
// be nil for dashboards without figures.
func NewAdapter(title string, gen *charts.Generator, plot PlotFunc) *Adapter {
	a := &Adapter{
		title: title,
		gen:   gen,
		plot:  plot,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
		),
		log: logger.Component("render"),
	}
	a.view = a.primaryView
	a.dump = textDump
	return a
}

// Render produces the full artifact set. pathAliases maps server-side temp
// upload paths to the filename the user knows, applied to both snippets.
func (a *Adapter) Render(raw, processed *paldata.DataTree, cfg models.ProcessingConfig, pathAliases map[string]string) Artifacts {
	arts := Artifacts{Title: a.title}
	arts.DataViewHTML = a.DataView(raw, processed)
	arts.Frames = a.renderFrames(processed)

	arts.CodeSnippetMD = CodeSnippetMarkdown(cfg, pathAliases)
	arts.CodeSnippetHTML = a.markdownHTML("code snippet", arts.CodeSnippetMD)
	arts.CLISnippetMD = CLISnippetMarkdown(cfg, pathAliases)
	arts.CLISnippetHTML = a.markdownHTML("cli snippet", arts.CLISnippetMD)
	return arts
}

// Pending is the placeholder frame shown while an operation is in flight.
func (a *Adapter) Pending() []byte { return a.gen.Pending() }

// Unavailable is the placeholder frame for a key with no rendered image.
func (a *Adapter) Unavailable() []byte { return a.gen.Unavailable() }

// renderFrames calls the plot hook, recovering from panics. Any failure or
// an empty result yields a single placeholder frame.
func (a *Adapter) renderFrames(tree *paldata.DataTree) map[int][]byte {
	if a.plot == nil {
		return nil
	}
	frames, err := a.safePlot(tree)
	if err != nil {
		a.log.Warnf("figure rendering failed, using placeholder: %v", err)
	}
	if len(frames) == 0 {
		return map[int][]byte{0: a.gen.Unavailable()}
	}
	return frames
}

func (a *Adapter) safePlot(tree *paldata.DataTree) (frames map[int][]byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			frames, err = nil, &RenderError{Stage: "plot", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	frames, err = a.plot(tree)
	if err != nil {
		err = &RenderError{Stage: "plot", Err: err}
	}
	return frames, err
}

// markdownHTML converts a markdown snippet for the display pane, falling
// back to a preformatted block when conversion fails.
func (a *Adapter) markdownHTML(stage, md string) string {
	var buf bytes.Buffer
	if err := a.md.Convert([]byte(md), &buf); err != nil {
		a.log.Warnf("%v", &RenderError{Stage: stage, Err: err})
		return "<pre>" + escapeHTML(md) + "</pre>"
	}
	return buf.String()
}
