package render

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// NoDataHTML is the notice shown before any data has been fetched.
const NoDataHTML = `<div class="notice">Please fetch data first</div>`

// DataView renders the data pane. It prefers the processed tree, falls back
// to the raw tree, and prompts for a fetch when neither holds data. Display
// failures degrade primary view -> text dump -> diagnostic; the last step
// cannot fail.
func (a *Adapter) DataView(raw, processed *paldata.DataTree) string {
	tree := processed
	if tree.IsEmpty() {
		tree = raw
	}
	if tree.IsEmpty() {
		return NoDataHTML
	}

	out, err := a.safeView(a.view, "data view", tree)
	if err == nil {
		return out
	}
	a.log.Warnf("primary data view failed, using text dump: %v", err)

	out, err = a.safeView(a.dump, "text dump", tree)
	if err == nil {
		return out
	}
	a.log.Warnf("text dump failed, using diagnostic: %v", err)
	return diagnostic(tree)
}

// safeView runs a view function with panic recovery.
func (a *Adapter) safeView(fn ViewFunc, stage string, tree *paldata.DataTree) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", &RenderError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	out, err = fn(tree)
	if err != nil {
		err = &RenderError{Stage: stage, Err: err}
	}
	return out, err
}

// primaryView is the default data view: a table of groups and variables plus
// interactive previews of the processed series when present. Preview failures
// drop the preview rather than the whole view.
func (a *Adapter) primaryView(tree *paldata.DataTree) (string, error) {
	var b strings.Builder
	b.WriteString(`<div class="data-view">`)
	b.WriteString(`<table class="data-tree">`)
	b.WriteString("<tr><th>Group</th><th>Samples</th><th>Variable</th><th>Shape</th><th>Units</th></tr>")
	tree.Walk(func(path string, node *paldata.DataTree) {
		if path == "" && len(node.Vars) == 0 {
			return
		}
		label := path
		if label == "" {
			label = "/"
		}
		names := node.VarNames()
		if len(names) == 0 {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td></td><td></td><td></td></tr>",
				escapeHTML(label), len(node.Times))
			return
		}
		for i, name := range names {
			v := node.Vars[name]
			group, samples := "", ""
			if i == 0 {
				group = escapeHTML(label)
				samples = fmt.Sprintf("%d", len(node.Times))
			}
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%v</td><td>%s</td></tr>",
				group, samples, escapeHTML(name), v.Shape, escapeHTML(v.Attrs["units"]))
		}
	})
	b.WriteString("</table>")

	if group := firstGroupWith(tree, "TFA_Variable"); group != nil {
		v, _ := group.Var("TFA_Variable")
		if v != nil && v.Len() == len(group.Times) && v.Len() > 1 {
			if snippet, err := a.gen.SeriesPreviewHTML("TFA_Variable", group.TimesAsTime(), v.Column(0)); err == nil {
				b.WriteString(`<div class="chart-container">` + snippet + `</div>`)
			} else {
				a.log.Warnf("series preview skipped: %v", err)
			}
		}
		if snippet, err := a.gen.SpectrogramPreviewHTML(group); err == nil && snippet != "" {
			b.WriteString(`<div class="chart-container">` + snippet + `</div>`)
		} else if err != nil {
			a.log.Warnf("spectrogram preview skipped: %v", err)
		}
	}

	b.WriteString("</div>")
	return b.String(), nil
}

// textDump is the first fallback: the tree's own textual rendering in a
// preformatted block. The dump names the concrete type on its first line.
func textDump(tree *paldata.DataTree) (string, error) {
	return "<pre>" + escapeHTML(tree.String()) + "</pre>", nil
}

// diagnostic is the last line of defense and only performs map iteration and
// string formatting.
func diagnostic(tree *paldata.DataTree) string {
	return fmt.Sprintf(`<div class="diagnostic">Unable to display data of type %T. Groups: %s. Attributes: %s.</div>`,
		tree,
		escapeHTML(strings.Join(tree.GroupNames(), ", ")),
		escapeHTML(strings.Join(attrKeys(tree), ", ")))
}

func attrKeys(tree *paldata.DataTree) []string {
	keys := make([]string, 0, len(tree.Attrs))
	for k := range tree.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// firstGroupWith walks the tree for the first group carrying the named
// variable.
func firstGroupWith(tree *paldata.DataTree, varName string) *paldata.DataTree {
	var found *paldata.DataTree
	tree.Walk(func(path string, node *paldata.DataTree) {
		if found != nil {
			return
		}
		if _, ok := node.Var(varName); ok {
			found = node
		}
	})
	return found
}

func escapeHTML(s string) string { return html.EscapeString(s) }
