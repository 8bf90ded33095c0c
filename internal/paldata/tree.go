// Package paldata defines the in-memory dataset handle shared by fetchers,
// processing steps and renderers. A DataTree mirrors the hierarchical
// structure of Swarm products: named groups carrying a time index, variables
// and attributes, with nested subgroups for derived outputs.
package paldata

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Variable holds one named array inside a group. Values are stored flat in
// row-major order; Shape describes the logical dimensions. Scalar series have
// Shape [n], vector series like B_NEC have Shape [n, 3].
type Variable struct {
	Dims   []string          `json:"dims,omitempty"`
	Shape  []int             `json:"shape"`
	Values []float64         `json:"values"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// Len returns the length of the leading dimension.
func (v *Variable) Len() int {
	if len(v.Shape) == 0 {
		return 0
	}
	return v.Shape[0]
}

// Width returns the size of the second dimension, or 1 for flat series.
func (v *Variable) Width() int {
	if len(v.Shape) < 2 {
		return 1
	}
	w := 1
	for _, s := range v.Shape[1:] {
		w *= s
	}
	return w
}

// At reads element (i, j) of a 2-dimensional variable.
func (v *Variable) At(i, j int) float64 {
	return v.Values[i*v.Width()+j]
}

// Column extracts component j as a new slice.
func (v *Variable) Column(j int) []float64 {
	n := v.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = v.At(i, j)
	}
	return out
}

// Copy returns a deep copy of the variable.
func (v *Variable) Copy() *Variable {
	c := &Variable{
		Dims:   append([]string(nil), v.Dims...),
		Shape:  append([]int(nil), v.Shape...),
		Values: append([]float64(nil), v.Values...),
	}
	if v.Attrs != nil {
		c.Attrs = make(map[string]string, len(v.Attrs))
		for k, val := range v.Attrs {
			c.Attrs[k] = val
		}
	}
	return c
}

// NewSeries builds a flat variable from a slice of samples.
func NewSeries(values []float64) *Variable {
	return &Variable{Shape: []int{len(values)}, Values: append([]float64(nil), values...)}
}

// DataTree is the dataset handle passed between pipeline stages. The zero
// value is not usable; construct with New.
type DataTree struct {
	Name     string               `json:"name,omitempty"`
	Attrs    map[string]string    `json:"attrs,omitempty"`
	Times    []int64              `json:"times,omitempty"`
	Vars     map[string]*Variable `json:"vars,omitempty"`
	Children map[string]*DataTree `json:"children,omitempty"`
}

// New returns an empty root tree.
func New() *DataTree {
	return &DataTree{
		Attrs:    make(map[string]string),
		Vars:     make(map[string]*Variable),
		Children: make(map[string]*DataTree),
	}
}

// Child returns the named subgroup, creating it when absent.
func (t *DataTree) Child(name string) *DataTree {
	if t.Children == nil {
		t.Children = make(map[string]*DataTree)
	}
	if c, ok := t.Children[name]; ok {
		return c
	}
	c := New()
	c.Name = name
	t.Children[name] = c
	return c
}

// Group resolves a slash-separated path like "SW_OPER_MAGA_LR_1B" or
// "DSECS_output/currents". An empty path returns the tree itself.
func (t *DataTree) Group(path string) (*DataTree, bool) {
	if path == "" {
		return t, true
	}
	cur := t
	for _, part := range strings.Split(path, "/") {
		next, ok := cur.Children[part]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// HasGroup reports whether a group with the given name exists anywhere in the
// tree, at any depth.
func (t *DataTree) HasGroup(name string) bool {
	found := false
	t.Walk(func(path string, node *DataTree) {
		if node.Name == name {
			found = true
		}
	})
	return found
}

// SetVar stores a variable on the group.
func (t *DataTree) SetVar(name string, v *Variable) {
	if t.Vars == nil {
		t.Vars = make(map[string]*Variable)
	}
	t.Vars[name] = v
}

// Var looks up a variable on the group.
func (t *DataTree) Var(name string) (*Variable, bool) {
	v, ok := t.Vars[name]
	return v, ok
}

// GroupNames returns the direct child names in sorted order.
func (t *DataTree) GroupNames() []string {
	names := make([]string, 0, len(t.Children))
	for name := range t.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VarNames returns the group's variable names in sorted order.
func (t *DataTree) VarNames() []string {
	names := make([]string, 0, len(t.Vars))
	for name := range t.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Walk visits the tree depth-first in sorted child order. The root is visited
// with an empty path; children with their slash-joined path.
func (t *DataTree) Walk(fn func(path string, node *DataTree)) {
	t.walk("", fn)
}

func (t *DataTree) walk(path string, fn func(string, *DataTree)) {
	fn(path, t)
	for _, name := range t.GroupNames() {
		childPath := name
		if path != "" {
			childPath = path + "/" + name
		}
		t.Children[name].walk(childPath, fn)
	}
}

// DeepCopy clones the whole tree. Processing steps operate on copies so the
// raw dataset held by a dashboard is never mutated.
func (t *DataTree) DeepCopy() *DataTree {
	c := New()
	c.Name = t.Name
	for k, v := range t.Attrs {
		c.Attrs[k] = v
	}
	c.Times = append([]int64(nil), t.Times...)
	for name, v := range t.Vars {
		c.Vars[name] = v.Copy()
	}
	for name, child := range t.Children {
		c.Children[name] = child.DeepCopy()
	}
	return c
}

// IsEmpty reports whether no group in the tree carries any variables.
func (t *DataTree) IsEmpty() bool {
	if t == nil {
		return true
	}
	empty := true
	t.Walk(func(path string, node *DataTree) {
		if len(node.Vars) > 0 {
			empty = false
		}
	})
	return empty
}

// TimesAsTime converts the group's epoch-millisecond index to time.Time.
func (t *DataTree) TimesAsTime() []time.Time {
	out := make([]time.Time, len(t.Times))
	for i, ms := range t.Times {
		out[i] = time.UnixMilli(ms).UTC()
	}
	return out
}

// SetTimes stores a time index from time.Time values.
func (t *DataTree) SetTimes(times []time.Time) {
	t.Times = make([]int64, len(times))
	for i, tt := range times {
		t.Times[i] = tt.UnixMilli()
	}
}

// String renders a compact textual dump of the tree, one line per group and
// variable. Used as the data-view fallback when HTML rendering fails.
func (t *DataTree) String() string {
	var b strings.Builder
	b.WriteString("<paldata.DataTree>\n")
	t.Walk(func(path string, node *DataTree) {
		indent := strings.Repeat("  ", strings.Count(path, "/")+1)
		if path == "" {
			indent = ""
		} else {
			fmt.Fprintf(&b, "%sGroup: %s (%d samples)\n", indent, path, len(node.Times))
		}
		for _, name := range node.VarNames() {
			v := node.Vars[name]
			fmt.Fprintf(&b, "%s  %s %v (%s)\n", indent, name, v.Shape, summarize(v.Values))
		}
		for _, k := range sortedKeys(node.Attrs) {
			fmt.Fprintf(&b, "%s  @%s = %s\n", indent, k, node.Attrs[k])
		}
	})
	return b.String()
}

func summarize(values []float64) string {
	if len(values) == 0 {
		return "empty"
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	nan := 0
	for _, v := range values {
		if math.IsNaN(v) {
			nan++
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if nan == len(values) {
		return "all NaN"
	}
	return fmt.Sprintf("min %.4g max %.4g", lo, hi)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
