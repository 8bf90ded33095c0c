package paldata

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

func buildSampleTree() *DataTree {
	tree := New()
	grp := tree.Child("SW_OPER_MAGA_LR_1B")
	grp.Times = []int64{1000, 2000, 3000}
	grp.SetVar("B_NEC", &Variable{
		Dims:   []string{"Timestamp", "NEC"},
		Shape:  []int{3, 3},
		Values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
	})
	grp.Attrs["SOURCES"] = "CHAOS"
	return tree
}

func TestGroupLookup(t *testing.T) {
	tree := buildSampleTree()
	tree.Child("DSECS_output").Child("currents")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"root", "", true},
		{"top level group", "SW_OPER_MAGA_LR_1B", true},
		{"nested group", "DSECS_output/currents", true},
		{"missing group", "SW_OPER_MAGB_LR_1B", false},
		{"missing nested", "DSECS_output/potentials", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tree.Group(tt.path)
			if ok != tt.want {
				t.Errorf("Group(%q) ok = %v, want %v", tt.path, ok, tt.want)
			}
		})
	}

	if !tree.HasGroup("currents") {
		t.Error("HasGroup should find nested groups by name")
	}
	if tree.HasGroup("nope") {
		t.Error("HasGroup found a group that does not exist")
	}
}

func TestVariableAccess(t *testing.T) {
	tree := buildSampleTree()
	grp, _ := tree.Group("SW_OPER_MAGA_LR_1B")
	v, ok := grp.Var("B_NEC")
	if !ok {
		t.Fatal("B_NEC variable missing")
	}
	if v.Len() != 3 || v.Width() != 3 {
		t.Fatalf("unexpected dimensions: len=%d width=%d", v.Len(), v.Width())
	}
	if got := v.At(1, 2); got != 6 {
		t.Errorf("At(1,2) = %v, want 6", got)
	}
	col := v.Column(2)
	if !reflect.DeepEqual(col, []float64{3, 6, 9}) {
		t.Errorf("Column(2) = %v", col)
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	tree := buildSampleTree()
	clone := tree.DeepCopy()

	grp, _ := clone.Group("SW_OPER_MAGA_LR_1B")
	v, _ := grp.Var("B_NEC")
	v.Values[0] = math.NaN()
	grp.Times[0] = 999
	grp.Attrs["SOURCES"] = "changed"
	clone.Child("extra")

	orig, _ := tree.Group("SW_OPER_MAGA_LR_1B")
	ov, _ := orig.Var("B_NEC")
	if math.IsNaN(ov.Values[0]) {
		t.Error("mutating the copy changed the original values")
	}
	if orig.Times[0] != 1000 {
		t.Error("mutating the copy changed the original time index")
	}
	if orig.Attrs["SOURCES"] != "CHAOS" {
		t.Error("mutating the copy changed the original attrs")
	}
	if _, ok := tree.Group("extra"); ok {
		t.Error("adding a group to the copy changed the original")
	}
}

func TestIsEmpty(t *testing.T) {
	if !New().IsEmpty() {
		t.Error("fresh tree should be empty")
	}
	var nilTree *DataTree
	if !nilTree.IsEmpty() {
		t.Error("nil tree should be empty")
	}
	if buildSampleTree().IsEmpty() {
		t.Error("tree with variables should not be empty")
	}
	onlyGroups := New()
	onlyGroups.Child("a").Child("b")
	if !onlyGroups.IsEmpty() {
		t.Error("tree with groups but no variables should be empty")
	}
}

func TestStringDumpNamesType(t *testing.T) {
	dump := buildSampleTree().String()
	if !strings.HasPrefix(dump, "<paldata.DataTree>") {
		t.Errorf("dump should start with the type name, got %q", dump[:40])
	}
	if !strings.Contains(dump, "SW_OPER_MAGA_LR_1B") {
		t.Error("dump should list group names")
	}
	if !strings.Contains(dump, "B_NEC") {
		t.Error("dump should list variable names")
	}
}

func TestTimeConversion(t *testing.T) {
	tree := New()
	grp := tree.Child("g")
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	grp.SetTimes([]time.Time{ref, ref.Add(time.Second)})
	got := grp.TimesAsTime()
	if !got[0].Equal(ref) || !got[1].Equal(ref.Add(time.Second)) {
		t.Errorf("round trip mismatch: %v", got)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	tree := buildSampleTree()
	data, err := Marshal(tree)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	grp, ok := back.Group("SW_OPER_MAGA_LR_1B")
	if !ok {
		t.Fatal("group lost in round trip")
	}
	v, ok := grp.Var("B_NEC")
	if !ok {
		t.Fatal("variable lost in round trip")
	}
	if !reflect.DeepEqual(v.Values, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Errorf("values changed in round trip: %v", v.Values)
	}
	if !reflect.DeepEqual(grp.Times, []int64{1000, 2000, 3000}) {
		t.Errorf("times changed in round trip: %v", grp.Times)
	}
	// restored trees must accept writes without nil map panics
	back.Child("new").SetVar("x", NewSeries([]float64{1}))
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte("{not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
