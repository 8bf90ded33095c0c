package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/charts"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

func testTree(t *testing.T) *paldata.DataTree {
	t.Helper()
	tree := paldata.New()
	tree.Attrs["origin"] = "test"
	group := tree.Child("SW_OPER_MAGA_LR_1B")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, 32)
	values := make([]float64, 32)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Second)
		values[i] = float64(i % 5)
	}
	group.SetTimes(times)
	group.SetVar("TFA_Variable", paldata.NewSeries(values))
	return tree
}

func testConfig() models.ProcessingConfig {
	return models.ProcessingConfig{
		DataParams: []models.DataParams{{
			Provider:     "vires",
			Collection:   "SW_OPER_MAGA_LR_1B",
			Measurements: []string{"B_NEC"},
			StartTime:    "2026-01-01T00:00:00",
			EndTime:      "2026-01-02T00:00:00",
		}},
		ProcessParams: []models.ProcessParams{{
			ProcessName:     "TFA_Preprocess",
			Dataset:         "SW_OPER_MAGA_LR_1B",
			ActiveVariable:  "B_NEC",
			ActiveComponent: models.Int(2),
			SamplingRate:    models.Float(1.0),
		}},
	}
}

func TestDataView_NoData(t *testing.T) {
	a := NewAdapter("TFA", charts.NewGenerator(), nil)
	view := a.DataView(paldata.New(), paldata.New())
	if !strings.Contains(view, "Please fetch data first") {
		t.Errorf("expected fetch prompt, got %q", view)
	}
}

func TestDataView_Primary(t *testing.T) {
	a := NewAdapter("TFA", charts.NewGenerator(), nil)
	view := a.DataView(paldata.New(), testTree(t))
	if !strings.Contains(view, "SW_OPER_MAGA_LR_1B") {
		t.Error("primary view does not list the data group")
	}
	if !strings.Contains(view, "TFA_Variable") {
		t.Error("primary view does not list the variable")
	}
}

func TestDataView_FallbackToTextDump(t *testing.T) {
	tests := []struct {
		name string
		view ViewFunc
	}{
		{"error", func(*paldata.DataTree) (string, error) {
			return "", errors.New("boom")
		}},
		{"panic", func(*paldata.DataTree) (string, error) {
			panic("boom")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter("TFA", charts.NewGenerator(), nil)
			a.view = tt.view
			view := a.DataView(paldata.New(), testTree(t))
			if !strings.Contains(view, "paldata.DataTree") {
				t.Errorf("fallback does not name the data type: %q", view)
			}
			if !strings.HasPrefix(view, "<pre>") {
				t.Errorf("fallback is not a preformatted dump: %q", view)
			}
		})
	}
}

func TestDataView_DiagnosticWhenDumpFails(t *testing.T) {
	a := NewAdapter("TFA", charts.NewGenerator(), nil)
	a.view = func(*paldata.DataTree) (string, error) { return "", errors.New("primary down") }
	a.dump = func(*paldata.DataTree) (string, error) { return "", errors.New("dump down") }

	view := a.DataView(paldata.New(), testTree(t))
	if !strings.Contains(view, "paldata.DataTree") {
		t.Errorf("diagnostic does not name the data type: %q", view)
	}
	if !strings.Contains(view, "origin") {
		t.Errorf("diagnostic does not list attributes: %q", view)
	}
}

func TestRender_FullArtifacts(t *testing.T) {
	gen := charts.NewGenerator()
	plotted := 0
	a := NewAdapter("TFA dashboard", gen, func(tree *paldata.DataTree) (map[int][]byte, error) {
		plotted++
		return map[int][]byte{0: []byte("png-bytes")}, nil
	})

	arts := a.Render(testTree(t), testTree(t), testConfig(), nil)
	if plotted != 1 {
		t.Fatalf("plot hook ran %d times, want 1", plotted)
	}
	if arts.Title != "TFA dashboard" {
		t.Errorf("unexpected title %q", arts.Title)
	}
	if len(arts.Frames) != 1 || string(arts.Frames[0]) != "png-bytes" {
		t.Errorf("unexpected frames %v", arts.FrameKeys())
	}
	if !strings.Contains(arts.CodeSnippetMD, "swarmpal.fetch_data(config)") {
		t.Error("code snippet is missing the fetch call")
	}
	if !strings.Contains(arts.CLISnippetMD, "swarmpal batch config.yml") {
		t.Error("cli snippet is missing the batch command")
	}
	if !strings.Contains(arts.CodeSnippetHTML, "<code") {
		t.Error("code snippet HTML was not converted from markdown")
	}
	if !strings.Contains(arts.CLISnippetHTML, "<code") {
		t.Error("cli snippet HTML was not converted from markdown")
	}
}

func TestRender_PlotFailurePlaceholder(t *testing.T) {
	gen := charts.NewGenerator()
	tests := []struct {
		name string
		plot PlotFunc
	}{
		{"error", func(*paldata.DataTree) (map[int][]byte, error) {
			return nil, errors.New("no frames")
		}},
		{"panic", func(*paldata.DataTree) (map[int][]byte, error) {
			panic("no frames")
		}},
		{"empty", func(*paldata.DataTree) (map[int][]byte, error) {
			return map[int][]byte{}, nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter("DSECS", gen, tt.plot)
			arts := a.Render(testTree(t), testTree(t), testConfig(), nil)
			if len(arts.Frames) != 1 {
				t.Fatalf("expected a single placeholder frame, got %d", len(arts.Frames))
			}
			if !bytes.Equal(arts.Frames[0], gen.Unavailable()) {
				t.Error("placeholder frame does not match the unavailable image")
			}
		})
	}
}

func TestFrameKeysSorted(t *testing.T) {
	arts := Artifacts{Frames: map[int][]byte{2: nil, 0: nil, 1: nil}}
	keys := arts.FrameKeys()
	if len(keys) != 3 || keys[0] != 0 || keys[1] != 1 || keys[2] != 2 {
		t.Errorf("unexpected key order %v", keys)
	}
}
