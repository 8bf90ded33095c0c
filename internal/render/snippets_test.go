package render

import (
	"strings"
	"testing"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
)

func TestPythonRepr_ConfigLayout(t *testing.T) {
	cfg := models.ProcessingConfig{
		DataParams: []models.DataParams{{
			Provider:   "vires",
			Collection: "SW_OPER_MAGA_LR_1B",
		}},
	}

	want := `dict(
    data_params=[
        dict(
            provider='vires',
            collection='SW_OPER_MAGA_LR_1B',
        ),
    ],
    process_params=[
    ],
)`
	got := pythonRepr(configDict(cfg), 0)
	if got != want {
		t.Errorf("unexpected layout:\n%s\nwant:\n%s", got, want)
	}
}

func TestPyScalars(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{1.0, "1.0"},
		{0.02, "0.02"},
		{0.5, "0.5"},
		{300, "300"},
		{true, "True"},
		{false, "False"},
		{"B_NEC", "'B_NEC'"},
		{"Model='CHAOS-Core'+'CHAOS-Static'", `"Model='CHAOS-Core'+'CHAOS-Static'"`},
	}
	for _, tt := range tests {
		if got := pythonRepr(tt.in, 0); got != tt.want {
			t.Errorf("pythonRepr(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCodeSnippet_CarriesProcessParams(t *testing.T) {
	cfg := models.ProcessingConfig{
		DataParams: []models.DataParams{{
			Provider:     "vires",
			Collection:   "SW_OPER_MAGA_LR_1B",
			Measurements: []string{"B_NEC"},
			Models:       []string{"Model='CHAOS-Core'+'CHAOS-Static'"},
			PadTimes:     []string{"03:00:00", "03:00:00"},
			Options:      &models.FetchOptions{Asynchronous: false, ShowProgress: false},
		}},
		ProcessParams: []models.ProcessParams{{
			ProcessName:  "TFA_Wavelet",
			MinFrequency: models.Float(0.02),
			MaxFrequency: models.Float(0.1),
			DJ:           models.Float(0.1),
		}},
	}
	md := CodeSnippetMarkdown(cfg, nil)
	for _, want := range []string{
		"```python",
		"process_name='TFA_Wavelet'",
		"min_frequency=0.02",
		"dj=0.1",
		"asynchronous=False",
		"pad_times=[",
		"'03:00:00'",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("code snippet is missing %q:\n%s", want, md)
		}
	}
}

func TestSnippets_Deterministic(t *testing.T) {
	cfg := models.ProcessingConfig{
		DataParams: []models.DataParams{{
			Provider:   "vires",
			Collection: "SW_OPER_MAGC_LR_1B",
			Filters:    []string{"OrbitDirection == 1"},
		}},
		ProcessParams: []models.ProcessParams{{
			ProcessName: "DSECS_Preprocess",
		}},
	}
	if CodeSnippetMarkdown(cfg, nil) != CodeSnippetMarkdown(cfg, nil) {
		t.Error("code snippet is not deterministic")
	}
	if CLISnippetMarkdown(cfg, nil) != CLISnippetMarkdown(cfg, nil) {
		t.Error("cli snippet is not deterministic")
	}
}

func TestSnippets_PathAliases(t *testing.T) {
	cfg := models.ProcessingConfig{
		DataParams: []models.DataParams{{
			Provider: "file",
			Filename: "/uploads/9f2c1c4e.nc",
			Filetype: "nc",
			Dataset:  "SW_OPER_MAGA_LR_1B",
		}},
	}
	aliases := map[string]string{"/uploads/9f2c1c4e.nc": "SW_OPER_MAGA_LR_1B_20260101T000000.nc"}

	code := CodeSnippetMarkdown(cfg, aliases)
	cli := CLISnippetMarkdown(cfg, aliases)
	for _, snippet := range []string{code, cli} {
		if strings.Contains(snippet, "/uploads/9f2c1c4e.nc") {
			t.Error("snippet leaks the server temp path")
		}
		if !strings.Contains(snippet, "SW_OPER_MAGA_LR_1B_20260101T000000.nc") {
			t.Error("snippet does not carry the user filename")
		}
	}
}

func TestCLISnippet_YAML(t *testing.T) {
	md := CLISnippetMarkdown(testConfig(), nil)
	for _, want := range []string{
		"```yaml",
		"provider: vires",
		"collection: SW_OPER_MAGA_LR_1B",
		"process_name: TFA_Preprocess",
		"$ swarmpal batch config.yml",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("cli snippet is missing %q:\n%s", want, md)
		}
	}
}
