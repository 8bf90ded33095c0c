package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
)

// Snippet generation is deterministic: the same config always yields
// byte-identical markdown, so cached and freshly rendered artifacts compare
// equal.

// CodeSnippetMarkdown renders the Python form of the configuration together
// with the library calls that reproduce the dashboard run.
func CodeSnippetMarkdown(cfg models.ProcessingConfig, pathAliases map[string]string) string {
	var b strings.Builder
	b.WriteString("```python\n")
	b.WriteString("import swarmpal\n\n")
	b.WriteString("config = ")
	b.WriteString(pythonRepr(configDict(cfg), 0))
	b.WriteString("\n\n")
	b.WriteString("data = swarmpal.fetch_data(config)\n")
	b.WriteString("swarmpal.apply_processes(data, config[\"process_params\"])\n")
	b.WriteString("```\n")
	return applyAliases(b.String(), pathAliases)
}

// CLISnippetMarkdown renders the YAML form of the configuration plus the
// batch command that consumes it.
func CLISnippetMarkdown(cfg models.ProcessingConfig, pathAliases map[string]string) string {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		data = []byte("# failed to serialize configuration\n")
	}
	var b strings.Builder
	b.WriteString("Save this configuration as `config.yml`:\n\n")
	b.WriteString("```yaml\n")
	b.Write(data)
	b.WriteString("```\n\n")
	b.WriteString("Then run the pipeline headless:\n\n")
	b.WriteString("```console\n$ swarmpal batch config.yml\n```\n")
	return applyAliases(b.String(), pathAliases)
}

// applyAliases substitutes server-side temp paths with the user-facing
// filenames, in sorted key order for determinism.
func applyAliases(s string, aliases map[string]string) string {
	if len(aliases) == 0 {
		return s
	}
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s = strings.ReplaceAll(s, k, aliases[k])
	}
	return s
}

// The Python literal model: ordered dicts, lists and repr-style scalars.
type pyField struct {
	Key string
	Val any
}

type pyDict []pyField

type pyList []any

// pythonRepr pretty-prints nested dicts and lists using the dict constructor
// syntax, one entry per line with four-space indent steps.
func pythonRepr(v any, indent int) string {
	nl := func(n int) string { return "\n" + strings.Repeat(" ", n) }
	switch t := v.(type) {
	case pyDict:
		var b strings.Builder
		b.WriteString("dict(")
		for _, f := range t {
			b.WriteString(nl(indent+4) + f.Key + "=")
			b.WriteString(pythonRepr(f.Val, indent+4))
			b.WriteString(",")
		}
		b.WriteString(nl(indent) + ")")
		return b.String()
	case pyList:
		var b strings.Builder
		b.WriteString("[")
		for _, item := range t {
			b.WriteString(nl(indent + 4))
			b.WriteString(pythonRepr(item, indent+4))
			b.WriteString(",")
		}
		b.WriteString(nl(indent) + "]")
		return b.String()
	case string:
		return pyStr(t)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(t)
	case float64:
		return pyFloat(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// pyStr quotes like Python's repr: single quotes by default, double quotes
// when the string itself contains single quotes.
func pyStr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// pyFloat matches Python's repr: whole floats keep a trailing .0.
func pyFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "inf") && !strings.Contains(s, "NaN") {
		s += ".0"
	}
	return s
}

// configDict lays the configuration out in canonical field order, skipping
// unset optional fields so the snippet mirrors what the dashboard sends.
func configDict(cfg models.ProcessingConfig) pyDict {
	dataParams := make(pyList, 0, len(cfg.DataParams))
	for _, dp := range cfg.DataParams {
		dataParams = append(dataParams, dataParamsDict(dp))
	}
	processParams := make(pyList, 0, len(cfg.ProcessParams))
	for _, pp := range cfg.ProcessParams {
		processParams = append(processParams, processParamsDict(pp))
	}
	return pyDict{
		{Key: "data_params", Val: dataParams},
		{Key: "process_params", Val: processParams},
	}
}

func dataParamsDict(dp models.DataParams) pyDict {
	d := pyDict{{Key: "provider", Val: dp.Provider}}
	add := func(key string, val any, set bool) {
		if set {
			d = append(d, pyField{Key: key, Val: val})
		}
	}
	add("collection", dp.Collection, dp.Collection != "")
	add("measurements", strList(dp.Measurements), len(dp.Measurements) > 0)
	add("models", strList(dp.Models), len(dp.Models) > 0)
	add("auxiliaries", strList(dp.Auxiliaries), len(dp.Auxiliaries) > 0)
	add("start_time", dp.StartTime, dp.StartTime != "")
	add("end_time", dp.EndTime, dp.EndTime != "")
	add("pad_times", strList(dp.PadTimes), len(dp.PadTimes) > 0)
	add("filters", strList(dp.Filters), len(dp.Filters) > 0)
	add("server_url", dp.ServerURL, dp.ServerURL != "")
	if dp.Options != nil {
		add("options", pyDict{
			{Key: "asynchronous", Val: dp.Options.Asynchronous},
			{Key: "show_progress", Val: dp.Options.ShowProgress},
		}, true)
	}
	add("filename", dp.Filename, dp.Filename != "")
	add("filetype", dp.Filetype, dp.Filetype != "")
	add("dataset", dp.Dataset, dp.Dataset != "")
	return d
}

func processParamsDict(pp models.ProcessParams) pyDict {
	d := pyDict{{Key: "process_name", Val: pp.ProcessName}}
	add := func(key string, val any, set bool) {
		if set {
			d = append(d, pyField{Key: key, Val: val})
		}
	}
	add("dataset", pp.Dataset, pp.Dataset != "")
	add("active_variable", pp.ActiveVariable, pp.ActiveVariable != "")
	if pp.ActiveComponent != nil {
		add("active_component", *pp.ActiveComponent, true)
	}
	if pp.SamplingRate != nil {
		add("sampling_rate", *pp.SamplingRate, true)
	}
	if pp.RemoveModel != nil {
		add("remove_model", *pp.RemoveModel, true)
	}
	if pp.WindowSize != nil {
		add("window_size", *pp.WindowSize, true)
	}
	add("method", pp.Method, pp.Method != "")
	if pp.Multiplier != nil {
		add("multiplier", *pp.Multiplier, true)
	}
	if pp.CutoffFrequency != nil {
		add("cutoff_frequency", *pp.CutoffFrequency, true)
	}
	if pp.MinFrequency != nil {
		add("min_frequency", *pp.MinFrequency, true)
	}
	if pp.MaxFrequency != nil {
		add("max_frequency", *pp.MaxFrequency, true)
	}
	if pp.DJ != nil {
		add("dj", *pp.DJ, true)
	}
	add("dataset_alpha", pp.DatasetAlpha, pp.DatasetAlpha != "")
	add("dataset_charlie", pp.DatasetCharlie, pp.DatasetCharlie != "")
	return d
}

func strList(items []string) pyList {
	out := make(pyList, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
