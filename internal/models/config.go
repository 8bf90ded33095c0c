// Package models defines the configuration and wire types shared between the
// dashboards, the fetch layer and the batch CLI.
package models

// ProcessingConfig is the full description of one pipeline run: which
// datasets to acquire and which processing steps to apply, in order. It is
// the unit of caching, of snippet generation and of batch CLI input, so its
// YAML and JSON forms must serialize identically for identical content.
// Struct field order is the canonical key order.
type ProcessingConfig struct {
	DataParams    []DataParams    `json:"data_params" yaml:"data_params"`
	ProcessParams []ProcessParams `json:"process_params" yaml:"process_params"`
}

// FetchOptions forwards request options to the data server.
type FetchOptions struct {
	Asynchronous bool `json:"asynchronous" yaml:"asynchronous"`
	ShowProgress bool `json:"show_progress" yaml:"show_progress"`
}

// DataParams describes one dataset acquisition. Provider selects the branch:
// "vires" uses the remote server fields, "file" uses the upload fields.
type DataParams struct {
	Provider     string        `json:"provider" yaml:"provider"`
	Collection   string        `json:"collection,omitempty" yaml:"collection,omitempty"`
	Measurements []string      `json:"measurements,omitempty" yaml:"measurements,omitempty"`
	Models       []string      `json:"models,omitempty" yaml:"models,omitempty"`
	Auxiliaries  []string      `json:"auxiliaries,omitempty" yaml:"auxiliaries,omitempty"`
	StartTime    string        `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime      string        `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	PadTimes     []string      `json:"pad_times,omitempty" yaml:"pad_times,omitempty"`
	Filters      []string      `json:"filters,omitempty" yaml:"filters,omitempty"`
	ServerURL    string        `json:"server_url,omitempty" yaml:"server_url,omitempty"`
	Options      *FetchOptions `json:"options,omitempty" yaml:"options,omitempty"`
	Filename     string        `json:"filename,omitempty" yaml:"filename,omitempty"`
	Filetype     string        `json:"filetype,omitempty" yaml:"filetype,omitempty"`
	Dataset      string        `json:"dataset,omitempty" yaml:"dataset,omitempty"`
}

// ProcessParams describes one processing step. ProcessName selects the step;
// the remaining fields are the union of the options the registered steps
// accept. Unset options stay nil so serialized configs carry only what the
// step was actually given.
type ProcessParams struct {
	ProcessName     string   `json:"process_name" yaml:"process_name"`
	Dataset         string   `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	ActiveVariable  string   `json:"active_variable,omitempty" yaml:"active_variable,omitempty"`
	ActiveComponent *int     `json:"active_component,omitempty" yaml:"active_component,omitempty"`
	SamplingRate    *float64 `json:"sampling_rate,omitempty" yaml:"sampling_rate,omitempty"`
	RemoveModel     *bool    `json:"remove_model,omitempty" yaml:"remove_model,omitempty"`
	WindowSize      *int     `json:"window_size,omitempty" yaml:"window_size,omitempty"`
	Method          string   `json:"method,omitempty" yaml:"method,omitempty"`
	Multiplier      *float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	CutoffFrequency *float64 `json:"cutoff_frequency,omitempty" yaml:"cutoff_frequency,omitempty"`
	MinFrequency    *float64 `json:"min_frequency,omitempty" yaml:"min_frequency,omitempty"`
	MaxFrequency    *float64 `json:"max_frequency,omitempty" yaml:"max_frequency,omitempty"`
	DJ              *float64 `json:"dj,omitempty" yaml:"dj,omitempty"`
	DatasetAlpha    string   `json:"dataset_alpha,omitempty" yaml:"dataset_alpha,omitempty"`
	DatasetCharlie  string   `json:"dataset_charlie,omitempty" yaml:"dataset_charlie,omitempty"`
}

// Int returns a pointer to v for optional step parameters.
func Int(v int) *int { return &v }

// Float returns a pointer to v for optional step parameters.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v for optional step parameters.
func Bool(v bool) *bool { return &v }

// IntOr dereferences p, falling back to def when unset.
func IntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// FloatOr dereferences p, falling back to def when unset.
func FloatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// BoolOr dereferences p, falling back to def when unset.
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
