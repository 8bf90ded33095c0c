package dashboard

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// WidgetKind enumerates the input control types a dashboard can declare.
type WidgetKind string

const (
	KindFloat    WidgetKind = "float"
	KindInt      WidgetKind = "int"
	KindSelect   WidgetKind = "select"
	KindRadio    WidgetKind = "radio"
	KindDatetime WidgetKind = "datetime"
	KindFile     WidgetKind = "file"
)

// WidgetSpec declares one input control with its constraints and default.
// ProcessParam marks widgets whose changes re-run the processing chain
// without a new fetch; data-source widgets leave it false.
type WidgetSpec struct {
	Name         string     `json:"name"`
	Label        string     `json:"label"`
	Kind         WidgetKind `json:"kind"`
	Default      any        `json:"default,omitempty"`
	Min          float64    `json:"min,omitempty"`
	Max          float64    `json:"max,omitempty"`
	Step         float64    `json:"step,omitempty"`
	Options      []string   `json:"options,omitempty"`
	ProcessParam bool       `json:"process_param,omitempty"`
}

// FileInput is the uploaded-file slot value.
type FileInput struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// Datetime widgets accept these layouts, first match wins.
var datetimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// Inputs holds the current widget values for one dashboard. Setters validate
// against the widget spec; successful changes to process-parameter widgets
// signal the change channel consumed by the controller's watcher.
type Inputs struct {
	mu      sync.RWMutex
	specs   []WidgetSpec
	byName  map[string]WidgetSpec
	values  map[string]any
	files   map[string]FileInput
	changes chan struct{}
}

// NewInputs validates the widget declarations and applies their defaults.
func NewInputs(specs []WidgetSpec) (*Inputs, error) {
	in := &Inputs{
		specs:   append([]WidgetSpec(nil), specs...),
		byName:  make(map[string]WidgetSpec, len(specs)),
		values:  make(map[string]any, len(specs)),
		files:   make(map[string]FileInput),
		changes: make(chan struct{}, 64),
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("widget without a name")
		}
		if _, dup := in.byName[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate widget %q", spec.Name)
		}
		in.byName[spec.Name] = spec
		if spec.Kind == KindFile {
			continue
		}
		if spec.Default == nil {
			return nil, fmt.Errorf("widget %q has no default", spec.Name)
		}
		if err := in.validate(spec, spec.Default); err != nil {
			return nil, fmt.Errorf("widget %q default: %w", spec.Name, err)
		}
		in.values[spec.Name] = spec.Default
	}
	return in, nil
}

// Specs returns the widget declarations in their declared order.
func (in *Inputs) Specs() []WidgetSpec {
	return append([]WidgetSpec(nil), in.specs...)
}

// Changes is the single-consumer channel signalled on every accepted change
// of a process-parameter widget.
func (in *Inputs) Changes() <-chan struct{} {
	return in.changes
}

// Set parses and stores a widget value from its string form, as posted by
// the UI. File widgets are set through SetFile instead.
func (in *Inputs) Set(name, raw string) error {
	spec, ok := in.lookup(name)
	if !ok {
		return fmt.Errorf("unknown widget %q", name)
	}
	if spec.Kind == KindFile {
		return fmt.Errorf("widget %q takes an uploaded file, not a value", name)
	}

	value, err := parseValue(spec, raw)
	if err != nil {
		return fmt.Errorf("widget %q: %w", name, err)
	}
	if err := in.validate(spec, value); err != nil {
		return fmt.Errorf("widget %q: %w", name, err)
	}

	in.mu.Lock()
	in.values[name] = value
	in.mu.Unlock()

	if spec.ProcessParam {
		in.signal()
	}
	return nil
}

// SetFile stores the uploaded-file slot. Uploads do not signal the change
// channel; they take effect on the next explicit fetch.
func (in *Inputs) SetFile(name string, file FileInput) error {
	spec, ok := in.lookup(name)
	if !ok {
		return fmt.Errorf("unknown widget %q", name)
	}
	if spec.Kind != KindFile {
		return fmt.Errorf("widget %q is not a file slot", name)
	}
	in.mu.Lock()
	in.files[name] = file
	in.mu.Unlock()
	return nil
}

// Float returns a float widget's current value.
func (in *Inputs) Float(name string) float64 {
	in.mu.RLock()
	defer in.mu.RUnlock()
	v, _ := in.values[name].(float64)
	return v
}

// Int returns an int widget's current value.
func (in *Inputs) Int(name string) int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	v, _ := in.values[name].(int)
	return v
}

// String returns a select or radio widget's current value.
func (in *Inputs) String(name string) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	v, _ := in.values[name].(string)
	return v
}

// Time returns a datetime widget's current value.
func (in *Inputs) Time(name string) time.Time {
	in.mu.RLock()
	defer in.mu.RUnlock()
	v, _ := in.values[name].(time.Time)
	return v
}

// File returns the uploaded-file slot, reporting whether one is present.
func (in *Inputs) File(name string) (FileInput, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	f, ok := in.files[name]
	return f, ok && f.Path != ""
}

// Values returns a snapshot of all current widget values keyed by name.
// Datetime values are formatted ISO-8601; file slots report the user-facing
// filename.
func (in *Inputs) Values() map[string]any {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make(map[string]any, len(in.values)+len(in.files))
	for k, v := range in.values {
		if t, ok := v.(time.Time); ok {
			out[k] = t.Format("2006-01-02T15:04:05")
			continue
		}
		out[k] = v
	}
	for k, f := range in.files {
		out[k] = f.Name
	}
	return out
}

func (in *Inputs) lookup(name string) (WidgetSpec, bool) {
	spec, ok := in.byName[name]
	return spec, ok
}

// signal never blocks; a full channel already carries a pending wake-up for
// the draining watcher.
func (in *Inputs) signal() {
	select {
	case in.changes <- struct{}{}:
	default:
	}
}

func parseValue(spec WidgetSpec, raw string) (any, error) {
	switch spec.Kind {
	case KindFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", raw)
		}
		return v, nil
	case KindInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", raw)
		}
		return v, nil
	case KindSelect, KindRadio:
		return raw, nil
	case KindDatetime:
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("not a timestamp: %q", raw)
	default:
		return nil, fmt.Errorf("unsupported widget kind %q", spec.Kind)
	}
}

func (in *Inputs) validate(spec WidgetSpec, value any) error {
	switch spec.Kind {
	case KindFloat:
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("expected a number")
		}
		if spec.Max > spec.Min && (v < spec.Min || v > spec.Max) {
			return fmt.Errorf("%g out of range [%g, %g]", v, spec.Min, spec.Max)
		}
	case KindInt:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("expected an integer")
		}
		if spec.Max > spec.Min && (float64(v) < spec.Min || float64(v) > spec.Max) {
			return fmt.Errorf("%d out of range [%g, %g]", v, spec.Min, spec.Max)
		}
	case KindSelect, KindRadio:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected an option")
		}
		for _, opt := range spec.Options {
			if v == opt {
				return nil
			}
		}
		return fmt.Errorf("%q is not one of %v", v, spec.Options)
	case KindDatetime:
		if _, ok := value.(time.Time); !ok {
			return fmt.Errorf("expected a timestamp")
		}
	}
	return nil
}
