package fetchers

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// readNetCDFInto reads a NetCDF/HDF5 container into tree. The file's root
// group lands under the dataset name; subgroups keep their own names so an
// uploaded analysis result (DSECS_output etc.) survives the round trip.
func readNetCDFInto(tree *paldata.DataTree, filename, dataset string) error {
	nc, err := netcdf.Open(filename)
	if err != nil {
		return &FetchError{Source: filename, Err: err}
	}
	defer nc.Close()

	name := dataset
	if name == "" {
		name = "uploaded"
	}
	root := tree.Child(name)
	if err := readGroup(nc, root); err != nil {
		return &FetchError{Source: filename, Err: err}
	}
	return nil
}

func readGroup(g api.Group, dst *paldata.DataTree) error {
	copyAttrs(g.Attributes(), dst.Attrs)

	for _, varName := range g.ListVariables() {
		nv, err := g.GetVariable(varName)
		if err != nil {
			return fmt.Errorf("failed to read variable %s: %w", varName, err)
		}
		values, shape, err := flattenValues(nv.Values)
		if err != nil {
			return fmt.Errorf("variable %s: %w", varName, err)
		}

		attrs := make(map[string]string)
		copyAttrs(nv.Attributes, attrs)
		if len(attrs) == 0 {
			attrs = nil
		}

		if isTimeVariable(varName, attrs) && len(shape) == 1 {
			dst.Times = decodeTimes(values, attrs)
			continue
		}

		dst.SetVar(varName, &paldata.Variable{
			Dims:   append([]string(nil), nv.Dimensions...),
			Shape:  shape,
			Values: values,
			Attrs:  attrs,
		})
	}

	for _, subName := range g.ListSubgroups() {
		sub, err := g.GetGroup(subName)
		if err != nil {
			return fmt.Errorf("failed to open group %s: %w", subName, err)
		}
		child := dst.Child(subName)
		err = readGroup(sub, child)
		sub.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func copyAttrs(am api.AttributeMap, dst map[string]string) {
	if am == nil {
		return
	}
	for _, key := range am.Keys() {
		val, has := am.Get(key)
		if !has {
			continue
		}
		dst[key] = fmt.Sprintf("%v", val)
	}
}

// flattenValues converts the reader's nested typed slices into a flat
// row-major []float64 plus the original shape. Non-numeric payloads
// (strings, compound types) are rejected.
func flattenValues(values any) ([]float64, []int, error) {
	if values == nil {
		return nil, nil, fmt.Errorf("no values")
	}

	var shape []int
	v := reflect.ValueOf(values)
	for v.Kind() == reflect.Slice {
		shape = append(shape, v.Len())
		if v.Len() == 0 {
			break
		}
		v = v.Index(0)
	}
	if len(shape) == 0 {
		f, err := toFloat(reflect.ValueOf(values))
		if err != nil {
			return nil, nil, err
		}
		return []float64{f}, []int{1}, nil
	}

	total := 1
	for _, s := range shape {
		total *= s
	}
	flat := make([]float64, 0, total)
	var walk func(rv reflect.Value) error
	walk = func(rv reflect.Value) error {
		if rv.Kind() == reflect.Slice {
			for i := 0; i < rv.Len(); i++ {
				if err := walk(rv.Index(i)); err != nil {
					return err
				}
			}
			return nil
		}
		f, err := toFloat(rv)
		if err != nil {
			return err
		}
		flat = append(flat, f)
		return nil
	}
	if err := walk(reflect.ValueOf(values)); err != nil {
		return nil, nil, err
	}
	return flat, shape, nil
}

func toFloat(rv reflect.Value) (float64, error) {
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	default:
		return 0, fmt.Errorf("unsupported value kind %s", rv.Kind())
	}
}

func isTimeVariable(name string, attrs map[string]string) bool {
	switch strings.ToLower(name) {
	case "timestamp", "time", "timestamps":
		return true
	}
	if attrs != nil {
		if units, ok := attrs["units"]; ok && strings.Contains(units, " since ") {
			return true
		}
	}
	return false
}

// decodeTimes converts a raw time axis to epoch milliseconds. An attr-tagged
// unit like "seconds since 2000-01-01T00:00:00" sets scale and origin;
// otherwise values are taken as epoch milliseconds already.
func decodeTimes(values []float64, attrs map[string]string) []int64 {
	scaleMS := 1.0
	var origin int64

	if attrs != nil {
		if units, ok := attrs["units"]; ok {
			if idx := strings.Index(units, " since "); idx > 0 {
				switch strings.ToLower(strings.TrimSpace(units[:idx])) {
				case "seconds", "second", "s":
					scaleMS = 1000
				case "milliseconds", "millisecond", "ms":
					scaleMS = 1
				case "microseconds", "microsecond", "us":
					scaleMS = 0.001
				case "nanoseconds", "nanosecond", "ns":
					scaleMS = 1e-6
				case "days", "day":
					scaleMS = 86400 * 1000
				}
				origin = parseEpoch(strings.TrimSpace(units[idx+len(" since "):]))
			}
		}
	}

	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = origin + int64(v*scaleMS)
	}
	return out
}

func parseEpoch(s string) int64 {
	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
