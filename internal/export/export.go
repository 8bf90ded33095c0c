// Package export serializes processed data trees for download and batch
// output. Three encodings are supported: long-format Parquet, pretty JSON
// and gzip-compressed JSON.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/klauspost/pgzip"
	"github.com/parquet-go/parquet-go"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// Format selects the export encoding.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
	FormatJSONGz  Format = "json.gz"
)

// ParseFormat maps a user-supplied format string to a Format. An empty
// string defaults to JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatParquet:
		return FormatParquet, nil
	case FormatJSONGz:
		return FormatJSONGz, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Ext returns the filename extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatParquet:
		return "parquet"
	case FormatJSONGz:
		return "json.gz"
	default:
		return "json"
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatParquet:
		return "application/vnd.apache.parquet"
	case FormatJSONGz:
		return "application/gzip"
	default:
		return "application/json"
	}
}

// Row is one sample cell in long format. TimeMS carries the group timestamp
// for variables whose leading axis is time; variables on other axes (for
// example a spectrogram's frequency rows) carry zero.
type Row struct {
	Group     string  `parquet:"group"`
	TimeMS    int64   `parquet:"time_ms"`
	Variable  string  `parquet:"variable"`
	Component int32   `parquet:"component"`
	Value     float64 `parquet:"value"`
}

// Write encodes the tree to w in the requested format.
func Write(w io.Writer, tree *paldata.DataTree, format Format) error {
	if tree.IsEmpty() {
		return fmt.Errorf("no data to export")
	}
	switch format {
	case FormatParquet:
		return writeParquet(w, tree)
	case FormatJSON:
		return writeJSON(w, tree)
	case FormatJSONGz:
		return writeJSONGz(w, tree)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// Rows flattens the tree into long format, groups and variables in sorted
// walk order, samples in row-major order.
func Rows(tree *paldata.DataTree) []Row {
	var rows []Row
	tree.Walk(func(path string, node *paldata.DataTree) {
		if len(node.Vars) == 0 {
			return
		}
		group := path
		if group == "" {
			group = "/"
		}
		names := make([]string, 0, len(node.Vars))
		for name := range node.Vars {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			v := node.Vars[name]
			timeAligned := v.Len() == len(node.Times)
			for i := 0; i < v.Len(); i++ {
				var ts int64
				if timeAligned {
					ts = node.Times[i]
				}
				for j := 0; j < v.Width(); j++ {
					rows = append(rows, Row{
						Group:     group,
						TimeMS:    ts,
						Variable:  name,
						Component: int32(j),
						Value:     v.At(i, j),
					})
				}
			}
		}
	})
	return rows
}

func writeParquet(w io.Writer, tree *paldata.DataTree) error {
	rows := Rows(tree)
	if len(rows) == 0 {
		return fmt.Errorf("no data to export")
	}
	pw := parquet.NewGenericWriter[Row](w)
	for len(rows) > 0 {
		n, err := pw.Write(rows)
		if err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
		rows = rows[n:]
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, tree *paldata.DataTree) error {
	data, err := sonic.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tree: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON export: %w", err)
	}
	return nil
}

func writeJSONGz(w io.Writer, tree *paldata.DataTree) error {
	gz := pgzip.NewWriter(w)
	if err := writeJSON(gz, tree); err != nil {
		gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finalize gzip stream: %w", err)
	}
	return nil
}
