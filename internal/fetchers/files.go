package fetchers

import (
	"fmt"
	"os"
	"strings"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// readFileInto loads an uploaded dataset file and merges it into tree under
// the dataset name. Filetype selects the reader; NetCDF-family extensions
// share one reader since uploaded Swarm products are NetCDF4/HDF5 containers.
func readFileInto(tree *paldata.DataTree, p models.DataParams) error {
	if p.Filename == "" {
		return &FetchError{Source: "file", Err: fmt.Errorf("filename is required")}
	}

	switch strings.ToLower(p.Filetype) {
	case "nc", "nc4", "netcdf", "h5", "hdf5", "cdf":
		return readNetCDFInto(tree, p.Filename, p.Dataset)
	case "json":
		return readJSONInto(tree, p.Filename, p.Dataset)
	default:
		return &FetchError{Source: p.Filename, Err: fmt.Errorf("unsupported filetype %q", p.Filetype)}
	}
}

// readJSONInto loads a serialized tree dump. The decoded root is grafted
// under the dataset name unless it already carries named groups.
func readJSONInto(tree *paldata.DataTree, filename, dataset string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return &FetchError{Source: filename, Err: err}
	}
	decoded, err := paldata.Unmarshal(data)
	if err != nil {
		return &FetchError{Source: filename, Err: err}
	}

	if len(decoded.Children) > 0 {
		for name, child := range decoded.Children {
			tree.Children[name] = child
		}
		for k, v := range decoded.Attrs {
			tree.Attrs[k] = v
		}
		return nil
	}

	name := dataset
	if name == "" {
		name = "uploaded"
	}
	decoded.Name = name
	tree.Children[name] = decoded
	return nil
}
