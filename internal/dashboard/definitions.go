package dashboard

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
)

// Input-source options.
const (
	SourceVires = "vires"
	SourceFile  = "file"
)

// FileWidget is the upload slot every dashboard exposes.
const FileWidget = "file-dropper"

const isoLayout = "2006-01-02T15:04:05"

var spacecraftCollections = map[string]string{
	"Swarm-A": "SW_OPER_MAGA_LR_1B",
	"Swarm-B": "SW_OPER_MAGB_LR_1B",
	"Swarm-C": "SW_OPER_MAGC_LR_1B",
}

// Product filenames carry a timestamp and version tail after the product
// name, e.g. SW_OPER_MAGA_LR_1B_20260101T000000_20260102T000000_0606.
var productTailRe = regexp.MustCompile(`_\d{8}T\d{6}.*$`)

// Definition describes one dashboard: its identity, widget declarations and
// the pure config builder mapping inputs to a pipeline configuration.
type Definition struct {
	Name    string
	Title   string
	Widgets []WidgetSpec

	// BuildConfig derives the pipeline configuration from the current
	// inputs. It performs no I/O and no mutation; identical inputs yield
	// identical configs.
	BuildConfig func(in *Inputs) (models.ProcessingConfig, error)
}

// NewInputs builds the dashboard's input collector with defaults applied.
func (d Definition) NewInputs() (*Inputs, error) {
	return NewInputs(d.Widgets)
}

// TFADefinition is the time-frequency analysis dashboard. serverURL is the
// data server carried into configs and snippets.
func TFADefinition(serverURL string) Definition {
	widgets := []WidgetSpec{
		{Name: "input-source", Label: "Input source", Kind: KindRadio,
			Options: []string{SourceVires, SourceFile}, Default: SourceVires},
		{Name: "spacecraft", Label: "Spacecraft", Kind: KindRadio,
			Options: []string{"Swarm-A", "Swarm-B", "Swarm-C"}, Default: "Swarm-A"},
		{Name: "start-time", Label: "Start time", Kind: KindDatetime,
			Default: mustTime("2026-01-01T00:00:00")},
		{Name: "end-time", Label: "End time", Kind: KindDatetime,
			Default: mustTime("2026-01-02T00:00:00")},
		{Name: FileWidget, Label: "Upload file", Kind: KindFile},
		{Name: "preprocess-active-component", Label: "Active Component", Kind: KindInt,
			Min: 0, Max: 2, Step: 1, Default: 2, ProcessParam: true},
		{Name: "preprocess-sampling-rate", Label: "Sampling Rate", Kind: KindFloat,
			Min: 0.1, Max: 10.0, Step: 1.0, Default: 1.0, ProcessParam: true},
		{Name: "clean-window-size", Label: "Window Size", Kind: KindInt,
			Min: 100, Max: 1000, Step: 100, Default: 300, ProcessParam: true},
		{Name: "clean-multiplier", Label: "Multiplier", Kind: KindFloat,
			Min: 0.1, Max: 2.0, Step: 0.1, Default: 0.5, ProcessParam: true},
		{Name: "clean-method", Label: "Method", Kind: KindSelect,
			Options: []string{"iqr", "normal"}, Default: "iqr", ProcessParam: true},
		{Name: "filter-cutoff", Label: "Cut off frequency", Kind: KindFloat,
			Min: 0.001, Max: 0.2, Step: 0.001, Default: 0.02, ProcessParam: true},
		{Name: "wavelet-min-frequency", Label: "Minimum frequency", Kind: KindFloat,
			Min: 0.0, Max: 0.2, Step: 0.001, Default: 0.02, ProcessParam: true},
		{Name: "wavelet-max-frequency", Label: "Maximum frequency", Kind: KindFloat,
			Min: 0.0, Max: 0.2, Step: 0.001, Default: 0.1, ProcessParam: true},
		{Name: "wavelet-dj", Label: "DJ", Kind: KindFloat,
			Min: 0.0, Max: 1.0, Step: 0.01, Default: 0.1, ProcessParam: true},
	}

	return Definition{
		Name:    "tfa",
		Title:   "SwarmPAL TFA Quicklook",
		Widgets: widgets,
		BuildConfig: func(in *Inputs) (models.ProcessingConfig, error) {
			dataParams, product, err := tfaDataParams(in, serverURL)
			if err != nil {
				return models.ProcessingConfig{}, err
			}
			return models.ProcessingConfig{
				DataParams: dataParams,
				ProcessParams: []models.ProcessParams{
					{
						ProcessName:     "TFA_Preprocess",
						Dataset:         product,
						ActiveVariable:  "B_NEC",
						ActiveComponent: models.Int(in.Int("preprocess-active-component")),
						SamplingRate:    models.Float(in.Float("preprocess-sampling-rate")),
						RemoveModel:     models.Bool(false),
					},
					{
						ProcessName: "TFA_Clean",
						WindowSize:  models.Int(in.Int("clean-window-size")),
						Method:      in.String("clean-method"),
						Multiplier:  models.Float(in.Float("clean-multiplier")),
					},
					{
						ProcessName:     "TFA_Filter",
						CutoffFrequency: models.Float(in.Float("filter-cutoff")),
					},
					{
						ProcessName:  "TFA_Wavelet",
						MinFrequency: models.Float(in.Float("wavelet-min-frequency")),
						MaxFrequency: models.Float(in.Float("wavelet-max-frequency")),
						DJ:           models.Float(in.Float("wavelet-dj")),
					},
				},
			}, nil
		},
	}
}

// DSECSDefinition is the dual-spacecraft current estimation dashboard. It
// always fetches the Alpha and Charlie collections together.
func DSECSDefinition(serverURL string) Definition {
	widgets := []WidgetSpec{
		{Name: "input-source", Label: "Input source", Kind: KindRadio,
			Options: []string{SourceVires, SourceFile}, Default: SourceVires},
		{Name: "start-time", Label: "Start time", Kind: KindDatetime,
			Default: mustTime("2016-03-18T11:00:00")},
		{Name: "end-time", Label: "End time", Kind: KindDatetime,
			Default: mustTime("2016-03-18T13:00:00")},
		{Name: FileWidget, Label: "Upload file", Kind: KindFile},
	}

	return Definition{
		Name:    "dsecs",
		Title:   "SwarmPAL DSECS Currents",
		Widgets: widgets,
		BuildConfig: func(in *Inputs) (models.ProcessingConfig, error) {
			var dataParams []models.DataParams
			if in.String("input-source") == SourceFile {
				file, ok := in.File(FileWidget)
				if !ok {
					return models.ProcessingConfig{}, &MissingInputError{Input: "uploaded file"}
				}
				dataParams = []models.DataParams{fileDataParams(file)}
			} else {
				start := in.Time("start-time").Format(isoLayout)
				end := in.Time("end-time").Format(isoLayout)
				for _, collection := range []string{"SW_OPER_MAGA_LR_1B", "SW_OPER_MAGC_LR_1B"} {
					dataParams = append(dataParams, models.DataParams{
						Provider:     "vires",
						Collection:   collection,
						Measurements: []string{"B_NEC"},
						Models:       []string{"Model = CHAOS"},
						Auxiliaries:  []string{"QDLat"},
						StartTime:    start,
						EndTime:      end,
						Filters:      []string{"OrbitDirection == 1"},
						ServerURL:    serverURL,
						Options:      &models.FetchOptions{Asynchronous: false, ShowProgress: false},
					})
				}
			}
			return models.ProcessingConfig{
				DataParams: dataParams,
				ProcessParams: []models.ProcessParams{
					{ProcessName: "DSECS_Preprocess"},
					{ProcessName: "DSECS_Analysis"},
				},
			}, nil
		},
	}
}

func tfaDataParams(in *Inputs, serverURL string) ([]models.DataParams, string, error) {
	if in.String("input-source") == SourceFile {
		file, ok := in.File(FileWidget)
		if !ok {
			return nil, "", &MissingInputError{Input: "uploaded file"}
		}
		dp := fileDataParams(file)
		return []models.DataParams{dp}, dp.Dataset, nil
	}

	product, ok := spacecraftCollections[in.String("spacecraft")]
	if !ok {
		product = "SW_OPER_MAGA_LR_1B"
	}
	return []models.DataParams{{
		Provider:     "vires",
		Collection:   product,
		Measurements: []string{"B_NEC"},
		Models:       []string{"Model='CHAOS-Core'+'CHAOS-Static'"},
		Auxiliaries:  []string{"QDLat", "MLT"},
		StartTime:    in.Time("start-time").Format(isoLayout),
		EndTime:      in.Time("end-time").Format(isoLayout),
		PadTimes:     []string{"03:00:00", "03:00:00"},
		ServerURL:    serverURL,
	}}, product, nil
}

func fileDataParams(file FileInput) models.DataParams {
	return models.DataParams{
		Provider: SourceFile,
		Filename: file.Path,
		Filetype: filetypeFromFilename(file.Name),
		Dataset:  DatasetFromFilename(file.Name),
	}
}

// DatasetFromFilename maps an uploaded product filename to its dataset name:
// the file stem with the timestamp-and-version tail trimmed.
func DatasetFromFilename(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return productTailRe.ReplaceAllString(stem, "")
}

func filetypeFromFilename(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "nc", "nc4", "netcdf", "h5", "hdf5", "cdf", "json":
		return ext
	default:
		return "cdf"
	}
}

func mustTime(s string) time.Time {
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}
