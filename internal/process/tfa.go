package process

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// Names of the variables and attrs the TFA chain writes.
const (
	tfaVariable  = "TFA_Variable"
	waveletPower = "wavelet_power"
	waveletFreqs = "wavelet_frequencies"
	attrSampling = "tfa_sampling_rate"
)

// Step defaults matching the dashboard widget values.
const (
	defaultActiveVariable = "B_NEC"
	defaultComponent      = 2
	defaultSamplingRate   = 1.0
	defaultWindowSize     = 300
	defaultCleanMethod    = "iqr"
	defaultMultiplier     = 0.5
	defaultCutoff         = 0.02
	defaultMinFrequency   = 0.02
	defaultMaxFrequency   = 0.1
	defaultDJ             = 0.1
)

// TFAPreprocess extracts the analysis series from the source dataset: one
// component of the active variable, optionally with the field model
// subtracted, stored as TFA_Variable on the dataset group.
type TFAPreprocess struct{}

func (s *TFAPreprocess) Name() string { return "TFA_Preprocess" }

func (s *TFAPreprocess) Apply(tree *paldata.DataTree, params models.ProcessParams) error {
	activeVar := params.ActiveVariable
	if activeVar == "" {
		activeVar = defaultActiveVariable
	}

	group, err := resolveDataset(tree, params.Dataset, activeVar, s.Name())
	if err != nil {
		return err
	}

	v, ok := group.Var(activeVar)
	if !ok {
		return stepError(s.Name(), "variable %s not found in dataset %s", activeVar, group.Name)
	}

	component := models.IntOr(params.ActiveComponent, defaultComponent)
	var series []float64
	switch {
	case v.Width() == 1:
		series = append([]float64(nil), v.Values...)
	case component >= 0 && component < v.Width():
		series = v.Column(component)
	default:
		return stepError(s.Name(), "component %d out of range for %s (width %d)", component, activeVar, v.Width())
	}

	if models.BoolOr(params.RemoveModel, false) {
		model, ok := group.Var(activeVar + "_Model")
		if !ok {
			return stepError(s.Name(), "model variable %s_Model not found", activeVar)
		}
		if model.Len() != len(series) {
			return stepError(s.Name(), "model length %d does not match series length %d", model.Len(), len(series))
		}
		modelCol := model.Values
		if model.Width() > 1 {
			modelCol = model.Column(component)
		}
		for i := range series {
			series[i] -= modelCol[i]
		}
	}

	group.SetVar(tfaVariable, paldata.NewSeries(series))
	group.Attrs[attrSampling] = strconv.FormatFloat(
		models.FloatOr(params.SamplingRate, defaultSamplingRate), 'g', -1, 64)
	group.Attrs["tfa_source"] = activeVar + "[" + strconv.Itoa(component) + "]"
	return nil
}

// TFAClean rejects outliers in fixed windows and closes the resulting gaps
// by linear interpolation. Method "iqr" bounds samples by the interquartile
// range, "normal" by the standard deviation, both scaled by the multiplier.
type TFAClean struct{}

func (s *TFAClean) Name() string { return "TFA_Clean" }

func (s *TFAClean) Apply(tree *paldata.DataTree, params models.ProcessParams) error {
	group, v, err := tfaSeries(tree, s.Name())
	if err != nil {
		return err
	}

	window := models.IntOr(params.WindowSize, defaultWindowSize)
	if window < 2 {
		return stepError(s.Name(), "window_size %d too small", window)
	}
	multiplier := models.FloatOr(params.Multiplier, defaultMultiplier)
	method := params.Method
	if method == "" {
		method = defaultCleanMethod
	}

	series := append([]float64(nil), v.Values...)
	n := len(series)
	for startIdx := 0; startIdx < n; startIdx += window {
		end := startIdx + window
		if end > n {
			end = n
		}
		lo, hi, ok := outlierBounds(series[startIdx:end], method, multiplier)
		if !ok {
			continue
		}
		for i := startIdx; i < end; i++ {
			if !math.IsNaN(series[i]) && (series[i] < lo || series[i] > hi) {
				series[i] = math.NaN()
			}
		}
	}

	if err := interpolateNaN(series); err != nil {
		return stepError(s.Name(), "%v", err)
	}
	group.SetVar(tfaVariable, paldata.NewSeries(series))
	return nil
}

// outlierBounds computes the accepted value range for one window. Windows
// with fewer than four valid samples keep everything.
func outlierBounds(window []float64, method string, multiplier float64) (lo, hi float64, ok bool) {
	valid := make([]float64, 0, len(window))
	for _, v := range window {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) < 4 {
		return 0, 0, false
	}

	switch method {
	case "normal":
		mean, std := stat.MeanStdDev(valid, nil)
		return mean - multiplier*std, mean + multiplier*std, true
	default: // iqr
		sort.Float64s(valid)
		q1 := stat.Quantile(0.25, stat.Empirical, valid, nil)
		q3 := stat.Quantile(0.75, stat.Empirical, valid, nil)
		iqr := q3 - q1
		return q1 - multiplier*iqr, q3 + multiplier*iqr, true
	}
}

// interpolateNaN fills NaN gaps linearly between valid neighbors; leading and
// trailing gaps take the nearest valid sample.
func interpolateNaN(series []float64) error {
	n := len(series)
	first := -1
	for i, v := range series {
		if !math.IsNaN(v) {
			first = i
			break
		}
	}
	if first == -1 {
		return fmt.Errorf("no valid samples left after outlier rejection")
	}
	for i := 0; i < first; i++ {
		series[i] = series[first]
	}

	last := first
	for i := first + 1; i < n; i++ {
		if math.IsNaN(series[i]) {
			continue
		}
		if gap := i - last; gap > 1 {
			step := (series[i] - series[last]) / float64(gap)
			for k := last + 1; k < i; k++ {
				series[k] = series[last] + step*float64(k-last)
			}
		}
		last = i
	}
	for i := last + 1; i < n; i++ {
		series[i] = series[last]
	}
	return nil
}

// TFAFilter removes low-frequency content below the cutoff with an FFT
// high-pass, leaving the wave band for the wavelet stage.
type TFAFilter struct{}

func (s *TFAFilter) Name() string { return "TFA_Filter" }

func (s *TFAFilter) Apply(tree *paldata.DataTree, params models.ProcessParams) error {
	group, v, err := tfaSeries(tree, s.Name())
	if err != nil {
		return err
	}

	cutoff := models.FloatOr(params.CutoffFrequency, defaultCutoff)
	if cutoff <= 0 {
		return stepError(s.Name(), "cutoff_frequency must be positive, got %g", cutoff)
	}
	sampleRate := groupSamplingRate(group)

	series := append([]float64(nil), v.Values...)
	if err := interpolateNaN(series); err != nil {
		return stepError(s.Name(), "%v", err)
	}

	n := len(series)
	if n < 4 {
		return stepError(s.Name(), "series too short to filter (%d samples)", n)
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, series)
	for k := range coeffs {
		if fft.Freq(k)*sampleRate < cutoff {
			coeffs[k] = 0
		}
	}
	filtered := fft.Sequence(nil, coeffs)
	inv := 1.0 / float64(n)
	for i := range filtered {
		filtered[i] *= inv
	}

	group.SetVar(tfaVariable, paldata.NewSeries(filtered))
	return nil
}

// TFAWavelet computes a Morlet continuous wavelet transform of the prepared
// series onto a log-spaced frequency grid and stores the power matrix
// (frequency rows, time columns) plus the grid itself.
type TFAWavelet struct{}

func (s *TFAWavelet) Name() string { return "TFA_Wavelet" }

func (s *TFAWavelet) Apply(tree *paldata.DataTree, params models.ProcessParams) error {
	group, v, err := tfaSeries(tree, s.Name())
	if err != nil {
		return err
	}

	minF := models.FloatOr(params.MinFrequency, defaultMinFrequency)
	maxF := models.FloatOr(params.MaxFrequency, defaultMaxFrequency)
	dj := models.FloatOr(params.DJ, defaultDJ)
	if minF <= 0 || maxF <= minF {
		return stepError(s.Name(), "invalid frequency range [%g, %g]", minF, maxF)
	}
	if dj <= 0 {
		return stepError(s.Name(), "dj must be positive, got %g", dj)
	}
	sampleRate := groupSamplingRate(group)

	series := append([]float64(nil), v.Values...)
	if err := interpolateNaN(series); err != nil {
		return stepError(s.Name(), "%v", err)
	}
	n := len(series)
	if n < 8 {
		return stepError(s.Name(), "series too short for wavelet analysis (%d samples)", n)
	}

	// Log-spaced grid: f_j = minF * 2^(j*dj), up to maxF inclusive.
	var freqs []float64
	for j := 0; ; j++ {
		f := minF * math.Pow(2, float64(j)*dj)
		if f > maxF*(1+1e-9) {
			break
		}
		freqs = append(freqs, f)
	}

	power := morletPower(series, freqs, sampleRate)

	group.SetVar(waveletPower, &paldata.Variable{
		Dims:   []string{"frequency", "time"},
		Shape:  []int{len(freqs), n},
		Values: power,
	})
	group.SetVar(waveletFreqs, paldata.NewSeries(freqs))
	return nil
}

// morletPower evaluates the CWT through the frequency domain: the series
// spectrum is multiplied by the scaled Morlet response and transformed back,
// one scale per output row.
func morletPower(series, freqs []float64, sampleRate float64) []float64 {
	const omega0 = 6.0
	n := len(series)

	cfft := fourier.NewCmplxFFT(n)
	seq := make([]complex128, n)
	for i, v := range series {
		seq[i] = complex(v, 0)
	}
	spectrum := cfft.Coefficients(nil, seq)

	omega := make([]float64, n)
	for k := range omega {
		omega[k] = 2 * math.Pi * cfft.Freq(k) * sampleRate
	}

	norm := math.Pow(math.Pi, -0.25)
	power := make([]float64, len(freqs)*n)
	work := make([]complex128, n)
	row := make([]complex128, n)
	inv := 1.0 / float64(n)

	for j, f := range freqs {
		scale := (omega0 + math.Sqrt(2+omega0*omega0)) / (4 * math.Pi * f)
		amp := norm * math.Sqrt(2*math.Pi*scale*sampleRate)
		for k := range work {
			if omega[k] > 0 {
				arg := scale*omega[k] - omega0
				work[k] = spectrum[k] * complex(amp*math.Exp(-0.5*arg*arg), 0)
			} else {
				work[k] = 0
			}
		}
		row = cfft.Sequence(row, work)
		for i := range row {
			re, im := real(row[i])*inv, imag(row[i])*inv
			power[j*n+i] = re*re + im*im
		}
	}
	return power
}

// resolveDataset picks the dataset group for preprocessing: the named group
// when given, otherwise the first group carrying the variable.
func resolveDataset(tree *paldata.DataTree, dataset, variable, step string) (*paldata.DataTree, error) {
	if dataset != "" {
		group, ok := tree.Group(dataset)
		if !ok {
			return nil, stepError(step, "dataset %s not found", dataset)
		}
		return group, nil
	}

	var found *paldata.DataTree
	tree.Walk(func(path string, node *paldata.DataTree) {
		if found != nil {
			return
		}
		if _, ok := node.Var(variable); ok {
			found = node
		}
	})
	if found == nil {
		return nil, stepError(step, "no dataset carries variable %s", variable)
	}
	return found, nil
}

// tfaSeries locates the group holding TFA_Variable, which every step after
// preprocess operates on.
func tfaSeries(tree *paldata.DataTree, step string) (*paldata.DataTree, *paldata.Variable, error) {
	var group *paldata.DataTree
	var v *paldata.Variable
	tree.Walk(func(path string, node *paldata.DataTree) {
		if group != nil {
			return
		}
		if nv, ok := node.Var(tfaVariable); ok {
			group, v = node, nv
		}
	})
	if group == nil {
		return nil, nil, stepError(step, "TFA_Variable not found, run TFA_Preprocess first")
	}
	return group, v, nil
}

func groupSamplingRate(group *paldata.DataTree) float64 {
	if s, ok := group.Attrs[attrSampling]; ok {
		if rate, err := strconv.ParseFloat(s, 64); err == nil && rate > 0 {
			return rate
		}
	}
	return defaultSamplingRate
}
