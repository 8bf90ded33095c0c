package process

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// Names the DSECS chain reads and writes.
const (
	dsecsOutputGroup = "DSECS_output"
	residualVariable = "B_NEC_res"
	attrAlphaDataset = "dsecs_dataset_alpha"
	attrCharlieDset  = "dsecs_dataset_charlie"
)

// Inversion geometry. Sheet currents are fitted on latNodes equidistant
// latitude nodes; the kernel is the field of an ionospheric line current seen
// from satellite altitude, so node distance regularizes the matrix.
const (
	latNodes      = 61
	satAltitudeKM = 450.0
	kmPerDegree   = 111.0
	svdRcond      = 1e-2
)

// DSECSPreprocess locates the Swarm A and C datasets, checks the magnetic
// field variable and computes model residuals for the inversion.
type DSECSPreprocess struct{}

func (s *DSECSPreprocess) Name() string { return "DSECS_Preprocess" }

func (s *DSECSPreprocess) Apply(tree *paldata.DataTree, params models.ProcessParams) error {
	alphaName := params.DatasetAlpha
	charlieName := params.DatasetCharlie
	if alphaName == "" || charlieName == "" {
		for _, name := range tree.GroupNames() {
			switch {
			case strings.Contains(name, "MAGA") || strings.Contains(name, "Swarm-A"):
				if alphaName == "" {
					alphaName = name
				}
			case strings.Contains(name, "MAGC") || strings.Contains(name, "Swarm-C"):
				if charlieName == "" {
					charlieName = name
				}
			}
		}
	}
	if alphaName == "" || charlieName == "" {
		return stepError(s.Name(), "could not find both Swarm A and Swarm C datasets")
	}

	for _, name := range []string{alphaName, charlieName} {
		group, ok := tree.Group(name)
		if !ok {
			return stepError(s.Name(), "dataset %s not found", name)
		}
		if err := computeResiduals(group, s.Name()); err != nil {
			return err
		}
	}

	tree.Attrs[attrAlphaDataset] = alphaName
	tree.Attrs[attrCharlieDset] = charlieName
	return nil
}

// computeResiduals stores B_NEC minus the field model on the group. A
// missing model variable leaves the raw field as the residual, which keeps
// uploads without model columns usable.
func computeResiduals(group *paldata.DataTree, step string) error {
	b, ok := group.Var("B_NEC")
	if !ok {
		return stepError(step, "dataset %s has no B_NEC variable", group.Name)
	}
	if b.Width() != 3 {
		return stepError(step, "B_NEC in %s has width %d, want 3", group.Name, b.Width())
	}

	res := b.Copy()
	if model, ok := group.Var("B_NEC_Model"); ok && model.Len() == b.Len() && model.Width() == 3 {
		for i := range res.Values {
			res.Values[i] -= model.Values[i]
		}
	}
	res.Dims = []string{"time", "NEC"}
	group.SetVar(residualVariable, res)
	return nil
}

// DSECSAnalysis fits equivalent sheet-current amplitudes per satellite pass.
// Each contiguous pass becomes one output frame: eastward (JPhi) and
// southward (JTheta) current profiles on a fixed latitude grid, solved from
// the field residuals by truncated-SVD least squares.
type DSECSAnalysis struct{}

func (s *DSECSAnalysis) Name() string { return "DSECS_Analysis" }

func (s *DSECSAnalysis) Apply(tree *paldata.DataTree, params models.ProcessParams) error {
	alpha, charlie, err := dsecsInputs(tree, params, s.Name())
	if err != nil {
		return err
	}

	obsA, err := passObservations(alpha, s.Name())
	if err != nil {
		return err
	}
	obsC, err := passObservations(charlie, s.Name())
	if err != nil {
		return err
	}

	passes := splitPasses(append(append([]observation(nil), obsA...), obsC...))
	if len(passes) == 0 {
		return stepError(s.Name(), "no usable satellite passes in window")
	}

	nFrames := len(passes)
	latGrid := make([]float64, 0, nFrames*latNodes)
	jPhi := make([]float64, 0, nFrames*latNodes)
	jTheta := make([]float64, 0, nFrames*latNodes)
	midTimes := make([]int64, 0, nFrames)

	for _, pass := range passes {
		nodes := latitudeNodes(pass)
		phi, theta, err := invertPass(pass, nodes)
		if err != nil {
			return stepError(s.Name(), "%v", err)
		}
		latGrid = append(latGrid, nodes...)
		jPhi = append(jPhi, phi...)
		jTheta = append(jTheta, theta...)
		midTimes = append(midTimes, passMidTime(pass))
	}

	out := tree.Child(dsecsOutputGroup)
	out.Times = midTimes
	out.SetVar("Latitude", &paldata.Variable{
		Dims:   []string{"frame", "latitude"},
		Shape:  []int{nFrames, latNodes},
		Values: latGrid,
	})
	out.SetVar("JPhi", &paldata.Variable{
		Dims:   []string{"frame", "latitude"},
		Shape:  []int{nFrames, latNodes},
		Values: jPhi,
		Attrs:  map[string]string{"units": "A/km", "description": "eastward sheet current density"},
	})
	out.SetVar("JTheta", &paldata.Variable{
		Dims:   []string{"frame", "latitude"},
		Shape:  []int{nFrames, latNodes},
		Values: jTheta,
		Attrs:  map[string]string{"units": "A/km", "description": "southward sheet current density"},
	})
	return nil
}

// observation is one residual sample used by the inversion.
type observation struct {
	timeMS int64
	lat    float64
	bNorth float64
	bEast  float64
}

func dsecsInputs(tree *paldata.DataTree, params models.ProcessParams, step string) (alpha, charlie *paldata.DataTree, err error) {
	alphaName := params.DatasetAlpha
	if alphaName == "" {
		alphaName = tree.Attrs[attrAlphaDataset]
	}
	charlieName := params.DatasetCharlie
	if charlieName == "" {
		charlieName = tree.Attrs[attrCharlieDset]
	}
	if alphaName == "" || charlieName == "" {
		return nil, nil, stepError(step, "datasets not preprocessed, run DSECS_Preprocess first")
	}

	alpha, ok := tree.Group(alphaName)
	if !ok {
		return nil, nil, stepError(step, "dataset %s not found", alphaName)
	}
	charlie, ok = tree.Group(charlieName)
	if !ok {
		return nil, nil, stepError(step, "dataset %s not found", charlieName)
	}
	return alpha, charlie, nil
}

// passObservations pairs the residual components with a latitude axis.
// Quasi-dipole latitude is preferred; geographic latitude is the fallback
// for uploaded files without auxiliaries.
func passObservations(group *paldata.DataTree, step string) ([]observation, error) {
	res, ok := group.Var(residualVariable)
	if !ok {
		return nil, stepError(step, "dataset %s has no residuals, run DSECS_Preprocess first", group.Name)
	}

	latVar, ok := group.Var("QDLat")
	if !ok {
		latVar, ok = group.Var("Latitude")
	}
	if !ok {
		return nil, stepError(step, "dataset %s has no latitude axis", group.Name)
	}

	n := res.Len()
	if latVar.Len() != n || len(group.Times) != n {
		return nil, stepError(step, "dataset %s axes disagree (%d residuals, %d latitudes, %d times)",
			group.Name, n, latVar.Len(), len(group.Times))
	}

	obs := make([]observation, 0, n)
	for i := 0; i < n; i++ {
		north, east := res.At(i, 0), res.At(i, 1)
		if math.IsNaN(north) || math.IsNaN(east) {
			continue
		}
		obs = append(obs, observation{
			timeMS: group.Times[i],
			lat:    latVar.Values[i],
			bNorth: north,
			bEast:  east,
		})
	}
	return obs, nil
}

// splitPasses groups observations into contiguous satellite passes. A gap of
// more than ten median sample intervals starts a new pass; passes with too
// few samples for the fit are dropped.
func splitPasses(obs []observation) [][]observation {
	if len(obs) == 0 {
		return nil
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].timeMS < obs[j].timeMS })

	gaps := make([]int64, 0, len(obs)-1)
	for i := 1; i < len(obs); i++ {
		gaps = append(gaps, obs[i].timeMS-obs[i-1].timeMS)
	}
	medianGap := int64(1000)
	if len(gaps) > 0 {
		sorted := append([]int64(nil), gaps...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		if m := sorted[len(sorted)/2]; m > 0 {
			medianGap = m
		}
	}
	threshold := 10 * medianGap

	var passes [][]observation
	start := 0
	for i := 1; i <= len(obs); i++ {
		if i == len(obs) || obs[i].timeMS-obs[i-1].timeMS > threshold {
			if i-start >= 2*latNodes/3 {
				passes = append(passes, obs[start:i])
			}
			start = i
		}
	}
	return passes
}

// latitudeNodes spans the pass's latitude range with a fixed node count.
func latitudeNodes(pass []observation) []float64 {
	minLat, maxLat := pass[0].lat, pass[0].lat
	for _, o := range pass {
		if o.lat < minLat {
			minLat = o.lat
		}
		if o.lat > maxLat {
			maxLat = o.lat
		}
	}
	nodes := make([]float64, latNodes)
	step := (maxLat - minLat) / float64(latNodes-1)
	for i := range nodes {
		nodes[i] = minLat + float64(i)*step
	}
	return nodes
}

func passMidTime(pass []observation) int64 {
	return (pass[0].timeMS + pass[len(pass)-1].timeMS) / 2
}

// invertPass solves for sheet-current amplitudes at the latitude nodes. The
// eastward currents are fitted from the northward residual component, the
// southward currents from the eastward component, sharing one design matrix.
func invertPass(pass []observation, nodes []float64) (jPhi, jTheta []float64, err error) {
	nObs, nNodes := len(pass), len(nodes)

	a := mat.NewDense(nObs, nNodes, nil)
	for i, o := range pass {
		for k, nodeLat := range nodes {
			a.Set(i, k, lineCurrentKernel(o.lat, nodeLat))
		}
	}

	bNorth := make([]float64, nObs)
	bEast := make([]float64, nObs)
	for i, o := range pass {
		bNorth[i] = o.bNorth
		bEast[i] = o.bEast
	}

	jPhi, err = truncatedSVDSolve(a, bNorth)
	if err != nil {
		return nil, nil, err
	}
	jTheta, err = truncatedSVDSolve(a, bEast)
	if err != nil {
		return nil, nil, err
	}
	return jPhi, jTheta, nil
}

// lineCurrentKernel is the magnitude of the field of an ionospheric line
// current at nodeLat seen by a satellite above obsLat. Satellite altitude
// keeps the kernel finite at zero separation.
func lineCurrentKernel(obsLat, nodeLat float64) float64 {
	dKM := (obsLat - nodeLat) * kmPerDegree
	return 1.0 / math.Sqrt(dKM*dKM+satAltitudeKM*satAltitudeKM)
}

// truncatedSVDSolve computes the minimum-norm least-squares solution of
// A x = b, discarding singular values below svdRcond times the largest.
// Truncation suppresses the small singular values that would otherwise
// amplify noise into the current profiles.
func truncatedSVDSolve(a *mat.Dense, b []float64) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	_, nNodes := a.Dims()
	bVec := mat.NewVecDense(len(b), b)

	// x = V * diag(1/s) * U^T * b, truncated.
	var utb mat.VecDense
	utb.MulVec(u.T(), bVec)

	coeff := mat.NewVecDense(len(values), nil)
	cut := svdRcond * values[0]
	for i, s := range values {
		if s > cut {
			coeff.SetVec(i, utb.AtVec(i)/s)
		}
	}

	var x mat.VecDense
	x.MulVec(&v, coeff)

	out := make([]float64, nNodes)
	copy(out, x.RawVector().Data)
	return out, nil
}
