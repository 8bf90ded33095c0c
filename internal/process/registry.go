// Package process implements the dataset processing chains applied between
// fetch and render: the TFA wave-analysis steps and the DSECS ionospheric
// current inversion. Steps mutate the tree they are given; callers pass a
// deep copy when the original must survive.
package process

import (
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/logger"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// Step is one named transformation of a data tree.
type Step interface {
	Name() string
	Apply(tree *paldata.DataTree, params models.ProcessParams) error
}

// Registry resolves process names to steps and applies chains in order.
type Registry struct {
	steps map[string]Step
	log   *logger.Logger
}

// NewRegistry returns a registry with the TFA and DSECS chains registered.
func NewRegistry() *Registry {
	r := &Registry{
		steps: make(map[string]Step),
		log:   logger.Component("process"),
	}
	r.Register(&TFAPreprocess{})
	r.Register(&TFAClean{})
	r.Register(&TFAFilter{})
	r.Register(&TFAWavelet{})
	r.Register(&DSECSPreprocess{})
	r.Register(&DSECSAnalysis{})
	return r
}

// Register adds a step, replacing any step of the same name.
func (r *Registry) Register(s Step) {
	r.steps[s.Name()] = s
}

// Apply runs the chain in order. A tree that already carries analysis output
// (an uploaded result file) is passed through untouched. Unknown step names
// are a ProcessingError naming the step.
func (r *Registry) Apply(tree *paldata.DataTree, chain []models.ProcessParams) error {
	if Analyzed(tree) {
		r.log.Info("tree already carries analysis output, skipping process chain")
		return nil
	}
	for _, params := range chain {
		step, ok := r.steps[params.ProcessName]
		if !ok {
			return stepError(params.ProcessName, "unknown process")
		}
		if err := step.Apply(tree, params); err != nil {
			return err
		}
		r.log.Debugf("applied %s", params.ProcessName)
	}
	return nil
}

// Analyzed reports whether the tree already contains analysis results, which
// happens when a user uploads a previously analyzed file.
func Analyzed(tree *paldata.DataTree) bool {
	if tree == nil {
		return false
	}
	return tree.HasGroup("DSECS_output") || tree.HasGroup("currents")
}
