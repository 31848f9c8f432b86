// Package pipeline implements scikit-learn compatible Pipeline for chaining transformers and estimators.
// This provides the same API as sklearn.pipeline.Pipeline, taking a table as input.
package pipeline

import (
	"encoding/gob"
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/core/model"
	"github.com/ezoic/carprice/pkg/errors"
	"github.com/ezoic/carprice/pkg/log"
	"github.com/ezoic/carprice/sklearn/compose"
)

func init() {
	gob.Register(&Pipeline{})
}

// Step represents a single step in the pipeline.
// Each step is a tuple of (name, transformer/estimator).
type Step struct {
	Name      string      // Name of this step (for identification)
	Estimator interface{} // Transformer, SupervisedTransformer, FrameTransformer or Regressor
}

// Pipeline chains transforms and a final regressor.
//
// The first step may be a model.FrameTransformer, which receives the table
// itself. Otherwise every column of the table is read as float64. Later
// intermediate steps must be model.Transformer or model.SupervisedTransformer
// and the final step must be a model.Regressor.
type Pipeline struct {
	State   *model.StateManager
	Steps   []Step
	Verbose bool // log the time elapsed while fitting each step

	logger log.Logger
}

// New creates a new Pipeline with the given steps.
// This is equivalent to sklearn.pipeline.Pipeline(steps)
func New(steps ...Step) *Pipeline {
	return &Pipeline{
		State:  model.NewStateManager(),
		Steps:  steps,
		logger: log.GetLoggerWithName("Pipeline"),
	}
}

func (p *Pipeline) validate() error {
	if len(p.Steps) == 0 {
		return errors.NewValidationError("steps", "pipeline has no steps", 0)
	}
	seen := make(map[string]bool, len(p.Steps))
	for _, step := range p.Steps {
		if step.Name == "" || strings.Contains(step.Name, "__") {
			return errors.NewValidationError("step name", "must be non-empty and must not contain '__'", step.Name)
		}
		if seen[step.Name] {
			return errors.NewValidationError("step name", "names must be unique", step.Name)
		}
		seen[step.Name] = true
	}
	if _, ok := p.final().(model.Regressor); !ok {
		return errors.NewValidationError("pipeline final step", "final step must implement Fit, Predict and Score",
			fmt.Sprintf("%T", p.final()))
	}
	return nil
}

func (p *Pipeline) final() interface{} {
	return p.Steps[len(p.Steps)-1].Estimator
}

// Fit trains the pipeline.
// Fit all the transformers one after the other and transform the
// data, then fit the final estimator.
func (p *Pipeline) Fit(X dataframe.DataFrame, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Pipeline.Fit")
	if err := p.validate(); err != nil {
		return err
	}
	if X.Err != nil {
		return errors.Wrap(X.Err, "invalid input table")
	}

	Xt, err := p.run(X, y, true)
	if err != nil {
		return err
	}

	finalStep := p.Steps[len(p.Steps)-1]
	start := time.Now()
	if err := finalStep.Estimator.(model.Regressor).Fit(Xt, y); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to fit final step '%s'", finalStep.Name))
	}
	p.logStep(finalStep.Name, start)

	if p.State == nil {
		p.State = model.NewStateManager()
	}
	p.State.SetDimensions(X.Ncol(), X.Nrow())
	p.State.SetFitted()
	return nil
}

// Predict applies transforms to the data, and predict with the final estimator.
func (p *Pipeline) Predict(X dataframe.DataFrame) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "Pipeline.Predict")
	if p.State == nil || !p.State.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	Xt, err := p.run(X, nil, false)
	if err != nil {
		return nil, err
	}
	return p.final().(model.Regressor).Predict(Xt)
}

// Score returns the score of the final estimator, the coefficient of
// determination for a regressor.
func (p *Pipeline) Score(X dataframe.DataFrame, y mat.Matrix) (_ float64, err error) {
	defer errors.Recover(&err, "Pipeline.Score")
	if p.State == nil || !p.State.IsFitted() {
		return 0, errors.NewNotFittedError("Pipeline", "Score")
	}
	Xt, err := p.run(X, nil, false)
	if err != nil {
		return 0, err
	}
	return p.final().(model.Regressor).Score(Xt, y)
}

// run passes X through every step except the last, fitting each one first
// when fit is set.
func (p *Pipeline) run(X dataframe.DataFrame, y mat.Matrix, fit bool) (mat.Matrix, error) {
	var Xt mat.Matrix
	for i, step := range p.Steps[:len(p.Steps)-1] {
		start := time.Now()

		var err error
		if i == 0 {
			Xt, err = p.first(step, X, fit)
		} else {
			Xt, err = applyMatrix(step, Xt, y, fit)
		}
		if err != nil {
			return nil, err
		}

		if fit {
			p.logStep(step.Name, start)
		}
	}

	if Xt == nil {
		// single-step pipeline
		dense, err := compose.FloatMatrix(X, X.Names(), "Pipeline")
		if err != nil {
			return nil, err
		}
		Xt = dense
	}
	return Xt, nil
}

func (p *Pipeline) first(step Step, X dataframe.DataFrame, fit bool) (mat.Matrix, error) {
	if ft, ok := step.Estimator.(model.FrameTransformer); ok {
		if fit {
			if err := ft.Fit(X); err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("failed to fit step '%s'", step.Name))
			}
		}
		Xt, err := ft.Transform(X)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("failed to transform at step '%s'", step.Name))
		}
		return Xt, nil
	}

	dense, err := compose.FloatMatrix(X, X.Names(), "Pipeline")
	if err != nil {
		return nil, err
	}
	return applyMatrix(step, dense, nil, fit)
}

func applyMatrix(step Step, X, y mat.Matrix, fit bool) (mat.Matrix, error) {
	var transform func(mat.Matrix) (mat.Matrix, error)

	switch t := step.Estimator.(type) {
	case model.SupervisedTransformer:
		if fit {
			if y == nil {
				return nil, errors.NewValidationError(step.Name, "supervised step needs a target", nil)
			}
			if err := t.Fit(X, y); err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("failed to fit step '%s'", step.Name))
			}
		}
		transform = t.Transform
	case model.Transformer:
		if fit {
			if err := t.Fit(X); err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("failed to fit step '%s'", step.Name))
			}
		}
		transform = t.Transform
	default:
		return nil, errors.NewValidationError(
			"pipeline step",
			"all intermediate steps must be transformers",
			step.Name,
		)
	}

	Xt, err := transform(X)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to transform at step '%s'", step.Name))
	}
	return Xt, nil
}

func (p *Pipeline) logStep(name string, start time.Time) {
	if !p.Verbose || p.logger == nil {
		return
	}
	p.logger.Info("Pipeline step fitted",
		"step", name,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
}

// GetFeatureNamesOut returns the names of the columns reaching the final
// estimator. The pipeline must be fitted, and its first step must report
// its output names.
func (p *Pipeline) GetFeatureNamesOut() ([]string, error) {
	if p.State == nil || !p.State.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "GetFeatureNamesOut")
	}

	var names []string
	for i, step := range p.Steps[:len(p.Steps)-1] {
		if i == 0 {
			src, ok := step.Estimator.(interface{ GetFeatureNamesOut() []string })
			if !ok {
				return nil, errors.NewValidationError(step.Name, "step does not report feature names", nil)
			}
			names = src.GetFeatureNamesOut()
			continue
		}
		if sel, ok := step.Estimator.(interface {
			GetFeatureNamesOut([]string) []string
		}); ok {
			names = sel.GetFeatureNamesOut(names)
		}
	}
	return names, nil
}

// GetParams returns the parameters of the pipeline.
// This includes parameters of all steps as "<step>__<param>".
func (p *Pipeline) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"verbose": p.Verbose,
	}
	for _, step := range p.Steps {
		if getter, ok := step.Estimator.(model.ParameterGetter); ok {
			for key, value := range getter.GetParams() {
				params[step.Name+"__"+key] = value
			}
		}
	}
	return params
}

// SetParams sets the parameters of the pipeline.
//
// "verbose" is a pipeline parameter. A bare step name replaces that step's
// estimator. "<step>__<param>" is routed to the step's SetParams, so
// "feature_selection__k" sets k on the step named feature_selection, and
// "preprocessor__num__feature_range" reaches into a ColumnTransformer.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	routed := make(map[string]map[string]interface{})
	for key, value := range params {
		if key == "verbose" {
			verbose, ok := value.(bool)
			if !ok {
				return errors.NewValidationError("verbose", "must be a bool", value)
			}
			p.Verbose = verbose
			continue
		}

		name, param, nested := strings.Cut(key, "__")
		idx := p.stepIndex(name)
		if idx < 0 {
			return errors.NewValidationError(key, "no such pipeline step", value)
		}
		if !nested {
			p.Steps[idx].Estimator = value
			continue
		}
		if routed[name] == nil {
			routed[name] = make(map[string]interface{})
		}
		routed[name][param] = value
	}

	for name, sub := range routed {
		step := p.Steps[p.stepIndex(name)]
		setter, ok := step.Estimator.(model.ParameterSetter)
		if !ok {
			return errors.NewValidationError(name, "step has no settable parameters", nil)
		}
		if err := setter.SetParams(sub); err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to set parameters of step '%s'", name))
		}
	}
	return nil
}

func (p *Pipeline) stepIndex(name string) int {
	for i, step := range p.Steps {
		if step.Name == name {
			return i
		}
	}
	return -1
}

// Clone returns an unfitted pipeline whose steps are clones of this one's.
// Steps that cannot be cloned are shared.
func (p *Pipeline) Clone() interface{} {
	steps := make([]Step, len(p.Steps))
	for i, step := range p.Steps {
		est, err := model.Clone(step.Estimator)
		if err != nil {
			est = step.Estimator
		}
		steps[i] = Step{Name: step.Name, Estimator: est}
	}
	return &Pipeline{
		State:   model.NewStateManager(),
		Steps:   steps,
		Verbose: p.Verbose,
		logger:  p.logger,
	}
}
