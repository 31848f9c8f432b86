// Package compose implements scikit-learn compatible ColumnTransformer for
// applying different transformers to named column groups of a table.
// This provides the same API as sklearn.compose.ColumnTransformer with
// remainder="drop".
package compose

import (
	"encoding/gob"
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/core/model"
	carErrors "github.com/ezoic/carprice/pkg/errors"
	"github.com/ezoic/carprice/pkg/log"
)

func init() {
	gob.Register(&ColumnTransformer{})
}

// ColumnSpec is one (name, transformer, columns) triple.
// Transformer is either a model.Transformer, fed the columns as floats, or a
// model.StringTransformer, fed the raw cell values.
type ColumnSpec struct {
	Name        string
	Transformer interface{}
	Columns     []string
}

// ColumnTransformer applies each transformer to its columns and concatenates
// the outputs in declaration order. Columns not named by any spec are dropped.
type ColumnTransformer struct {
	State        *model.StateManager
	Transformers []ColumnSpec

	// Fitted state
	FeatureNamesIn []string // table columns seen during Fit
	OutputWidths   []int    // output columns produced by each spec

	logger log.Logger
}

// NewColumnTransformer creates a ColumnTransformer from specs.
//
// Example:
//
//	ct := compose.NewColumnTransformer(
//	    compose.ColumnSpec{Name: "num", Transformer: preprocessing.NewMinMaxScalerDefault(), Columns: numeric},
//	    compose.ColumnSpec{Name: "cat", Transformer: preprocessing.NewOneHotEncoder(), Columns: categorical},
//	)
func NewColumnTransformer(specs ...ColumnSpec) *ColumnTransformer {
	return &ColumnTransformer{
		State:        model.NewStateManager(),
		Transformers: specs,
		logger:       log.GetLoggerWithName("ColumnTransformer"),
	}
}

func (ct *ColumnTransformer) validate() error {
	seen := make(map[string]bool, len(ct.Transformers))
	for _, spec := range ct.Transformers {
		if spec.Name == "" || strings.Contains(spec.Name, "__") {
			return carErrors.NewValidationError("transformer name", "must be non-empty and must not contain '__'", spec.Name)
		}
		if seen[spec.Name] {
			return carErrors.NewValidationError("transformer name", "names must be unique", spec.Name)
		}
		seen[spec.Name] = true

		switch spec.Transformer.(type) {
		case model.Transformer, model.StringTransformer:
		default:
			return carErrors.NewValidationError(spec.Name, "transformer must implement Transformer or StringTransformer",
				fmt.Sprintf("%T", spec.Transformer))
		}
	}
	return nil
}

// Fit fits every transformer on its columns of df.
func (ct *ColumnTransformer) Fit(df dataframe.DataFrame) (err error) {
	defer carErrors.Recover(&err, "ColumnTransformer.Fit")
	if err := ct.validate(); err != nil {
		return err
	}
	if df.Nrow() == 0 {
		return carErrors.NewModelError("ColumnTransformer.Fit", "empty data", carErrors.ErrEmptyData)
	}

	widths := make([]int, len(ct.Transformers))
	for i, spec := range ct.Transformers {
		out, err := ct.apply(spec, df, "ColumnTransformer.Fit", true)
		if err != nil {
			return err
		}
		_, widths[i] = out.Dims()
	}

	ct.FeatureNamesIn = append([]string(nil), df.Names()...)
	ct.OutputWidths = widths

	total := 0
	for _, w := range widths {
		total += w
	}
	if ct.State == nil {
		ct.State = model.NewStateManager()
	}
	ct.State.SetDimensions(total, df.Nrow())
	ct.State.SetFitted()

	if ct.logger != nil {
		ct.logger.Debug("ColumnTransformer fitted",
			log.OperationKey, log.OperationFit,
			log.PhaseKey, log.PhasePreprocessing,
			log.SamplesKey, df.Nrow(),
			log.FeaturesKey, total,
		)
	}
	return nil
}

// Transform applies the fitted transformers and concatenates their outputs.
func (ct *ColumnTransformer) Transform(df dataframe.DataFrame) (_ mat.Matrix, err error) {
	defer carErrors.Recover(&err, "ColumnTransformer.Transform")
	if ct.State == nil || !ct.State.IsFitted() {
		return nil, carErrors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	if df.Nrow() == 0 {
		return nil, carErrors.NewModelError("ColumnTransformer.Transform", "empty data", carErrors.ErrEmptyData)
	}

	blocks := make([]mat.Matrix, len(ct.Transformers))
	for i, spec := range ct.Transformers {
		out, err := ct.apply(spec, df, "ColumnTransformer.Transform", false)
		if err != nil {
			return nil, err
		}
		if _, w := out.Dims(); w != ct.OutputWidths[i] {
			return nil, carErrors.NewDimensionError("ColumnTransformer.Transform", ct.OutputWidths[i], w, 1)
		}
		blocks[i] = out
	}

	return hstack(df.Nrow(), blocks), nil
}

// FitTransform fits on df and returns its transformation.
func (ct *ColumnTransformer) FitTransform(df dataframe.DataFrame) (mat.Matrix, error) {
	if err := ct.Fit(df); err != nil {
		return nil, err
	}
	return ct.Transform(df)
}

// apply extracts spec's columns from df and runs the transformer on them,
// fitting first when fit is true.
func (ct *ColumnTransformer) apply(spec ColumnSpec, df dataframe.DataFrame, op string, fit bool) (mat.Matrix, error) {
	switch t := spec.Transformer.(type) {
	case model.Transformer:
		X, err := FloatMatrix(df, spec.Columns, op)
		if err != nil {
			return nil, err
		}
		if fit {
			if err := t.Fit(X); err != nil {
				return nil, carErrors.Wrapf(err, "failed to fit transformer '%s'", spec.Name)
			}
		}
		out, err := t.Transform(X)
		return out, carErrors.Wrapf(err, "failed to transform with '%s'", spec.Name)

	case model.StringTransformer:
		rows, err := StringRows(df, spec.Columns, op)
		if err != nil {
			return nil, err
		}
		if fit {
			if err := t.Fit(rows); err != nil {
				return nil, carErrors.Wrapf(err, "failed to fit transformer '%s'", spec.Name)
			}
		}
		out, err := t.Transform(rows)
		return out, carErrors.Wrapf(err, "failed to transform with '%s'", spec.Name)

	default:
		return nil, carErrors.NewValidationError(spec.Name, "unsupported transformer", fmt.Sprintf("%T", spec.Transformer))
	}
}

func hstack(rows int, blocks []mat.Matrix) *mat.Dense {
	total := 0
	for _, b := range blocks {
		_, c := b.Dims()
		total += c
	}

	out := mat.NewDense(rows, total, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		if c == 0 {
			continue
		}
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(b)
		offset += c
	}
	return out
}

// GetFeatureNamesOut returns output column names prefixed with the spec name,
// e.g. "num__Driven_Kms", "cat__Fuel_Type_Diesel".
func (ct *ColumnTransformer) GetFeatureNamesOut() []string {
	if ct.State == nil || !ct.State.IsFitted() {
		return nil
	}

	var names []string
	for i, spec := range ct.Transformers {
		var inner []string
		if namer, ok := spec.Transformer.(interface {
			GetFeatureNamesOut(inputFeatures []string) []string
		}); ok {
			inner = namer.GetFeatureNamesOut(spec.Columns)
		} else if ct.OutputWidths[i] == len(spec.Columns) {
			inner = spec.Columns
		} else {
			for k := 0; k < ct.OutputWidths[i]; k++ {
				inner = append(inner, fmt.Sprintf("x%d", k))
			}
		}
		for _, name := range inner {
			names = append(names, spec.Name+"__"+name)
		}
	}
	return names
}

// GetParams returns the nested parameters of every transformer as
// "<name>__<param>".
func (ct *ColumnTransformer) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for _, spec := range ct.Transformers {
		if getter, ok := spec.Transformer.(model.ParameterGetter); ok {
			for k, v := range getter.GetParams() {
				params[spec.Name+"__"+k] = v
			}
		}
	}
	return params
}

// SetParams routes "<name>__<param>" keys to the named transformer.
func (ct *ColumnTransformer) SetParams(params map[string]interface{}) error {
	routed := make(map[string]map[string]interface{})
	for key, value := range params {
		name, param, ok := strings.Cut(key, "__")
		if !ok {
			return carErrors.NewValidationError(key, "ColumnTransformer parameters must be '<name>__<param>'", value)
		}
		if routed[name] == nil {
			routed[name] = make(map[string]interface{})
		}
		routed[name][param] = value
	}

	named := ct.NamedTransformers()
	for name, sub := range routed {
		t, ok := named[name]
		if !ok {
			return carErrors.NewValidationError(name, "no such transformer", nil)
		}
		setter, ok := t.(model.ParameterSetter)
		if !ok {
			return carErrors.NewValidationError(name, "transformer has no settable parameters", nil)
		}
		if err := setter.SetParams(sub); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted ColumnTransformer with cloned transformers.
func (ct *ColumnTransformer) Clone() interface{} {
	specs := make([]ColumnSpec, len(ct.Transformers))
	for i, spec := range ct.Transformers {
		t, err := model.Clone(spec.Transformer)
		if err != nil {
			t = spec.Transformer // shared
		}
		specs[i] = ColumnSpec{
			Name:        spec.Name,
			Transformer: t,
			Columns:     append([]string(nil), spec.Columns...),
		}
	}

	clone := &ColumnTransformer{
		State:        model.NewStateManager(),
		Transformers: specs,
		logger:       ct.logger,
	}
	return clone
}
