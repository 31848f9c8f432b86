package model

import (
	"fmt"

	"github.com/ezoic/carprice/pkg/errors"
)

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// Cloner is implemented by estimators that can produce an unfitted copy of
// themselves with the same hyperparameters.
type Cloner interface {
	Clone() interface{}
}

// Clone returns an unfitted copy of est. est must implement Cloner.
func Clone(est interface{}) (interface{}, error) {
	c, ok := est.(Cloner)
	if !ok {
		return nil, errors.NewValidationError("estimator", "does not implement Clone", fmt.Sprintf("%T", est))
	}
	return c.Clone(), nil
}
