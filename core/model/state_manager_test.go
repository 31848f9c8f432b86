package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezoic/carprice/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("LinearRegression", "Predict")
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "Predict", nf.Method)

	s.SetDimensions(4, 10)
	s.SetFitted()
	assert.NoError(t, s.RequireFitted("LinearRegression", "Predict"))
	assert.NoError(t, s.RequireFeatures("LinearRegression.Predict", 4))

	err = s.RequireFeatures("LinearRegression.Predict", 5)
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
	assert.Equal(t, 4, dim.Expected)
	assert.Equal(t, 5, dim.Got)

	s.Reset()
	assert.False(t, s.IsFitted())
	nFeatures, nSamples := s.GetDimensions()
	assert.Zero(t, nFeatures)
	assert.Zero(t, nSamples)
}

type cloneable struct{ K int }

func (c *cloneable) Clone() interface{} { return &cloneable{K: c.K} }

func TestClone(t *testing.T) {
	got, err := Clone(&cloneable{K: 3})
	assert.NoError(t, err)
	assert.Equal(t, 3, got.(*cloneable).K)

	_, err = Clone(struct{}{})
	assert.Error(t, err)
}
