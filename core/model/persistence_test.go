package model_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/carprice/core/model"
)

type fakeRegressor struct {
	State     *model.StateManager
	Coef      []float64
	Intercept float64
}

func TestSaveLoadModel(t *testing.T) {
	original := &fakeRegressor{
		State:     model.NewStateManager(),
		Coef:      []float64{0.5, -1.25, 3},
		Intercept: 7.5,
	}
	original.State.SetFitted()
	original.State.SetDimensions(3, 20)

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, model.SaveModel(original, path))

	loaded := &fakeRegressor{}
	require.NoError(t, model.LoadModel(loaded, path))

	assert.Equal(t, original.Coef, loaded.Coef)
	assert.Equal(t, original.Intercept, loaded.Intercept)
	require.NotNil(t, loaded.State)
	assert.True(t, loaded.State.IsFitted())
	nFeatures, nSamples := loaded.State.GetDimensions()
	assert.Equal(t, 3, nFeatures)
	assert.Equal(t, 20, nSamples)
}

func TestSaveLoadModelStream(t *testing.T) {
	var buf bytes.Buffer
	original := &fakeRegressor{State: model.NewStateManager(), Coef: []float64{1}}
	require.NoError(t, model.SaveModelToWriter(original, &buf))

	loaded := &fakeRegressor{}
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))
	assert.Equal(t, original.Coef, loaded.Coef)
}

func TestLoadModelErrors(t *testing.T) {
	err := model.LoadModel(&fakeRegressor{}, filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)

	err = model.LoadModelFromReader(&fakeRegressor{}, bytes.NewBufferString("not gob"))
	assert.Error(t, err)
}
