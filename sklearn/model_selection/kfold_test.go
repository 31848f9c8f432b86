package model_selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	carErrors "github.com/ezoic/carprice/pkg/errors"
)

func TestKFold_Split(t *testing.T) {
	tests := []struct {
		name      string
		nSamples  int
		nSplits   int
		wantSizes []int
	}{
		{"even", 20, 10, []int{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}},
		{"remainder goes to the first folds", 23, 10, []int{3, 3, 3, 2, 2, 2, 2, 2, 2, 2}},
		{"leave one out", 5, 5, []int{1, 1, 1, 1, 1}},
		{"two folds", 7, 2, []int{4, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folds, err := NewKFold(tt.nSplits).Split(tt.nSamples)
			require.NoError(t, err)
			require.Len(t, folds, tt.nSplits)

			next := 0
			for i, fold := range folds {
				assert.Len(t, fold.TestIndices, tt.wantSizes[i])
				assert.Len(t, fold.TrainIndices, tt.nSamples-tt.wantSizes[i])

				// contiguous, in order, no overlap with train
				for _, idx := range fold.TestIndices {
					assert.Equal(t, next, idx)
					next++
					assert.NotContains(t, fold.TrainIndices, idx)
				}
			}
			assert.Equal(t, tt.nSamples, next)
		})
	}
}

func TestKFold_SplitIsDeterministic(t *testing.T) {
	a, err := NewKFold(10).Split(37)
	require.NoError(t, err)
	b, err := NewKFold(10).Split(37)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestKFold_Errors(t *testing.T) {
	_, err := NewKFold(10).Split(9)
	var ve *carErrors.ValueError
	assert.True(t, carErrors.As(err, &ve))

	_, err = NewKFold(1).Split(9)
	var valErr *carErrors.ValidationError
	assert.True(t, carErrors.As(err, &valErr))
}

func TestParamGrid_Candidates(t *testing.T) {
	grid := ParamGrid{
		"b": {1, 2},
		"a": {"x", "y"},
	}
	assert.Equal(t, []map[string]interface{}{
		{"a": "x", "b": 1},
		{"a": "x", "b": 2},
		{"a": "y", "b": 1},
		{"a": "y", "b": 2},
	}, grid.Candidates())

	assert.Equal(t, []map[string]interface{}{{}}, ParamGrid{}.Candidates())

	k := ParamGrid{"feature_selection__k": IntRange(1, 11)}.Candidates()
	require.Len(t, k, 11)
	assert.Equal(t, 1, k[0]["feature_selection__k"])
	assert.Equal(t, 11, k[10]["feature_selection__k"])

	assert.Nil(t, IntRange(3, 2))
	assert.Equal(t, "{a: x, b: 2}", FormatParams(map[string]interface{}{"b": 2, "a": "x"}))
}

func TestRankAndBestIndex(t *testing.T) {
	means := []float64{-2, -1, -1, -3}
	assert.Equal(t, []int{3, 1, 1, 4}, rank(means))
	assert.Equal(t, 1, bestIndex(means))

	withNaN := []float64{nanValue(), -5}
	assert.Equal(t, []int{2, 1}, rank(withNaN))
	assert.Equal(t, 1, bestIndex(withNaN))
}

func TestScorers(t *testing.T) {
	assert.Equal(t, []string{
		"neg_mean_absolute_error",
		"neg_mean_squared_error",
		"neg_median_absolute_error",
		"neg_root_mean_squared_error",
		"r2",
	}, ScorerNames())

	_, err := GetScorer("accuracy")
	assert.Error(t, err)
}
