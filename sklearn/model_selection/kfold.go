package model_selection

import (
	carErrors "github.com/ezoic/carprice/pkg/errors"
)

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation without shuffling.
//
// Folds are consecutive blocks of rows. The first nSamples%NSplits folds have
// one extra row, so the assignment depends only on row order.
type KFold struct {
	NSplits int
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int) *KFold {
	return &KFold{NSplits: nSplits}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold
func (kf *KFold) Split(nSamples int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, carErrors.NewValidationError("n_splits", "k-fold cross-validation requires at least two splits", kf.NSplits)
	}
	if nSamples < kf.NSplits {
		return nil, carErrors.NewValueError("KFold.Split",
			"cannot have number of splits n_splits greater than the number of samples")
	}

	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	folds := make([]Fold, kf.NSplits)
	start := 0
	for i := range folds {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		stop := start + testSize

		test := make([]int, 0, testSize)
		train := make([]int, 0, nSamples-testSize)
		for j := 0; j < nSamples; j++ {
			if j >= start && j < stop {
				test = append(test, j)
			} else {
				train = append(train, j)
			}
		}
		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		start = stop
	}
	return folds, nil
}
