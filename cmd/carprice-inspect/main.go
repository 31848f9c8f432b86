// Command carprice-inspect loads a saved model and prints the search
// results, the selected features and the predictions for a zipped CSV.
//
// Usage:
//
//	carprice-inspect [data.csv.zip]
//
// The model path and feature settings come from $CARPRICE_CONFIG as for
// carprice.
package main

import (
	"fmt"
	"os"

	"github.com/ezoic/carprice/core/model"
	"github.com/ezoic/carprice/internal/config"
	"github.com/ezoic/carprice/internal/pricing"
	"github.com/ezoic/carprice/internal/storage"
	"github.com/ezoic/carprice/sklearn/model_selection"
	"github.com/ezoic/carprice/sklearn/pipeline"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "carprice-inspect: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	search, err := pricing.LoadModel(cfg.Paths.Model)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Model loaded from %s\n", cfg.Paths.Model)
	fmt.Fprintf(os.Stdout, "  Scoring: %s\n", search.Scoring)
	fmt.Fprintf(os.Stdout, "  Best params: %s\n", model_selection.FormatParams(search.BestParams))
	fmt.Fprintf(os.Stdout, "  Best score: %f\n", search.BestScore)

	res := search.CVResults
	for i := range res.Params {
		fmt.Fprintf(os.Stdout, "  %s: mean=%f std=%f rank=%d\n",
			model_selection.FormatParams(res.Params[i]), res.MeanTestScore[i], res.StdTestScore[i], res.RankTestScore[i])
	}

	if best, ok := search.BestEstimator.(*pipeline.Pipeline); ok {
		names, err := best.GetFeatureNamesOut()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "  Selected features: %v\n", names)
		if lm, ok := best.Steps[len(best.Steps)-1].Estimator.(model.LinearModel); ok {
			fmt.Fprintf(os.Stdout, "  Coefficients: %v\n", lm.GetWeights())
			fmt.Fprintf(os.Stdout, "  Intercept: %f\n", lm.GetIntercept())
		}
	}

	if len(args) == 0 {
		return nil
	}

	raw, err := storage.LoadZippedCSV(args[0])
	if err != nil {
		return err
	}
	df, err := pricing.Preprocess(raw, cfg.Features)
	if err != nil {
		return err
	}
	x := df
	if df.Col(cfg.Features.Target).Err == nil {
		x = df.Drop(cfg.Features.Target)
	}

	pred, err := search.Predict(x)
	if err != nil {
		return err
	}
	rows, _ := pred.Dims()
	fmt.Fprintf(os.Stdout, "\nPredictions for %s:\n", args[0])
	for i := 0; i < rows; i++ {
		fmt.Fprintf(os.Stdout, "  %d: %f\n", i, pred.At(i, 0))
	}
	return nil
}
