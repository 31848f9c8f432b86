// Command carprice trains the used-vehicle price model and writes the model
// artifact, the metrics file and the report plots.
//
// The configuration file is read from $CARPRICE_CONFIG; without it the
// built-in defaults are used.
package main

import (
	"fmt"
	"os"

	"github.com/ezoic/carprice/internal/config"
	"github.com/ezoic/carprice/internal/pricing"
	"github.com/ezoic/carprice/pkg/log"
	"github.com/ezoic/carprice/sklearn/model_selection"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "carprice: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if err := log.SetupLogger(cfg.Logging.Level); err != nil {
		return err
	}
	logger := log.GetLoggerWithName("main")

	res, err := pricing.Run(cfg)
	if err != nil {
		logger.Error("Run failed", err)
		return err
	}

	fmt.Fprintf(os.Stdout, "best params: %s\n", model_selection.FormatParams(res.Model.BestParams))
	fmt.Fprintf(os.Stdout, "time to optimize hyperparameters: %.2f seconds\n", res.SearchTime.Seconds())
	fmt.Fprintf(os.Stdout, "model score in training: %f\n", res.TrainScore)
	fmt.Fprintf(os.Stdout, "model score in test: %f\n", res.TestScore)
	return nil
}
