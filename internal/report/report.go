// Package report renders the search curve and predicted-vs-actual plots.
package report

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/carprice/internal/storage"
	carErrors "github.com/ezoic/carprice/pkg/errors"
	"github.com/ezoic/carprice/sklearn/model_selection"
)

const (
	width  = 6 * vg.Inch
	height = 4 * vg.Inch
)

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// PlotSearchCurve plots the mean cross-validation score of each candidate
// against the numeric value of param, with ± one standard deviation bars.
// Scores of "neg_" scorers are plotted as the positive error.
func PlotSearchCurve(res model_selection.CVResults, param, scoring, path string) error {
	n := len(res.MeanTestScore)
	if n == 0 {
		return carErrors.NewValueError("PlotSearchCurve", "no search results to plot")
	}

	sign, label := 1.0, scoring
	if strings.HasPrefix(scoring, "neg_") {
		sign, label = -1.0, strings.TrimPrefix(scoring, "neg_")
	}

	pts := errorPoints{XYs: make(plotter.XYs, n), YErrors: make(plotter.YErrors, n)}
	for i := 0; i < n; i++ {
		x, err := cast.ToFloat64E(res.Params[i][param])
		if err != nil {
			return carErrors.Wrapf(err, "candidate %d: %s is not numeric", i, param)
		}
		pts.XYs[i] = plotter.XY{X: x, Y: sign * res.MeanTestScore[i]}
		pts.YErrors[i].Low = res.StdTestScore[i]
		pts.YErrors[i].High = res.StdTestScore[i]
	}

	p := plot.New()
	p.Title.Text = "Cross-validated " + label
	p.X.Label.Text = param
	p.Y.Label.Text = "mean " + label
	p.Add(plotter.NewGrid())

	line, points, err := plotter.NewLinePoints(pts.XYs)
	if err != nil {
		return carErrors.Wrap(err, "failed to build search curve")
	}
	bars, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return carErrors.Wrap(err, "failed to build error bars")
	}
	p.Add(line, points, bars)

	return save(p, path)
}

// PlotPredictions draws predicted against actual values with the identity
// line for reference.
func PlotPredictions(yTrue, yPred *mat.VecDense, title, path string) error {
	if yTrue.Len() != yPred.Len() {
		return carErrors.NewDimensionError("PlotPredictions", yTrue.Len(), yPred.Len(), 0)
	}
	n := yTrue.Len()
	if n == 0 {
		return carErrors.NewValueError("PlotPredictions", "no predictions to plot")
	}

	pts := make(plotter.XYs, n)
	for i := range pts {
		pts[i] = plotter.XY{X: yTrue.AtVec(i), Y: yPred.AtVec(i)}
	}

	lo := math.Min(floats.Min(yTrue.RawVector().Data), floats.Min(yPred.RawVector().Data))
	hi := math.Max(floats.Max(yTrue.RawVector().Data), floats.Max(yPred.RawVector().Data))

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "actual"
	p.Y.Label.Text = "predicted"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return carErrors.Wrap(err, "failed to build scatter")
	}
	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return carErrors.Wrap(err, "failed to build identity line")
	}
	identity.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(scatter, identity)

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := storage.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := p.Save(width, height, path); err != nil {
		return carErrors.Wrapf(err, "failed to save plot %s", path)
	}
	return nil
}
