package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/carprice/internal/config"
	"github.com/ezoic/carprice/internal/storage"
)

func writeZippedCSV(t *testing.T, path string, df dataframe.DataFrame) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create(filepath.Base(path[:len(path)-len(".zip")]))
	require.NoError(t, err)
	require.NoError(t, df.WriteCSV(w))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func jobConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "files", "input")
	require.NoError(t, storage.EnsureDir(input))

	cfg := config.Default()
	cfg.Paths.TrainData = filepath.Join(input, "train_data.csv.zip")
	cfg.Paths.TestData = filepath.Join(input, "test_data.csv.zip")
	cfg.Paths.Model = filepath.Join(dir, "files", "models", "model.pkl.gz")
	cfg.Paths.Metrics = filepath.Join(dir, "files", "output", "metrics.json")
	cfg.Paths.PlotsDir = filepath.Join(dir, "files", "output", "plots")

	writeZippedCSV(t, cfg.Paths.TrainData, carsFrame(0, 20))
	writeZippedCSV(t, cfg.Paths.TestData, carsFrame(20, 25))
	return cfg
}

func TestRun(t *testing.T) {
	cfg := jobConfig(t)

	res, err := Run(cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	require.NotNil(t, res.Model)

	k := res.Model.BestParams[ParamK].(int)
	assert.GreaterOrEqual(t, k, cfg.Search.KMin)
	assert.LessOrEqual(t, k, cfg.Search.KMax)

	written, err := storage.ReadJSONLines[MetricsRecord](cfg.Paths.Metrics)
	require.NoError(t, err)
	assert.Equal(t, res.Metrics, written)
	require.Len(t, written, 2)
	assert.Equal(t, "train", written[0].Dataset)
	assert.Equal(t, "test", written[1].Dataset)
	assert.InDelta(t, res.TrainScore, written[0].R2, 1e-12)
	assert.InDelta(t, res.TestScore, written[1].R2, 1e-12)

	require.Len(t, res.Plots, 3)
	for _, p := range res.Plots {
		assert.FileExists(t, p)
	}
}

func TestRun_ModelRoundTrip(t *testing.T) {
	cfg := jobConfig(t)
	cfg.Report.Enabled = false

	res, err := Run(cfg)
	require.NoError(t, err)
	assert.Empty(t, res.Plots)
	assert.NoDirExists(t, cfg.Paths.PlotsDir)

	loaded, err := LoadModel(cfg.Paths.Model)
	require.NoError(t, err)
	assert.Equal(t, res.Model.BestParams, loaded.BestParams)

	for _, path := range []string{cfg.Paths.TrainData, cfg.Paths.TestData} {
		raw, err := storage.LoadZippedCSV(path)
		require.NoError(t, err)
		df, err := Preprocess(raw, cfg.Features)
		require.NoError(t, err)
		x, y, err := GetFeatures(df, cfg.Features.Target)
		require.NoError(t, err)

		want, err := res.Model.Predict(x)
		require.NoError(t, err)
		got, err := loaded.Predict(x)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(want, got, 1e-12))

		wantScore, err := res.Model.Score(x, y)
		require.NoError(t, err)
		gotScore, err := loaded.Score(x, y)
		require.NoError(t, err)
		assert.InDelta(t, wantScore, gotScore, 1e-12)
	}
}

func TestRun_FailsFast(t *testing.T) {
	cfg := jobConfig(t)
	cfg.Paths.TestData = filepath.Join(t.TempDir(), "missing.csv.zip")

	_, err := Run(cfg)
	require.Error(t, err)
	assert.NoFileExists(t, cfg.Paths.Model)
	assert.NoFileExists(t, cfg.Paths.Metrics)
}
