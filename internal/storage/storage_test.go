package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

const carsCSV = `Car_Name,Year,Selling_Price,Present_Price,Driven_Kms,Fuel_Type,Selling_type,Transmission,Owner
ritz,2014,3.35,5.59,27000,Petrol,Dealer,Manual,0
sx4,2013,4.75,9.54,43000,Diesel,Dealer,Manual,0
ciaz,2017,7.25,9.85,6900,Petrol,Dealer,Manual,0
`

func TestLoadZippedCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train_data.csv.zip")
	writeZip(t, path, map[string]string{"train_data.csv": carsCSV})

	df, err := LoadZippedCSV(path)
	require.NoError(t, err)

	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, []string{
		"Car_Name", "Year", "Selling_Price", "Present_Price", "Driven_Kms",
		"Fuel_Type", "Selling_type", "Transmission", "Owner",
	}, df.Names())

	years, err := df.Col("Year").Int()
	require.NoError(t, err)
	assert.Equal(t, []int{2014, 2013, 2017}, years)
	assert.Equal(t, []float64{5.59, 9.54, 9.85}, df.Col("Present_Price").Float())
	assert.Equal(t, []string{"Petrol", "Diesel", "Petrol"}, df.Col("Fuel_Type").Records())
}

func TestLoadZippedCSV_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadZippedCSV(filepath.Join(dir, "missing.zip"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.zip")
	writeZip(t, empty, map[string]string{})
	_, err = LoadZippedCSV(empty)
	assert.Error(t, err)

	notZip := filepath.Join(dir, "plain.csv")
	require.NoError(t, os.WriteFile(notZip, []byte(carsCSV), 0o600))
	_, err = LoadZippedCSV(notZip)
	assert.Error(t, err)
}

func TestPickCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.zip")
	writeZip(t, path, map[string]string{
		"README.txt": "not data",
		"data.CSV":   carsCSV,
	})

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	assert.Equal(t, "data.CSV", pickCSV(zr.File).Name)
}

type savedModel struct {
	Name    string
	Weights []float64
}

func TestSaveLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files", "models", "model.pkl.gz")
	want := &savedModel{Name: "linear", Weights: []float64{0.5, -1.25, 3}}

	require.NoError(t, SaveModel(path, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, raw[:2], "gzip magic")

	var got savedModel
	require.NoError(t, LoadModel(path, &got))
	assert.Equal(t, *want, got)

	// only the artifact is left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadModel_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pkl.gz")
	require.NoError(t, os.WriteFile(path, []byte("plain"), 0o600))

	var got savedModel
	assert.Error(t, LoadModel(path, &got))
}

type record struct {
	Type    string  `json:"type"`
	Dataset string  `json:"dataset"`
	R2      float64 `json:"r2"`
}

func TestJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "metrics.json")
	records := []record{
		{Type: "metrics", Dataset: "train", R2: 0.8},
		{Type: "metrics", Dataset: "test", R2: 0.7},
	}
	require.NoError(t, WriteJSONLines(path, records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"{\"type\":\"metrics\",\"dataset\":\"train\",\"r2\":0.8}\n"+
			"{\"type\":\"metrics\",\"dataset\":\"test\",\"r2\":0.7}\n",
		string(raw))

	got, err := ReadJSONLines[record](path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	assert.DirExists(t, dir)
	assert.NoError(t, EnsureDir(""))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	assert.Error(t, EnsureDir(filepath.Join(file, "sub")))
}
