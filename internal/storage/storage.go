// Package storage reads the zipped CSV inputs and writes the job artifacts:
// the gzip-compressed model and the JSON-lines metrics file.
package storage

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/ezoic/carprice/core/model"
	carErrors "github.com/ezoic/carprice/pkg/errors"
)

// EnsureDir creates dir and any missing parents. An existing directory is
// not an error.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return carErrors.Wrapf(err, "failed to create directory %s", dir)
	}
	return nil
}

// LoadZippedCSV reads the CSV file stored in a zip archive into a table.
// The first ".csv" entry is used, or the first file if none has that
// extension. The first row is the header and column types are detected.
func LoadZippedCSV(path string) (dataframe.DataFrame, error) {
	zr, err := zip.OpenReader(filepath.Clean(path))
	if err != nil {
		return dataframe.DataFrame{}, carErrors.Wrapf(err, "failed to open archive %s", path)
	}
	defer zr.Close()

	entry := pickCSV(zr.File)
	if entry == nil {
		return dataframe.DataFrame{}, carErrors.Newf("archive %s holds no files", path)
	}

	rc, err := entry.Open()
	if err != nil {
		return dataframe.DataFrame{}, carErrors.Wrapf(err, "failed to open %s in %s", entry.Name, path)
	}
	defer rc.Close()

	return ReadCSV(rc)
}

func pickCSV(files []*zip.File) *zip.File {
	var first *zip.File
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			return f
		}
		if first == nil {
			first = f
		}
	}
	return first
}

// ReadCSV parses CSV with a header row into a table.
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, carErrors.Wrap(df.Err, "failed to parse CSV")
	}
	return df, nil
}

// SaveModel gob-encodes m into a gzip stream at path, creating the parent
// directory. The file is written under a temporary name and renamed into
// place, so a failed save leaves no partial artifact.
func SaveModel(path string, m interface{}) (err error) {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*")
	if err != nil {
		return carErrors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	gz := gzip.NewWriter(tmp)
	if err := model.SaveModelToWriter(m, gz); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return carErrors.Wrap(err, "failed to finish gzip stream")
	}
	if err := tmp.Close(); err != nil {
		return carErrors.Wrapf(err, "failed to write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return carErrors.Wrapf(err, "failed to move model into %s", path)
	}
	return nil
}

// LoadModel decodes a model written by SaveModel into m, which must be a
// pointer to the saved type.
func LoadModel(path string, m interface{}) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return carErrors.Wrapf(err, "failed to open model %s", path)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return carErrors.Wrapf(err, "model %s is not gzip-compressed", path)
	}
	defer gz.Close()

	return model.LoadModelFromReader(m, gz)
}

// WriteJSONLines writes one JSON object per record, in order, creating the
// parent directory.
func WriteJSONLines[T any](path string, records []T) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return carErrors.Wrapf(err, "failed to create %s", path)
	}

	enc := json.NewEncoder(f)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return carErrors.Wrapf(err, "failed to encode record %d", i)
		}
	}
	if err := f.Close(); err != nil {
		return carErrors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// ReadJSONLines reads records written by WriteJSONLines.
func ReadJSONLines[T any](path string) ([]T, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, carErrors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	var records []T
	dec := json.NewDecoder(f)
	for {
		var rec T
		if err := dec.Decode(&rec); err == io.EOF {
			return records, nil
		} else if err != nil {
			return nil, carErrors.Wrapf(err, "failed to decode record %d", len(records))
		}
		records = append(records, rec)
	}
}
