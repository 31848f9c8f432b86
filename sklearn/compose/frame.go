package compose

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	carErrors "github.com/ezoic/carprice/pkg/errors"
)

// HasColumns returns the first name in columns that df does not have.
func HasColumns(df dataframe.DataFrame, columns []string) (missing string, ok bool) {
	present := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		present[name] = struct{}{}
	}
	for _, name := range columns {
		if _, found := present[name]; !found {
			return name, false
		}
	}
	return "", true
}

// FloatMatrix copies the named columns of df into an n×len(columns) matrix.
// A missing column is a schema error; a value that does not parse as a
// number is a data error. op names the caller in the returned error.
func FloatMatrix(df dataframe.DataFrame, columns []string, op string) (*mat.Dense, error) {
	if missing, ok := HasColumns(df, columns); !ok {
		return nil, carErrors.NewMissingColumnError(op, missing)
	}

	n := df.Nrow()
	if n == 0 || len(columns) == 0 {
		return nil, carErrors.NewModelError(op, "empty data", carErrors.ErrEmptyData)
	}

	out := mat.NewDense(n, len(columns), nil)
	for j, name := range columns {
		values := df.Col(name).Float()
		for i, v := range values {
			if math.IsNaN(v) {
				return nil, carErrors.NewNonNumericError(op, name)
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// StringRows returns the named columns of df as rows of strings.
func StringRows(df dataframe.DataFrame, columns []string, op string) ([][]string, error) {
	if missing, ok := HasColumns(df, columns); !ok {
		return nil, carErrors.NewMissingColumnError(op, missing)
	}

	n := df.Nrow()
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = make([]string, len(columns))
	}
	for j, name := range columns {
		for i, v := range df.Col(name).Records() {
			rows[i][j] = v
		}
	}
	return rows, nil
}
