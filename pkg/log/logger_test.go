package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/carprice/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerologProvider(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProviderWithWriter(&buf, LevelInfo)

	logger := provider.GetLoggerWithName("LinearRegression")
	logger.Debug("hidden")
	logger.Info("Training completed", OperationKey, OperationFit, SamplesKey, 20)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "Training completed", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "LinearRegression", lines[0][ComponentKey])
	assert.Equal(t, "fit", lines[0][OperationKey])
	assert.Equal(t, float64(20), lines[0][SamplesKey])
}

func TestZerologLoggerErrorFirstField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProviderWithWriter(&buf, LevelDebug).GetLogger()

	logger.Error("fit failed", fmt.Errorf("boom"), OperationKey, OperationFit)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0][ErrAttrKey])
	assert.Equal(t, "fit", lines[0][OperationKey])
}

func TestZerologLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProviderWithWriter(&buf, LevelDebug).GetLogger().With(RunIDKey, "abc")

	logger.Debug("step")
	logger.Warn("dangling key", "orphan")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, "abc", l[RunIDKey])
	}
	_, ok := lines[1]["orphan"]
	assert.False(t, ok)
}

func TestEnabled(t *testing.T) {
	logger := NewZerologProviderWithWriter(&bytes.Buffer{}, LevelWarn).GetLogger()
	ctx := context.Background()

	assert.False(t, logger.Enabled(ctx, LevelDebug))
	assert.False(t, logger.Enabled(ctx, LevelInfo))
	assert.True(t, logger.Enabled(ctx, LevelWarn))
	assert.True(t, logger.Enabled(ctx, LevelError))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

}

func TestGlobalProvider(t *testing.T) {
	provider := NewTestLoggerProvider(LevelDebug)
	defer provider.Install()()

	GetLoggerWithName("Pipeline").Info("fitted", FeaturesKey, 11)

	rec, ok := provider.Find("fitted")
	require.True(t, ok)
	assert.Equal(t, LevelInfo, rec.Level)
	assert.Equal(t, "Pipeline", rec.Fields[ComponentKey])
	assert.Equal(t, 11, rec.Fields[FeaturesKey])
}

func TestTestLogger(t *testing.T) {
	logger := NewTestLogger(LevelInfo)

	logger.Debug("dropped")
	logger.With(ColumnsKey, 8).Error("failed", fmt.Errorf("bad column"), "column", "Year")

	records := logger.Records()
	require.Len(t, records, 1)
	assert.Equal(t, LevelError, records[0].Level)
	assert.Equal(t, "bad column", records[0].Fields[ErrAttrKey])
	assert.Equal(t, "Year", records[0].Fields["column"])
	assert.Equal(t, 8, records[0].Fields[ColumnsKey])

	_, ok := logger.Find("dropped")
	assert.False(t, ok)

	logger.Reset()
	assert.Empty(t, logger.Records())
}

func TestTestLoggerProvider_RoutesWarnings(t *testing.T) {
	provider := NewTestLoggerProvider(LevelWarn)
	defer provider.Install()()

	errors.Warn(errors.NewFeatureCountWarning("SelectKBest", 12, 11))

	rec, ok := provider.Find("SelectKBest: k=12 is greater than n_features=11. All the features will be returned.")
	require.True(t, ok)
	assert.Equal(t, "warnings", rec.Fields[ComponentKey])
	assert.Equal(t, "*errors.FeatureCountWarning", rec.Fields[ErrorTypeKey])
}
