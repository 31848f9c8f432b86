package log

import (
	"context"
	"fmt"
	"sync"

	"github.com/ezoic/carprice/pkg/errors"
)

// Record is one captured log call.
type Record struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// Field returns the value stored under key and whether it was set.
func (r Record) Field(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// recordSink is shared by a TestLogger and every logger derived from it.
type recordSink struct {
	mu      sync.Mutex
	level   Level
	records []Record
}

// TestLogger keeps records in memory so tests can assert on what an
// estimator logged. Field values are stored as passed, errors as their
// message.
type TestLogger struct {
	sink   *recordSink
	fields map[string]any
}

// NewTestLogger returns a logger capturing records at or above level.
func NewTestLogger(level Level) *TestLogger {
	return &TestLogger{sink: &recordSink{level: level}, fields: map[string]any{}}
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.record(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.record(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.record(LevelError, msg, fields) }

// With returns a logger sharing the same records with fields attached.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make(map[string]any, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		merged[k] = v
	}
	addPairs(merged, fields)
	return &TestLogger{sink: t.sink, fields: merged}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	return level >= t.sink.level
}

func (t *TestLogger) record(level Level, msg string, fields []any) {
	if !t.Enabled(context.Background(), level) {
		return
	}
	rec := Record{Level: level, Message: msg, Fields: make(map[string]any, len(t.fields)+len(fields)/2)}
	for k, v := range t.fields {
		rec.Fields[k] = v
	}
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			rec.Fields[ErrAttrKey] = err.Error()
			fields = fields[1:]
		} else {
			fields = fields[:len(fields)-1]
		}
	}
	addPairs(rec.Fields, fields)

	t.sink.mu.Lock()
	t.sink.records = append(t.sink.records, rec)
	t.sink.mu.Unlock()
}

func addPairs(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		v := fields[i+1]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		dst[fmt.Sprint(fields[i])] = v
	}
}

// Records returns a copy of everything captured so far.
func (t *TestLogger) Records() []Record {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	return append([]Record(nil), t.sink.records...)
}

// Find returns the first record with the given message.
func (t *TestLogger) Find(msg string) (Record, bool) {
	for _, r := range t.Records() {
		if r.Message == msg {
			return r, true
		}
	}
	return Record{}, false
}

// Reset drops the captured records.
func (t *TestLogger) Reset() {
	t.sink.mu.Lock()
	t.sink.records = nil
	t.sink.mu.Unlock()
}

// TestLoggerProvider hands out TestLoggers that share one record list.
type TestLoggerProvider struct {
	*TestLogger
}

// NewTestLoggerProvider returns a provider capturing records at or above level.
func NewTestLoggerProvider(level Level) *TestLoggerProvider {
	return &TestLoggerProvider{TestLogger: NewTestLogger(level)}
}

func (p *TestLoggerProvider) GetLogger() Logger { return p.TestLogger }

func (p *TestLoggerProvider) GetLoggerWithName(name string) Logger {
	return p.With(ComponentKey, name)
}

func (p *TestLoggerProvider) SetLevel(level Level) {
	p.sink.mu.Lock()
	p.sink.level = level
	p.sink.mu.Unlock()
}

// Install makes p the global provider and routes library warnings to it.
// The returned func restores the defaults.
//
//	provider := log.NewTestLoggerProvider(log.LevelDebug)
//	defer provider.Install()()
func (p *TestLoggerProvider) Install() func() {
	SetGlobalProvider(p)
	routeWarnings(p)
	return func() {
		SetGlobalProvider(nil)
		errors.SetZerologWarnFunc(nil)
	}
}
