package core

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		out = append(out, m)
	}
	return out
}

// TestDefaultLogger_WritesJSONFields verifies the structured output
// Given: A DefaultLogger at debug writing to a buffer
// When: An info event with typed fields is logged
// Then: One JSON line carrying the message and each field is written
func TestDefaultLogger_WritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLoggerWithWriter(&buf, LevelFilterDebug)

	l.Info("pool started",
		F("pool", "p1"),
		F("workers", 4),
		F("stolen", int64(7)),
		F("closed", false),
		F("state", TaskStateIdle),
		F("wait", 2*time.Second),
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "pool started", line["msg"])
	assert.Equal(t, "p1", line["pool"])
	assert.EqualValues(t, 4, line["workers"])
	assert.Equal(t, false, line["closed"])
	assert.Equal(t, "idle", line["state"])
	assert.Contains(t, line, "ts")
	assert.Contains(t, line, "stolen")
	assert.Contains(t, line, "wait")
}

func TestDefaultLogger_FiltersAboveMaxLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLoggerWithWriter(&buf, LevelFilterWarn)
	assert.Equal(t, LevelFilterWarn, l.MaxLevel())

	l.Trace("trace")
	l.Debug("debug")
	l.Info("info")
	assert.Zero(t, buf.Len())

	l.Warn("warn")
	l.Error("error", F("error", errors.New("bad")))
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["msg"])
	assert.Equal(t, "error", lines[1]["msg"])
}

func TestDefaultLogger_ErrorFieldsKeepTheirKey(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLoggerWithWriter(&buf, LevelFilterInfo)

	l.Error("poll failed", F("cause", errors.New("bad")), F("err", errors.New("worse")))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "bad", lines[0]["cause"])
	assert.Equal(t, "worse", lines[0]["err"])
}

func TestDefaultLogger_UnsetFilterIsDefault(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLoggerWithWriter(&buf, LevelFilterUnset)
	assert.Equal(t, DefaultLevelFilter, l.MaxLevel())

	l.Debug("hidden")
	l.Info("shown")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestDefaultLogger_OffDropsEverything(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLoggerWithWriter(&buf, LevelFilterOff)
	l.Error("nope")
	assert.Zero(t, buf.Len())
}

func TestDefaultLogger_TraceEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLoggerWithWriter(&buf, LevelFilterTrace)
	l.Trace("transition", F("from", "idle"))
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "transition", lines[0]["msg"])
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NewNoOpLogger()
	assert.NotPanics(t, func() {
		l.Trace("x")
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
	})
}
