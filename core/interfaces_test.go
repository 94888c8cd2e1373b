package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPanicHandler_LogsAtError(t *testing.T) {
	var buf bytes.Buffer
	h := &DefaultPanicHandler{Logger: NewDefaultLoggerWithWriter(&buf, LevelFilterError)}
	id := GenerateTaskID()

	h.HandlePanic(context.Background(), "pool", 3, id, "boom", []byte("stack"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "task panicked", lines[0]["msg"])
	assert.Equal(t, id.String(), lines[0]["task_id"])
	assert.EqualValues(t, 3, lines[0]["worker"])
}

func TestDefaultHandlers_NilLoggerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		(&DefaultPanicHandler{}).HandlePanic(context.Background(), "p", 0, TaskID{}, "x", nil)
		(&DefaultRejectedTaskHandler{}).HandleRejectedTask("p", "closed")
	})
}

func TestDefaultRejectedTaskHandler_LogsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	h := &DefaultRejectedTaskHandler{Logger: NewDefaultLoggerWithWriter(&buf, LevelFilterWarn)}
	h.HandleRejectedTask("pool", "shutting down")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "task rejected", lines[0]["msg"])
	assert.Equal(t, "shutting down", lines[0]["reason"])
}

func TestNilMetrics_Implements(t *testing.T) {
	var m Metrics = &NilMetrics{}
	assert.NotPanics(t, func() {
		m.RecordPollDuration("p", 0)
		m.RecordTaskPanic("p", nil)
		m.RecordQueueDepth("p", 1)
		m.RecordTaskRejected("p", "r")
		m.RecordWake("p", NotifyMustEnqueue)
		m.RecordTaskFinished("p", TaskStateComplete)
	})
}

func TestDefaultTaskSchedulerConfig(t *testing.T) {
	cfg := DefaultTaskSchedulerConfig()
	assert.Equal(t, "taskpool", cfg.Name)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.PanicHandler)
	assert.NotNil(t, cfg.Metrics)
	assert.NotNil(t, cfg.RejectedTaskHandler)
	assert.Equal(t, defaultStealBatch, cfg.StealBatch)
	assert.Equal(t, defaultTaskHistoryCapacity, cfg.HistoryCapacity)
}
