package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTaskState_EncodeDecodeRoundTrip verifies every valid value survives decode then encode
// Given: The integers 0 through 5
// When: Each is decoded and re-encoded
// Then: The original integer comes back and the decoded variant is the expected one
func TestTaskState_EncodeDecodeRoundTrip(t *testing.T) {
	expected := []TaskState{
		TaskStateIdle,
		TaskStateRunning,
		TaskStateNotified,
		TaskStateScheduled,
		TaskStateComplete,
		TaskStateAborted,
	}
	require.Equal(t, expected, AllTaskStates)

	for i, want := range expected {
		s, err := DecodeTaskState(uint32(i))
		require.NoError(t, err)
		assert.Equal(t, want, s)
		assert.Equal(t, uint32(i), s.Encode())
	}
}

// TestTaskState_DecodeRejectsOutOfRange verifies decoding never clamps
// Given: Integers above TaskStateAborted
// When: Decoded
// Then: ErrInvalidTaskState is returned and MustDecodeTaskState panics
func TestTaskState_DecodeRejectsOutOfRange(t *testing.T) {
	for _, v := range []uint32{6, 7, 255, 1 << 16, math.MaxUint32} {
		_, err := DecodeTaskState(v)
		require.ErrorIs(t, err, ErrInvalidTaskState, "value %d", v)
		assert.Panics(t, func() { MustDecodeTaskState(v) }, "value %d", v)
	}
}

func TestTaskState_StringAndParse(t *testing.T) {
	names := map[TaskState]string{
		TaskStateIdle:      "idle",
		TaskStateRunning:   "running",
		TaskStateNotified:  "notified",
		TaskStateScheduled: "scheduled",
		TaskStateComplete:  "complete",
		TaskStateAborted:   "aborted",
	}
	for s, name := range names {
		assert.Equal(t, name, s.String())
		parsed, err := ParseTaskState(name)
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	parsed, err := ParseTaskState("  Scheduled ")
	require.NoError(t, err)
	assert.Equal(t, TaskStateScheduled, parsed)

	_, err = ParseTaskState("weird")
	assert.ErrorIs(t, err, ErrInvalidTaskState)

	assert.Equal(t, "TaskState(9)", TaskState(9).String())
}

func TestTaskState_Predicates(t *testing.T) {
	for _, s := range AllTaskStates {
		assert.True(t, s.IsValid())
		assert.Equal(t, s == TaskStateComplete || s == TaskStateAborted, s.IsTerminal(), s.String())
		assert.Equal(t, s == TaskStateRunning || s == TaskStateNotified, s.HoldsPollRight(), s.String())
	}
	assert.False(t, TaskState(6).IsValid())
}

func TestTaskState_JSON(t *testing.T) {
	type doc struct {
		State  TaskState         `json:"state"`
		Counts map[TaskState]int `json:"counts"`
	}

	data, err := json.Marshal(doc{
		State:  TaskStateNotified,
		Counts: map[TaskState]int{TaskStateIdle: 2},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"notified","counts":{"idle":2}}`, string(data))

	var out doc
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, TaskStateNotified, out.State)
	assert.Equal(t, 2, out.Counts[TaskStateIdle])

	_, err = json.Marshal(doc{State: TaskState(42)})
	assert.Error(t, err)

	assert.Error(t, json.Unmarshal([]byte(`{"state":"bogus"}`), &out))
}
