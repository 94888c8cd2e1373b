package core

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// Snapshot is the diagnostics document for one pool: its counters plus the
// most recent poll records.
type Snapshot struct {
	Stats  PoolStats             `json:"stats"`
	Recent []TaskExecutionRecord `json:"recent,omitempty"`
}

// NewSnapshot captures the scheduler's stats and up to recent poll records.
func (s *TaskScheduler) NewSnapshot(recent int) Snapshot {
	snap := Snapshot{Stats: s.Stats()}
	if recent > 0 {
		snap.Recent = s.RecentTasks(recent)
	}
	return snap
}

// EncodeSnapshot serializes snap as JSON.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	data, err := sonic.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot marshal failed: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a document produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if len(data) == 0 {
		return snap, fmt.Errorf("data is empty")
	}
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("snapshot unmarshal failed: %w", err)
	}
	return snap, nil
}

// WriteSnapshot encodes snap as an indented JSON document to w.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	data, err := sonic.ConfigStd.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot marshal failed: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
