package core

import "time"

// TaskExecutionRecord captures one poll of a task.
type TaskExecutionRecord struct {
	TaskID     TaskID        `json:"task_id"`
	Name       string        `json:"name"`
	PoolName   string        `json:"pool"`
	WorkerID   int           `json:"worker"`
	Poll       uint64        `json:"poll"`
	Outcome    string        `json:"outcome"`
	FinalState TaskState     `json:"state"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	Panicked   bool          `json:"panicked"`
}

// PoolStats represents runtime observability state for a thread pool.
type PoolStats struct {
	ID          string            `json:"id"`
	Workers     int               `json:"workers"`
	Queued      int               `json:"queued"`
	Active      int               `json:"active"`
	Outstanding int               `json:"outstanding"`
	Completed   int64             `json:"completed"`
	Aborted     int64             `json:"aborted"`
	Panicked    int64             `json:"panicked"`
	Rejected    int64             `json:"rejected"`
	Stolen      int64             `json:"stolen"`
	Timers      int               `json:"timers"`
	States      map[TaskState]int `json:"states"`
	Running     bool              `json:"running"`
	LastTask    string            `json:"last_task,omitempty"`
	LastTaskAt  time.Time         `json:"last_task_at,omitzero"`
}
