package domain

import "time"

// Ledger is the durable record of completed work items
type Ledger interface {
	// Contains reports whether a previous run completed the item
	Contains(item WorkItem) bool

	// Append records the item as completed; it is safe for concurrent use
	// and a no-op when the item is already present
	Append(item WorkItem) error

	// Len returns the number of recorded items
	Len() int

	// Close releases the underlying store
	Close() error
}

// RunRepository defines the interface for run history persistence
type RunRepository interface {
	// SaveRun stores the summary of a finished run
	SaveRun(stats *RunStats) error

	// RecentRuns returns up to limit runs, newest first
	RecentRuns(limit int) ([]*RunStats, error)
}

// RunStats summarizes one pipeline run
type RunStats struct {
	RunID        string     `json:"run_id" gorm:"primaryKey"`
	StartedAt    time.Time  `json:"started_at" gorm:"index"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Workers      int        `json:"workers"`
	Total        int64      `json:"total"`
	Dispatched   int64      `json:"dispatched"`
	Succeeded    int64      `json:"succeeded"`
	Failed       int64      `json:"failed"`
	Unprocessed  int64      `json:"unprocessed"`
	Descriptors  int64      `json:"descriptors"`
	BytesWritten int64      `json:"bytes_written"`
	Interrupted  bool       `json:"interrupted"`
}

// TableName specifies the table name for GORM
func (RunStats) TableName() string {
	return "pipeline_runs"
}

// InFlight returns the number of dispatched items not yet terminal
func (s *RunStats) InFlight() int64 {
	return s.Dispatched - s.Succeeded - s.Failed
}

// Duration returns the run's wall time, measured to now while running
func (s *RunStats) Duration() time.Duration {
	if s.FinishedAt == nil {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
