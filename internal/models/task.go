package models

import "time"

// Task types.
const (
	TaskTypeParse      = "parse"
	TaskTypeParseAll   = "parse-all"
	TaskTypeBulkDelete = "bulk-delete"
	TaskTypeClean      = "clean"
)

// Task phase labels. Status is free-form; these are the phases the built-in
// operations move through.
const (
	TaskStatusPending    = "pending"
	TaskStatusCounting   = "counting"
	TaskStatusProcessing = "processing"
	TaskStatusDeleting   = "deleting"
	TaskStatusMoving     = "moving"
	TaskStatusCompleted  = "completed"
	TaskStatusError      = "error"
)

// Task is one tracked long-running operation. Progress and Total are
// unitless cumulative counters whose unit is operation-specific: lines for
// ingest, ids for bulk delete, accounts-plus-files for clean.
type Task struct {
	ID        string    `json:"task_id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Progress  uint64    `json:"progress"`
	Total     uint64    `json:"total"`
	Completed bool      `json:"completed"`
	Error     string    `json:"error,omitempty"`
	StartTime time.Time `json:"start_time"`
	Message   string    `json:"message,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	ETA       string    `json:"eta,omitempty"`
}

// Terminal reports whether the task has reached a terminal state.
func (t *Task) Terminal() bool {
	return t.Completed
}
