package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been recorded but not planned.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates assignments have been delegated.
	TaskStatusInProgress TaskStatus = "in-progress"
	// TaskStatusCompleted indicates every assignment completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Task represents a user-submitted unit of work tracked end to end.
type Task struct {
	// ID is the row identifier assigned by the store.
	ID int64 `json:"id"`
	// ExternalID is the public identifier used by clients.
	ExternalID string `json:"external_id"`
	// UserID identifies the submitter.
	UserID string `json:"user_id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Intent is the classification produced for this task.
	Intent *Understanding `json:"intent,omitempty"`
	// Priority is the urgency of the task.
	Priority Priority `json:"priority"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`
	// CompletedAt is when the task was finalized, if applicable.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
