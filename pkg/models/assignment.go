package models

import "time"

// AssignmentStatus represents the current state of an assignment.
type AssignmentStatus string

const (
	// AssignmentStatusAssigned indicates the assignment is waiting to be picked up.
	AssignmentStatusAssigned AssignmentStatus = "assigned"
	// AssignmentStatusInProgress indicates work bots are executing.
	AssignmentStatusInProgress AssignmentStatus = "in-progress"
	// AssignmentStatusCompleted indicates every work bot succeeded.
	AssignmentStatusCompleted AssignmentStatus = "completed"
	// AssignmentStatusPartial indicates some but not all work bots succeeded.
	AssignmentStatusPartial AssignmentStatus = "partial"
	// AssignmentStatusFailed indicates the assignment failed before any bot ran,
	// or every bot failed.
	AssignmentStatusFailed AssignmentStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusAssigned, AssignmentStatusInProgress,
		AssignmentStatusCompleted, AssignmentStatusPartial, AssignmentStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed from this status.
func (s AssignmentStatus) Terminal() bool {
	switch s {
	case AssignmentStatusCompleted, AssignmentStatusPartial, AssignmentStatusFailed:
		return true
	default:
		return false
	}
}

// Assignment is one work package of a task delegated to a single agent.
// The master coordinator creates it; the agent coordinator is the sole
// mutator of status and progress after creation.
type Assignment struct {
	// ID is the row identifier assigned by the store.
	ID int64 `json:"id"`
	// ExternalID is the public identifier used by clients.
	ExternalID string `json:"external_id"`
	// TaskID references the owning task row.
	TaskID int64 `json:"task_id"`
	// AgentID references the agent the work was delegated to.
	AgentID string `json:"agent_id"`
	// AssignedElements is the ordered list of plan elements to work on.
	AssignedElements []string `json:"assigned_elements"`
	// Status is the current state of the assignment.
	Status AssignmentStatus `json:"status"`
	// Progress is the percentage of work bots that succeeded, 0-100.
	Progress int `json:"progress"`
	// AssignedAt is when the assignment was created.
	AssignedAt time.Time `json:"assigned_at"`
	// StartedAt is when processing began, if it has.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the assignment reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
