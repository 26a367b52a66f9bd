// Package orchestrator coordinates the task/assignment/work-bot
// lifecycle: the master coordinator delegates work packages to agents,
// the agent coordinator turns each assignment into a definite outcome,
// and the sweeper drives pending assignments on an interval.
package orchestrator

import (
	"time"
)

// EventType represents the type of fleet event.
type EventType string

const (
	// EventTaskReceived indicates a task was accepted and delegated.
	EventTaskReceived EventType = "task_received"
	// EventAssignmentCreated indicates a work package was delegated to an agent.
	EventAssignmentCreated EventType = "assignment_created"
	// EventAssignmentStarted indicates an assignment was claimed for processing.
	EventAssignmentStarted EventType = "assignment_started"
	// EventBotCompleted indicates one work bot finished (success or failure).
	EventBotCompleted EventType = "bot_completed"
	// EventAssignmentCompleted indicates an assignment reached a terminal status.
	EventAssignmentCompleted EventType = "assignment_completed"
	// EventTaskCompleted indicates every assignment of a task completed.
	EventTaskCompleted EventType = "task_completed"
	// EventProgressChecked indicates a progress roll-up ran for a task.
	EventProgressChecked EventType = "progress_checked"
)

// Event represents a state change broadcast to subscribers.
// Events are advisory: the authoritative state is always readable via
// the status query, so dropped events lose nothing durable.
type Event struct {
	// Type is the kind of event.
	Type EventType `json:"type"`
	// TaskID is the external ID of the related task, if applicable.
	TaskID string `json:"task_id,omitempty"`
	// AssignmentID is the external ID of the related assignment, if applicable.
	AssignmentID string `json:"assignment_id,omitempty"`
	// AgentID is the ID of the related agent, if applicable.
	AgentID string `json:"agent_id,omitempty"`
	// Message provides additional context about the event.
	Message string `json:"message,omitempty"`
	// Progress is the percentage relevant to the event, if any.
	Progress int `json:"progress,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}
