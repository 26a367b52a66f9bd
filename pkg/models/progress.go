package models

import "time"

// SourceType identifies which layer produced a progress update.
type SourceType string

const (
	SourceCoordinator SourceType = "coordinator"
	SourceAgent       SourceType = "agent"
	SourceWorkBot     SourceType = "work-bot"
	SourceExternal    SourceType = "external"
)

// Valid returns true if the source type is a known value.
func (s SourceType) Valid() bool {
	switch s {
	case SourceCoordinator, SourceAgent, SourceWorkBot, SourceExternal:
		return true
	default:
		return false
	}
}

// ProgressUpdate is one entry in a task's append-only audit log.
// Updates are never mutated or deleted; listings return newest first.
type ProgressUpdate struct {
	// ID is the row identifier assigned by the store.
	ID int64 `json:"id"`
	// ExternalID is the public identifier used by clients.
	ExternalID string `json:"external_id"`
	// TaskID references the owning task row.
	TaskID int64 `json:"task_id"`
	// SourceType identifies the layer that produced the update.
	SourceType SourceType `json:"source_type"`
	// SourceID identifies the producing entity (agent id, bot id, ...).
	SourceID string `json:"source_id"`
	// Message is the human-readable update text.
	Message string `json:"message"`
	// ProgressPercentage is the overall progress at emission time, if known.
	ProgressPercentage *int `json:"progress_percentage,omitempty"`
	// CreatedAt is when the update was appended.
	CreatedAt time.Time `json:"created_at"`
}
