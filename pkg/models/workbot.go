package models

import "time"

// BotType categorizes the kind of work a bot performs.
type BotType string

const (
	BotTypeResearch       BotType = "research"
	BotTypeCodeGeneration BotType = "code-generation"
	BotTypeTesting        BotType = "testing"
	BotTypeDocumentation  BotType = "documentation"
	BotTypeDeployment     BotType = "deployment"
	BotTypeAnalysis       BotType = "analysis"
	BotTypeGeneral        BotType = "general"
)

// Valid returns true if the bot type is a known value.
func (t BotType) Valid() bool {
	switch t {
	case BotTypeResearch, BotTypeCodeGeneration, BotTypeTesting,
		BotTypeDocumentation, BotTypeDeployment, BotTypeAnalysis, BotTypeGeneral:
		return true
	default:
		return false
	}
}

// BotStatus represents the current state of a work bot.
type BotStatus string

const (
	// BotStatusCreated indicates the bot row exists but has not run.
	BotStatusCreated BotStatus = "created"
	// BotStatusRunning indicates the bot is executing.
	BotStatusRunning BotStatus = "running"
	// BotStatusCompleted indicates the bot finished successfully.
	BotStatusCompleted BotStatus = "completed"
	// BotStatusFailed indicates the bot's execution failed.
	BotStatusFailed BotStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s BotStatus) Valid() bool {
	switch s {
	case BotStatusCreated, BotStatusRunning, BotStatusCompleted, BotStatusFailed:
		return true
	default:
		return false
	}
}

// BotResult is the outcome of one work-bot execution.
type BotResult struct {
	// Success reports whether the execution produced output.
	Success bool `json:"success"`
	// Output is the free-text result when Success is true.
	Output string `json:"output,omitempty"`
	// Error is the failure message when Success is false.
	Error string `json:"error,omitempty"`
	// Timestamp is when the execution finished.
	Timestamp time.Time `json:"timestamp"`
}

// WorkBot is the smallest executable unit, spawned under one assignment.
// It never outlives its assignment.
type WorkBot struct {
	// ID is the row identifier assigned by the store.
	ID int64 `json:"id"`
	// ExternalID is the public identifier used by clients.
	ExternalID string `json:"external_id"`
	// AssignmentID references the owning assignment row.
	AssignmentID int64 `json:"assignment_id"`
	// AgentID references the agent whose assignment spawned this bot.
	AgentID string `json:"agent_id"`
	// Type categorizes the work.
	Type BotType `json:"type"`
	// Description is what the bot is expected to do.
	Description string `json:"description"`
	// Status is the current state of the bot.
	Status BotStatus `json:"status"`
	// Result is the execution outcome, if the bot has finished.
	Result *BotResult `json:"result,omitempty"`
	// CreatedAt is when the bot row was created.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when execution began, if it has.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when execution finished, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
