// Package state provides SQLite-based persistence for taskfleet.
package state

import (
	"time"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// AgentStore handles agent-related persistence operations.
type AgentStore interface {
	SeedAgent(a *models.Agent) error
	GetAgent(id string) (*models.Agent, error)
	ListAgents(activeOnly bool) ([]models.Agent, error)
	AdjustAgentLoad(id string, delta int) (*models.Agent, error)
}

// TaskStore handles task-related persistence operations.
type TaskStore interface {
	CreateTask(t *models.Task) error
	GetTask(id int64) (*models.Task, error)
	GetTaskByExternalID(externalID string) (*models.Task, error)
	UpdateTask(t *models.Task) error
	ListTasks(status *models.TaskStatus) ([]models.Task, error)
}

// AssignmentStore handles assignment-related persistence operations.
type AssignmentStore interface {
	CreateAssignment(a *models.Assignment) error
	GetAssignment(id int64) (*models.Assignment, error)
	ListAssignmentsByTask(taskID int64) ([]models.Assignment, error)
	ListAssignmentsByStatus(status models.AssignmentStatus) ([]models.Assignment, error)
	ClaimAssignment(id int64, startedAt time.Time) (bool, error)
	UpdateAssignmentProgress(id int64, progress int) error
	FinalizeAssignment(id int64, status models.AssignmentStatus, progress int, completedAt time.Time) error
}

// WorkBotStore handles work-bot persistence operations.
type WorkBotStore interface {
	CreateWorkBot(b *models.WorkBot) error
	MarkWorkBotRunning(id int64, startedAt time.Time) error
	FinishWorkBot(id int64, status models.BotStatus, result *models.BotResult, completedAt time.Time) error
	ListWorkBotsByAssignment(assignmentID int64) ([]models.WorkBot, error)
	CountWorkBotOutcomes(assignmentID int64) (completed, total int, err error)
}

// ProgressStore handles the append-only progress log.
type ProgressStore interface {
	AppendProgress(p *models.ProgressUpdate) error
	ListProgressByTask(taskID int64) ([]models.ProgressUpdate, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for taskfleet persistence.
// It composes focused sub-interfaces so components can depend on only the
// operations they use, without binding to the concrete SQLite implementation.
type Store interface {
	AgentStore
	TaskStore
	AssignmentStore
	WorkBotStore
	ProgressStore
	Migrator
}

// Compile-time check that DB satisfies Store.
var _ Store = (*DB)(nil)
