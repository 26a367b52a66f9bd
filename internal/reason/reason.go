// Package reason provides the external reasoning collaborator for
// taskfleet: the LLM interface used for task understanding, planning,
// assignment decomposition, simulated execution, and status replies.
//
// Every method may fail (network error, malformed reply). Callers in the
// core degrade via documented fallbacks; no reasoning failure ever
// propagates to a public coordinator entry point.
package reason

import (
	"context"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// TaskInput describes the task being reasoned about.
type TaskInput struct {
	// Title is the short task description.
	Title string
	// Description is the detailed task text.
	Description string
	// Priority is the task's urgency.
	Priority models.Priority
}

// AgentContext names the agent on whose behalf a call is made.
type AgentContext struct {
	// Name is the agent's display name.
	Name string
	// Specialization is the agent's primary discipline.
	Specialization string
}

// Reasoner is the reasoning collaborator contract.
type Reasoner interface {
	// Understand classifies a task into an understanding record.
	Understand(ctx context.Context, task TaskInput) (*models.Understanding, error)
	// Plan produces an ordered project plan for an understood task.
	Plan(ctx context.Context, task TaskInput, understanding *models.Understanding) (*models.ProjectPlan, error)
	// Decompose breaks assignment elements into concrete bot specs.
	Decompose(ctx context.Context, elements []string, agent AgentContext) (*models.Decomposition, error)
	// Execute runs one simulated unit of work and returns its output text.
	Execute(ctx context.Context, spec models.BotSpec, agent AgentContext) (string, error)
	// Respond answers a free-form message about a task status snapshot.
	Respond(ctx context.Context, statusSnapshot string, message string) (string, error)
}
