package reason

import (
	"context"
	"fmt"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// Mock is a configurable Reasoner for tests. Unset functions return a
// minimal successful reply so tests only stub what they exercise.
type Mock struct {
	UnderstandFn func(ctx context.Context, task TaskInput) (*models.Understanding, error)
	PlanFn       func(ctx context.Context, task TaskInput, understanding *models.Understanding) (*models.ProjectPlan, error)
	DecomposeFn  func(ctx context.Context, elements []string, agent AgentContext) (*models.Decomposition, error)
	ExecuteFn    func(ctx context.Context, spec models.BotSpec, agent AgentContext) (string, error)
	RespondFn    func(ctx context.Context, statusSnapshot string, message string) (string, error)
}

func (m *Mock) Understand(ctx context.Context, task TaskInput) (*models.Understanding, error) {
	if m.UnderstandFn != nil {
		return m.UnderstandFn(ctx, task)
	}
	return &models.Understanding{
		PrimaryIntent:     task.Title,
		Complexity:        "Simple",
		RequiredExpertise: []string{"General"},
	}, nil
}

func (m *Mock) Plan(ctx context.Context, task TaskInput, understanding *models.Understanding) (*models.ProjectPlan, error) {
	if m.PlanFn != nil {
		return m.PlanFn(ctx, task, understanding)
	}
	return &models.ProjectPlan{
		Overview: "single package plan",
		WorkPackages: []models.WorkPackage{{
			ID: "wp-1", Name: task.Title, Description: task.Description,
			AssignedTo: "generalist-1", Elements: []string{task.Title},
		}},
	}, nil
}

func (m *Mock) Decompose(ctx context.Context, elements []string, agent AgentContext) (*models.Decomposition, error) {
	if m.DecomposeFn != nil {
		return m.DecomposeFn(ctx, elements, agent)
	}
	specs := make([]models.BotSpec, len(elements))
	for i, e := range elements {
		specs[i] = models.BotSpec{Description: e, BotType: models.BotTypeGeneral}
	}
	return &models.Decomposition{Tasks: specs, Strategy: "one bot per element"}, nil
}

func (m *Mock) Execute(ctx context.Context, spec models.BotSpec, agent AgentContext) (string, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, spec, agent)
	}
	return fmt.Sprintf("%s completed: %s", agent.Name, spec.Description), nil
}

func (m *Mock) Respond(ctx context.Context, statusSnapshot string, message string) (string, error) {
	if m.RespondFn != nil {
		return m.RespondFn(ctx, statusSnapshot, message)
	}
	return "all quiet on the fleet", nil
}

// Compile-time check that Mock satisfies Reasoner.
var _ Reasoner = (*Mock)(nil)
