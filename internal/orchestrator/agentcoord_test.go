package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/taskfleet/taskfleet/internal/reason"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// receiveOne submits a task and requires the plan to yield exactly one
// assignment.
func receiveOne(t *testing.T, master *Master) ReceiveTaskResult {
	t.Helper()

	result := master.ReceiveTask(context.Background(), TaskRequest{
		UserID: "u1", Title: "Batch of work",
	})
	if !result.Success {
		t.Fatalf("ReceiveTask failed: %s", result.Error)
	}
	if len(result.Assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(result.Assignments))
	}
	return result
}

func planWithElements(elements []string) func(context.Context, reason.TaskInput, *models.Understanding) (*models.ProjectPlan, error) {
	return func(ctx context.Context, task reason.TaskInput, u *models.Understanding) (*models.ProjectPlan, error) {
		return &models.ProjectPlan{
			WorkPackages: []models.WorkPackage{
				{ID: "wp-1", Name: task.Title, AssignedTo: "backend-1", Elements: elements},
			},
		}, nil
	}
}

func TestProcessAssignmentAllSucceed(t *testing.T) {
	mock := &reason.Mock{PlanFn: planWithElements([]string{"build api", "write docs"})}
	master, db, reg := newTestFleet(t, mock)
	coord := NewAgentCoordinator(db, reg, mock, nil, nil)
	sweeper := NewSweeper(db, coord, master, nil, 0)

	result := receiveOne(t, master)

	n, err := sweeper.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if n != 1 {
		t.Fatalf("Tick processed %d assignments, want 1", n)
	}

	a, err := db.GetAssignment(result.Assignments[0].ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if a.Status != models.AssignmentStatusCompleted {
		t.Errorf("assignment status = %s, want %s", a.Status, models.AssignmentStatusCompleted)
	}
	if a.Progress != 100 {
		t.Errorf("assignment progress = %d, want 100", a.Progress)
	}

	bots, err := db.ListWorkBotsByAssignment(a.ID)
	if err != nil {
		t.Fatalf("list bots: %v", err)
	}
	if len(bots) != 2 {
		t.Fatalf("expected 2 work bots, got %d", len(bots))
	}
	for _, bot := range bots {
		if bot.Status != models.BotStatusCompleted {
			t.Errorf("bot %s status = %s, want %s", bot.ExternalID, bot.Status, models.BotStatusCompleted)
		}
	}

	// Load balances out: one increment at creation, one decrement at report.
	agent, err := db.GetAgent("backend-1")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if agent.CurrentLoad != 0 {
		t.Errorf("agent load = %d, want 0", agent.CurrentLoad)
	}

	// The single completed assignment rolls the task up to completed.
	status := master.GetTaskStatus(result.TaskID)
	if status.Task.Status != models.TaskStatusCompleted {
		t.Errorf("task status = %s, want %s", status.Task.Status, models.TaskStatusCompleted)
	}
}

func TestProcessAssignmentPartialSuccess(t *testing.T) {
	mock := &reason.Mock{
		PlanFn: planWithElements([]string{"one", "two", "three", "four"}),
		ExecuteFn: func(ctx context.Context, spec models.BotSpec, agent reason.AgentContext) (string, error) {
			if spec.Description == "three" {
				return "", errors.New("flaky tool")
			}
			return "done: " + spec.Description, nil
		},
	}
	master, db, reg := newTestFleet(t, mock)
	coord := NewAgentCoordinator(db, reg, mock, nil, nil)
	sweeper := NewSweeper(db, coord, master, nil, 0)

	result := receiveOne(t, master)

	if _, err := sweeper.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	a, err := db.GetAssignment(result.Assignments[0].ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if a.Status != models.AssignmentStatusPartial {
		t.Errorf("assignment status = %s, want %s", a.Status, models.AssignmentStatusPartial)
	}
	if a.Progress != 75 {
		t.Errorf("assignment progress = %d, want 75", a.Progress)
	}

	status := master.GetTaskStatus(result.TaskID)
	found := false
	for _, u := range status.Updates {
		if strings.Contains(u.Message, "3/4 work bots successful") {
			found = true
		}
	}
	if !found {
		t.Error("expected a '3/4 work bots successful' update")
	}

	// A partial assignment does not resolve the task.
	if status.Task.Status != models.TaskStatusInProgress {
		t.Errorf("task status = %s, want %s", status.Task.Status, models.TaskStatusInProgress)
	}
}

func TestProcessAssignmentAllBotsFail(t *testing.T) {
	mock := &reason.Mock{
		PlanFn: planWithElements([]string{"only job"}),
		ExecuteFn: func(ctx context.Context, spec models.BotSpec, agent reason.AgentContext) (string, error) {
			return "", errors.New("tool broken")
		},
	}
	master, db, reg := newTestFleet(t, mock)
	coord := NewAgentCoordinator(db, reg, mock, nil, nil)
	sweeper := NewSweeper(db, coord, master, nil, 0)

	result := receiveOne(t, master)

	if _, err := sweeper.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	a, err := db.GetAssignment(result.Assignments[0].ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if a.Status != models.AssignmentStatusFailed {
		t.Errorf("assignment status = %s, want %s", a.Status, models.AssignmentStatusFailed)
	}

	agent, err := db.GetAgent("backend-1")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if agent.CurrentLoad != 0 {
		t.Errorf("agent load = %d after failure, want 0", agent.CurrentLoad)
	}
}

func TestDecomposeFallbackAndCap(t *testing.T) {
	elements := []string{"e1", "e2", "e3", "e4", "e5", "e6", "e7"}
	mock := &reason.Mock{
		PlanFn: planWithElements(elements),
		DecomposeFn: func(ctx context.Context, elements []string, agent reason.AgentContext) (*models.Decomposition, error) {
			return nil, errors.New("model unavailable")
		},
	}
	master, db, reg := newTestFleet(t, mock)
	coord := NewAgentCoordinator(db, reg, mock, nil, nil)
	sweeper := NewSweeper(db, coord, master, nil, 0)

	result := receiveOne(t, master)

	if _, err := sweeper.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	bots, err := db.ListWorkBotsByAssignment(result.Assignments[0].ID)
	if err != nil {
		t.Fatalf("list bots: %v", err)
	}
	if len(bots) != MaxBotsPerAssignment {
		t.Fatalf("expected %d bots after fallback and cap, got %d", MaxBotsPerAssignment, len(bots))
	}
	for i, bot := range bots {
		if bot.Type != models.BotTypeGeneral {
			t.Errorf("fallback bot %d type = %s, want %s", i, bot.Type, models.BotTypeGeneral)
		}
		if bot.Description != elements[i] {
			t.Errorf("fallback bot %d description = %q, want %q", i, bot.Description, elements[i])
		}
	}
}

func TestSweeperClaimsEachAssignmentOnce(t *testing.T) {
	mock := &reason.Mock{}
	master, db, reg := newTestFleet(t, mock)
	coord := NewAgentCoordinator(db, reg, mock, nil, nil)
	sweeper := NewSweeper(db, coord, master, nil, 0)

	receiveOne(t, master)

	n, err := sweeper.Tick(context.Background())
	if err != nil {
		t.Fatalf("first Tick: %v", err)
	}
	if n != 1 {
		t.Fatalf("first Tick processed %d, want 1", n)
	}

	n, err = sweeper.Tick(context.Background())
	if err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	if n != 0 {
		t.Errorf("second Tick processed %d, want 0", n)
	}
}

func TestSweeperProcessesConcurrentAssignments(t *testing.T) {
	mock := &reason.Mock{
		PlanFn: func(ctx context.Context, task reason.TaskInput, u *models.Understanding) (*models.ProjectPlan, error) {
			return &models.ProjectPlan{
				WorkPackages: []models.WorkPackage{
					{ID: "wp-1", Name: "Backend", AssignedTo: "backend-1", Elements: []string{"api"}},
					{ID: "wp-2", Name: "Frontend", AssignedTo: "frontend-1", Elements: []string{"ui"}},
					{ID: "wp-3", Name: "QA", AssignedTo: "qa-1", Elements: []string{"tests"}},
				},
			}, nil
		},
	}
	master, db, reg := newTestFleet(t, mock)
	coord := NewAgentCoordinator(db, reg, mock, nil, nil)
	sweeper := NewSweeper(db, coord, master, nil, 0)

	result := receiveOneOfMany(t, master, 3)

	n, err := sweeper.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if n != 3 {
		t.Fatalf("Tick processed %d, want 3", n)
	}

	for _, a := range result.Assignments {
		got, err := db.GetAssignment(a.ID)
		if err != nil {
			t.Fatalf("get assignment: %v", err)
		}
		if got.Status != models.AssignmentStatusCompleted {
			t.Errorf("assignment %s status = %s, want %s", a.ExternalID, got.Status, models.AssignmentStatusCompleted)
		}
	}

	status := master.GetTaskStatus(result.TaskID)
	if status.Task.Status != models.TaskStatusCompleted {
		t.Errorf("task status = %s, want %s", status.Task.Status, models.TaskStatusCompleted)
	}
}

func receiveOneOfMany(t *testing.T, master *Master, want int) ReceiveTaskResult {
	t.Helper()

	result := master.ReceiveTask(context.Background(), TaskRequest{UserID: "u1", Title: "Fan out"})
	if !result.Success {
		t.Fatalf("ReceiveTask failed: %s", result.Error)
	}
	if len(result.Assignments) != want {
		t.Fatalf("expected %d assignments, got %d", want, len(result.Assignments))
	}
	return result
}
