package workbot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskfleet/taskfleet/internal/reason"
	"github.com/taskfleet/taskfleet/internal/state"
	"github.com/taskfleet/taskfleet/pkg/models"
)

func testSetup(t *testing.T) (*state.DB, *models.WorkBot) {
	t.Helper()

	db, err := state.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	err = db.SeedAgent(&models.Agent{
		ID: "backend-1", Name: "Brick", Specialization: "backend",
		ExpertiseAreas: []string{"api"}, MaxCapacity: 3, Active: true,
	})
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}

	now := time.Now()
	task := &models.Task{
		ExternalID: "task-1", UserID: "u1", Title: "t",
		Priority: models.PriorityNormal, Status: models.TaskStatusPending,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	assignment := &models.Assignment{
		ExternalID: "assign-1", TaskID: task.ID, AgentID: "backend-1",
		AssignedElements: []string{"e"}, Status: models.AssignmentStatusInProgress,
		AssignedAt: now,
	}
	if err := db.CreateAssignment(assignment); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	bot := &models.WorkBot{
		ExternalID: "bot-1", AssignmentID: assignment.ID, AgentID: "backend-1",
		Type: models.BotTypeGeneral, Description: "write the handler",
		Status: models.BotStatusCreated, CreatedAt: now,
	}
	if err := db.CreateWorkBot(bot); err != nil {
		t.Fatalf("create bot: %v", err)
	}
	return db, bot
}

func TestRunSuccess(t *testing.T) {
	db, bot := testSetup(t)
	exec := NewExecutor(db, &reason.Mock{})

	result, err := exec.Run(context.Background(), bot, reason.AgentContext{Name: "Brick", Specialization: "backend"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Errorf("result should be successful: %+v", result)
	}
	if result.Output == "" {
		t.Error("successful result should carry output")
	}

	bots, err := db.ListWorkBotsByAssignment(bot.AssignmentID)
	if err != nil {
		t.Fatalf("list bots: %v", err)
	}
	if bots[0].Status != models.BotStatusCompleted {
		t.Errorf("status = %q, want completed", bots[0].Status)
	}
	if bots[0].StartedAt == nil || bots[0].CompletedAt == nil {
		t.Error("started_at and completed_at should be stamped")
	}
}

func TestRunFailure(t *testing.T) {
	db, bot := testSetup(t)
	exec := NewExecutor(db, &reason.Mock{
		ExecuteFn: func(ctx context.Context, spec models.BotSpec, agent reason.AgentContext) (string, error) {
			return "", errors.New("model timeout")
		},
	})

	result, err := exec.Run(context.Background(), bot, reason.AgentContext{Name: "Brick"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success {
		t.Error("result should be a failure")
	}
	if result.Error != "model timeout" {
		t.Errorf("error = %q", result.Error)
	}

	// A failed execution marks the bot failed, never completed.
	bots, err := db.ListWorkBotsByAssignment(bot.AssignmentID)
	if err != nil {
		t.Fatalf("list bots: %v", err)
	}
	if bots[0].Status != models.BotStatusFailed {
		t.Errorf("status = %q, want failed", bots[0].Status)
	}
	if bots[0].Result == nil || bots[0].Result.Success {
		t.Errorf("persisted result should record the failure: %+v", bots[0].Result)
	}
}
