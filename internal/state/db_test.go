package state

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// testDB opens a migrated database in a temp directory.
func testDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTestAgent(t *testing.T, db *DB, id string, capacity int) {
	t.Helper()
	err := db.SeedAgent(&models.Agent{
		ID:               id,
		Name:             "Agent " + id,
		Specialization:   "backend",
		ExpertiseAreas:   []string{"go", "sql"},
		MaxCapacity:      capacity,
		PerformanceScore: 0.9,
		Active:           true,
	})
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	db := testDB(t)

	now := time.Now()
	task := &models.Task{
		ExternalID:  "task-1",
		UserID:      "u1",
		Title:       "Build API",
		Description: "REST endpoints for billing",
		Intent: &models.Understanding{
			PrimaryIntent:     "Build API",
			Complexity:        "Moderate",
			RequiredExpertise: []string{"General"},
		},
		Priority:  models.PriorityNormal,
		Status:    models.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("create task should assign a row ID")
	}

	got, err := db.GetTaskByExternalID("task-1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != "Build API" {
		t.Errorf("title = %q, want %q", got.Title, "Build API")
	}
	if got.Intent == nil || got.Intent.Complexity != "Moderate" {
		t.Errorf("intent not round-tripped: %+v", got.Intent)
	}
	if got.Status != models.TaskStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}

	completed := time.Now()
	got.Status = models.TaskStatusCompleted
	got.CompletedAt = &completed
	got.UpdatedAt = completed
	if err := db.UpdateTask(got); err != nil {
		t.Fatalf("update task: %v", err)
	}

	updated, err := db.GetTask(got.ID)
	if err != nil {
		t.Fatalf("get task by id: %v", err)
	}
	if updated.Status != models.TaskStatusCompleted {
		t.Errorf("status = %q, want completed", updated.Status)
	}
	if updated.CompletedAt == nil {
		t.Error("completed_at should be set")
	}
}

func TestGetTaskNotFound(t *testing.T) {
	db := testDB(t)

	_, err := db.GetTaskByExternalID("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustAgentLoad(t *testing.T) {
	db := testDB(t)
	seedTestAgent(t, db, "backend-1", 3)

	a, err := db.AdjustAgentLoad("backend-1", 1)
	if err != nil {
		t.Fatalf("adjust load: %v", err)
	}
	if a.CurrentLoad != 1 {
		t.Errorf("load = %d, want 1", a.CurrentLoad)
	}

	a, err = db.AdjustAgentLoad("backend-1", -1)
	if err != nil {
		t.Fatalf("adjust load: %v", err)
	}
	if a.CurrentLoad != 0 {
		t.Errorf("load = %d, want 0", a.CurrentLoad)
	}
}

func TestAdjustAgentLoadUnknownAgent(t *testing.T) {
	db := testDB(t)

	_, err := db.AdjustAgentLoad("ghost", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSeedAgentPreservesLoad(t *testing.T) {
	db := testDB(t)
	seedTestAgent(t, db, "backend-1", 3)

	if _, err := db.AdjustAgentLoad("backend-1", 2); err != nil {
		t.Fatalf("adjust load: %v", err)
	}

	// Re-seeding the same agent must not reset its in-flight load.
	seedTestAgent(t, db, "backend-1", 5)

	a, err := db.GetAgent("backend-1")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if a.CurrentLoad != 2 {
		t.Errorf("load = %d, want 2 after re-seed", a.CurrentLoad)
	}
	if a.MaxCapacity != 5 {
		t.Errorf("capacity = %d, want refreshed value 5", a.MaxCapacity)
	}
}

func TestListAgentsActiveOnly(t *testing.T) {
	db := testDB(t)
	seedTestAgent(t, db, "backend-1", 3)

	err := db.SeedAgent(&models.Agent{
		ID: "retired-1", Name: "Retired", Specialization: "ops",
		ExpertiseAreas: []string{}, MaxCapacity: 1, Active: false,
	})
	if err != nil {
		t.Fatalf("seed inactive agent: %v", err)
	}

	active, err := db.ListAgents(true)
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(active) != 1 || active[0].ID != "backend-1" {
		t.Errorf("active agents = %+v, want only backend-1", active)
	}

	all, err := db.ListAgents(false)
	if err != nil {
		t.Fatalf("list all agents: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all agents = %d, want 2", len(all))
	}
}

func TestClaimAssignment(t *testing.T) {
	db := testDB(t)
	seedTestAgent(t, db, "backend-1", 3)
	task := createTestTask(t, db, "task-1")

	a := &models.Assignment{
		ExternalID:       "assign-1",
		TaskID:           task.ID,
		AgentID:          "backend-1",
		AssignedElements: []string{"design schema", "write handlers"},
		Status:           models.AssignmentStatusAssigned,
		AssignedAt:       time.Now(),
	}
	if err := db.CreateAssignment(a); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	claimed, err := db.ClaimAssignment(a.ID, time.Now())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed {
		t.Fatal("first claim should succeed")
	}

	// Second claim must lose: the status already moved off assigned.
	claimed, err = db.ClaimAssignment(a.ID, time.Now())
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Error("second claim should fail")
	}

	got, err := db.GetAssignment(a.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if got.Status != models.AssignmentStatusInProgress {
		t.Errorf("status = %q, want in-progress", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("started_at should be set")
	}
	if len(got.AssignedElements) != 2 || got.AssignedElements[0] != "design schema" {
		t.Errorf("elements not round-tripped: %v", got.AssignedElements)
	}
}

func TestCountWorkBotOutcomes(t *testing.T) {
	db := testDB(t)
	seedTestAgent(t, db, "backend-1", 3)
	task := createTestTask(t, db, "task-1")
	assignment := createTestAssignment(t, db, task.ID, "backend-1")

	statuses := []models.BotStatus{
		models.BotStatusCompleted, models.BotStatusCompleted,
		models.BotStatusCompleted, models.BotStatusFailed,
	}
	for i, status := range statuses {
		bot := &models.WorkBot{
			ExternalID:   "bot-" + string(rune('a'+i)),
			AssignmentID: assignment.ID,
			AgentID:      "backend-1",
			Type:         models.BotTypeGeneral,
			Description:  "unit of work",
			Status:       models.BotStatusCreated,
			CreatedAt:    time.Now(),
		}
		if err := db.CreateWorkBot(bot); err != nil {
			t.Fatalf("create bot: %v", err)
		}
		result := &models.BotResult{Success: status == models.BotStatusCompleted, Timestamp: time.Now()}
		if err := db.FinishWorkBot(bot.ID, status, result, time.Now()); err != nil {
			t.Fatalf("finish bot: %v", err)
		}
	}

	completed, total, err := db.CountWorkBotOutcomes(assignment.ID)
	if err != nil {
		t.Fatalf("count outcomes: %v", err)
	}
	if completed != 3 || total != 4 {
		t.Errorf("outcomes = %d/%d, want 3/4", completed, total)
	}
}

func TestProgressNewestFirst(t *testing.T) {
	db := testDB(t)
	task := createTestTask(t, db, "task-1")

	messages := []string{"first", "second", "third"}
	for i, msg := range messages {
		p := &models.ProgressUpdate{
			ExternalID: "update-" + string(rune('a'+i)),
			TaskID:     task.ID,
			SourceType: models.SourceCoordinator,
			SourceID:   "master",
			Message:    msg,
			CreatedAt:  time.Now(),
		}
		if err := db.AppendProgress(p); err != nil {
			t.Fatalf("append progress: %v", err)
		}
	}

	updates, err := db.ListProgressByTask(task.ID)
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(updates) != 3 {
		t.Fatalf("updates = %d, want 3", len(updates))
	}
	// Reverse insertion order.
	for i, want := range []string{"third", "second", "first"} {
		if updates[i].Message != want {
			t.Errorf("updates[%d] = %q, want %q", i, updates[i].Message, want)
		}
	}
}

func TestRecoverInterrupted(t *testing.T) {
	db := testDB(t)
	seedTestAgent(t, db, "backend-1", 3)
	seedTestAgent(t, db, "qa-1", 3)
	task := createTestTask(t, db, "task-1")

	stuck := []*models.Assignment{
		createTestAssignment(t, db, task.ID, "backend-1"),
		createTestAssignment(t, db, task.ID, "qa-1"),
	}
	for _, a := range stuck {
		claimed, err := db.ClaimAssignment(a.ID, time.Now())
		if err != nil || !claimed {
			t.Fatalf("claim %s: claimed=%v err=%v", a.ExternalID, claimed, err)
		}
	}

	// A finished assignment must survive recovery untouched.
	seedTestAgent(t, db, "devops-1", 3)
	done := createTestAssignment(t, db, task.ID, "devops-1")
	if err := db.FinalizeAssignment(done.ID, models.AssignmentStatusCompleted, 100, time.Now()); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	rm := NewRecoveryManager(db)
	recovered, err := rm.RecoverInterrupted()
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != 2 {
		t.Errorf("recovered = %d, want 2", recovered)
	}

	for _, a := range stuck {
		got, err := db.GetAssignment(a.ID)
		if err != nil {
			t.Fatalf("get assignment: %v", err)
		}
		if got.Status != models.AssignmentStatusAssigned {
			t.Errorf("%s status = %q, want assigned after recovery", a.ExternalID, got.Status)
		}
		if got.StartedAt != nil {
			t.Errorf("%s started_at should be cleared after recovery", a.ExternalID)
		}
	}

	got, err := db.GetAssignment(done.ID)
	if err != nil {
		t.Fatalf("get finished assignment: %v", err)
	}
	if got.Status != models.AssignmentStatusCompleted {
		t.Errorf("finished assignment status = %q, want completed", got.Status)
	}
}

func createTestTask(t *testing.T, db *DB, externalID string) *models.Task {
	t.Helper()
	now := time.Now()
	task := &models.Task{
		ExternalID: externalID,
		UserID:     "u1",
		Title:      "test task",
		Priority:   models.PriorityNormal,
		Status:     models.TaskStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func createTestAssignment(t *testing.T, db *DB, taskID int64, agentID string) *models.Assignment {
	t.Helper()
	a := &models.Assignment{
		ExternalID:       "assign-" + agentID,
		TaskID:           taskID,
		AgentID:          agentID,
		AssignedElements: []string{"element one"},
		Status:           models.AssignmentStatusAssigned,
		AssignedAt:       time.Now(),
	}
	if err := db.CreateAssignment(a); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	return a
}
