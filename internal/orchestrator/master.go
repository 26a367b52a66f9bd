package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskfleet/taskfleet/internal/reason"
	"github.com/taskfleet/taskfleet/internal/registry"
	"github.com/taskfleet/taskfleet/internal/state"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// Result codes attached to failure envelopes so transports can map them
// without string matching.
const (
	// CodeValidation marks a request rejected for missing required fields.
	CodeValidation = "validation_error"
	// CodeNotFound marks an unknown task identifier.
	CodeNotFound = "not_found"
	// CodePersistence marks a store failure fatal to the operation.
	CodePersistence = "persistence_failure"
)

// taskNotFoundMessage is the stable error text for unknown task IDs.
const taskNotFoundMessage = "Task not found"

// Master orchestrates a task end to end: it accepts a submission,
// obtains an understanding and a plan, fans out assignments to agents,
// and rolls assignment progress up into the task status.
//
// Every public entry point returns a result envelope. Reasoning failures
// degrade to documented fallbacks; nothing propagates to the caller.
type Master struct {
	store    state.Store
	registry *registry.AgentRegistry
	reasoner reason.Reasoner
	emitter  *EventEmitter
	logger   *DebugLogger
}

// NewMaster creates a new master coordinator.
func NewMaster(store state.Store, reg *registry.AgentRegistry, r reason.Reasoner, emitter *EventEmitter, logger *DebugLogger) *Master {
	if logger == nil {
		logger = NopLogger()
	}
	return &Master{
		store:    store,
		registry: reg,
		reasoner: r,
		emitter:  emitter,
		logger:   logger,
	}
}

// TaskRequest is a user-submitted task.
type TaskRequest struct {
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Priority    models.Priority `json:"priority,omitempty"`
}

// ReceiveTaskResult is the envelope returned by ReceiveTask.
type ReceiveTaskResult struct {
	Success       bool                  `json:"success"`
	Error         string                `json:"error,omitempty"`
	Code          string                `json:"code,omitempty"`
	TaskID        string                `json:"task_id,omitempty"`
	Understanding *models.Understanding `json:"understanding,omitempty"`
	ProjectPlan   *models.ProjectPlan   `json:"project_plan,omitempty"`
	Assignments   []models.Assignment   `json:"assignments,omitempty"`
}

// ReceiveTask validates a submission, records the task, obtains an
// understanding and plan (with deterministic fallbacks), and creates one
// assignment per resolvable work package. Packages naming an unknown
// agent are dropped with a warning update; this is non-fatal.
func (m *Master) ReceiveTask(ctx context.Context, req TaskRequest) ReceiveTaskResult {
	if strings.TrimSpace(req.Title) == "" {
		return ReceiveTaskResult{Error: "title is required", Code: CodeValidation}
	}
	if strings.TrimSpace(req.UserID) == "" {
		return ReceiveTaskResult{Error: "user_id is required", Code: CodeValidation}
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !priority.Valid() {
		return ReceiveTaskResult{Error: fmt.Sprintf("unknown priority %q", priority), Code: CodeValidation}
	}

	now := time.Now()
	task := &models.Task{
		ExternalID:  newExternalID("task"),
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Status:      models.TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.CreateTask(task); err != nil {
		m.logger.Log("[master] create task failed: %v", err)
		return ReceiveTaskResult{Error: err.Error(), Code: CodePersistence}
	}

	m.appendUpdate(task.ID, models.SourceCoordinator, "master",
		fmt.Sprintf("Task received: %s", task.Title), nil)

	understanding := m.understand(ctx, req)
	task.Intent = understanding

	plan := m.plan(ctx, req, understanding)

	assignments := m.delegate(task, plan)

	task.Status = models.TaskStatusInProgress
	task.UpdatedAt = time.Now()
	if err := m.store.UpdateTask(task); err != nil {
		m.logger.Log("[master] update task failed: %v", err)
		return ReceiveTaskResult{Error: err.Error(), Code: CodePersistence}
	}

	m.emitter.Emit(Event{
		Type:    EventTaskReceived,
		TaskID:  task.ExternalID,
		Message: fmt.Sprintf("%d assignments delegated", len(assignments)),
	})

	return ReceiveTaskResult{
		Success:       true,
		TaskID:        task.ExternalID,
		Understanding: understanding,
		ProjectPlan:   plan,
		Assignments:   assignments,
	}
}

// understand asks the reasoner for a classification, degrading to the
// deterministic fallback on any failure.
func (m *Master) understand(ctx context.Context, req TaskRequest) *models.Understanding {
	u, err := m.reasoner.Understand(ctx, reason.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		m.logger.Log("[master] understand failed, using fallback: %v", err)
		intent := req.Description
		if intent == "" {
			intent = req.Title
		}
		return &models.Understanding{
			PrimaryIntent:     intent,
			Complexity:        "Moderate",
			RequiredExpertise: []string{"General"},
		}
	}
	return u
}

// plan asks the reasoner for a project plan, degrading to a single
// default work package on any failure.
func (m *Master) plan(ctx context.Context, req TaskRequest, understanding *models.Understanding) *models.ProjectPlan {
	p, err := m.reasoner.Plan(ctx, reason.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}, understanding)
	if err == nil {
		return p
	}
	m.logger.Log("[master] plan failed, using fallback: %v", err)

	assignedTo := ""
	if fb, fbErr := m.registry.PickFallback(); fbErr == nil {
		assignedTo = fb.ID
	}

	element := req.Description
	if element == "" {
		element = req.Title
	}
	return &models.ProjectPlan{
		Overview: "Fallback plan: single work package",
		WorkPackages: []models.WorkPackage{{
			ID:          "wp-1",
			Name:        req.Title,
			Description: req.Description,
			AssignedTo:  assignedTo,
			Elements:    []string{element},
		}},
	}
}

// delegate creates one assignment per resolvable work package,
// incrementing each chosen agent's load exactly once.
func (m *Master) delegate(task *models.Task, plan *models.ProjectPlan) []models.Assignment {
	var assignments []models.Assignment

	for _, wp := range plan.WorkPackages {
		agent, err := m.registry.Get(wp.AssignedTo)
		if err != nil {
			if errors.Is(err, state.ErrNotFound) {
				m.logger.Log("[master] work package %s names unknown agent %q, dropping", wp.ID, wp.AssignedTo)
				m.appendUpdate(task.ID, models.SourceCoordinator, "master",
					fmt.Sprintf("Skipped work package %q: unknown agent %q", wp.Name, wp.AssignedTo), nil)
				continue
			}
			m.logger.Log("[master] agent lookup failed for %q: %v", wp.AssignedTo, err)
			continue
		}

		// Reserve the slot before creating the assignment so the headroom
		// check and the increment are one step. Capacity is advisory:
		// prefer an agent with headroom, but never reject the package.
		chosen, hadCapacity, err := m.registry.ReserveSlot(agent.ID)
		if err != nil {
			m.logger.Log("[master] slot reserve failed for agent %s: %v", agent.ID, err)
			continue
		}
		if !hadCapacity {
			if fb, fbErr := m.registry.PickFallback(); fbErr == nil && fb.ID != chosen.ID {
				fbAgent, fbHadCapacity, fbErr := m.registry.ReserveSlot(fb.ID)
				switch {
				case fbErr != nil:
					m.logger.Log("[master] slot reserve failed for fallback %s: %v", fb.ID, fbErr)
				case fbHadCapacity:
					m.logger.Log("[master] agent %s saturated (%d/%d), rerouting package %s to %s",
						chosen.ID, chosen.CurrentLoad, chosen.MaxCapacity, wp.ID, fbAgent.ID)
					if _, err := m.registry.AdjustLoad(chosen.ID, -1); err != nil {
						m.logger.Log("[master] load release failed for agent %s: %v", chosen.ID, err)
					}
					chosen = fbAgent
				default:
					// Fallback is saturated too. Stay on the planned agent.
					if _, err := m.registry.AdjustLoad(fb.ID, -1); err != nil {
						m.logger.Log("[master] load release failed for agent %s: %v", fb.ID, err)
					}
				}
			}
		}

		a := &models.Assignment{
			ExternalID:       newExternalID("assign"),
			TaskID:           task.ID,
			AgentID:          chosen.ID,
			AssignedElements: wp.Elements,
			Status:           models.AssignmentStatusAssigned,
			AssignedAt:       time.Now(),
		}
		if err := m.store.CreateAssignment(a); err != nil {
			m.logger.Log("[master] create assignment failed for package %s: %v", wp.ID, err)
			if _, relErr := m.registry.AdjustLoad(chosen.ID, -1); relErr != nil {
				m.logger.Log("[master] load release failed for agent %s: %v", chosen.ID, relErr)
			}
			continue
		}

		ten := 10
		m.appendUpdate(task.ID, models.SourceCoordinator, "master",
			fmt.Sprintf("Assigned %s to %s", wp.Name, chosen.Name), &ten)

		m.emitter.Emit(Event{
			Type:         EventAssignmentCreated,
			TaskID:       task.ExternalID,
			AssignmentID: a.ExternalID,
			AgentID:      chosen.ID,
			Message:      wp.Name,
			Progress:     ten,
		})

		assignments = append(assignments, *a)
	}
	return assignments
}

// AssignmentView joins an assignment with its agent's display fields.
type AssignmentView struct {
	models.Assignment
	AgentName           string `json:"agent_name"`
	AgentSpecialization string `json:"agent_specialization"`
}

// TaskStatusResult is the envelope returned by GetTaskStatus.
type TaskStatusResult struct {
	Error       string                  `json:"error,omitempty"`
	Code        string                  `json:"code,omitempty"`
	Task        *models.Task            `json:"task,omitempty"`
	Assignments []AssignmentView        `json:"assignments,omitempty"`
	Updates     []models.ProgressUpdate `json:"updates,omitempty"`
}

// GetTaskStatus returns a read-only join of a task, its assignments with
// agent display fields, and its progress updates newest first.
func (m *Master) GetTaskStatus(taskID string) TaskStatusResult {
	task, err := m.store.GetTaskByExternalID(taskID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return TaskStatusResult{Error: taskNotFoundMessage, Code: CodeNotFound}
		}
		return TaskStatusResult{Error: err.Error(), Code: CodePersistence}
	}

	assignments, err := m.store.ListAssignmentsByTask(task.ID)
	if err != nil {
		return TaskStatusResult{Error: err.Error(), Code: CodePersistence}
	}

	views := make([]AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		view := AssignmentView{Assignment: a}
		if agent, err := m.store.GetAgent(a.AgentID); err == nil {
			view.AgentName = agent.Name
			view.AgentSpecialization = agent.Specialization
		}
		views = append(views, view)
	}

	updates, err := m.store.ListProgressByTask(task.ID)
	if err != nil {
		return TaskStatusResult{Error: err.Error(), Code: CodePersistence}
	}

	return TaskStatusResult{Task: task, Assignments: views, Updates: updates}
}

// CheckProgressResult is the envelope returned by CheckProgress.
type CheckProgressResult struct {
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	TaskID    string `json:"task_id,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Progress  int    `json:"progress"`
	Finalized bool   `json:"finalized"`
}

// CheckProgress rolls assignment statuses up into the task. Only
// completed assignments count as resolved; the task finalizes when every
// assignment completed and at least one exists. The check is idempotent:
// re-running after finalization re-observes completion and must never
// regress the task status.
func (m *Master) CheckProgress(taskID string) CheckProgressResult {
	task, err := m.store.GetTaskByExternalID(taskID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return CheckProgressResult{Error: taskNotFoundMessage, Code: CodeNotFound}
		}
		return CheckProgressResult{Error: err.Error(), Code: CodePersistence}
	}

	assignments, err := m.store.ListAssignmentsByTask(task.ID)
	if err != nil {
		return CheckProgressResult{Error: err.Error(), Code: CodePersistence}
	}

	completed := 0
	for _, a := range assignments {
		if a.Status == models.AssignmentStatusCompleted {
			completed++
		}
	}
	total := len(assignments)

	progress := 0
	if total > 0 {
		progress = int(math.Round(100 * float64(completed) / float64(total)))
	}

	m.appendUpdate(task.ID, models.SourceCoordinator, "master",
		fmt.Sprintf("Progress check: %d of %d assignments completed", completed, total), &progress)

	finalized := false
	if total > 0 && completed == total {
		if task.Status != models.TaskStatusCompleted {
			now := time.Now()
			task.Status = models.TaskStatusCompleted
			task.CompletedAt = &now
			task.UpdatedAt = now
			if err := m.store.UpdateTask(task); err != nil {
				return CheckProgressResult{Error: err.Error(), Code: CodePersistence}
			}
		}
		finalized = true

		hundred := 100
		m.appendUpdate(task.ID, models.SourceCoordinator, "master", "Task completed", &hundred)
		m.emitter.Emit(Event{
			Type:     EventTaskCompleted,
			TaskID:   task.ExternalID,
			Progress: 100,
		})
	}

	m.emitter.Emit(Event{
		Type:     EventProgressChecked,
		TaskID:   task.ExternalID,
		Progress: progress,
		Message:  fmt.Sprintf("%d/%d assignments completed", completed, total),
	})

	return CheckProgressResult{
		TaskID:    task.ExternalID,
		Completed: completed,
		Total:     total,
		Progress:  progress,
		Finalized: finalized,
	}
}

// InteractResult is the envelope returned by Interact.
type InteractResult struct {
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
	Reply string `json:"reply,omitempty"`
}

// Interact answers a free-form message about a task. The reply comes
// from the reasoner when available, with a deterministic fallback built
// from the task's current status.
func (m *Master) Interact(ctx context.Context, taskID string, message string) InteractResult {
	status := m.GetTaskStatus(taskID)
	if status.Error != "" {
		return InteractResult{Error: status.Error, Code: status.Code}
	}

	snapshot := renderSnapshot(status)
	reply, err := m.reasoner.Respond(ctx, snapshot, message)
	if err != nil {
		m.logger.Log("[master] respond failed, using fallback: %v", err)
		completed := 0
		for _, a := range status.Assignments {
			if a.Status == models.AssignmentStatusCompleted {
				completed++
			}
		}
		reply = fmt.Sprintf("Task %q is currently %s: %d of %d assignments completed.",
			status.Task.Title, status.Task.Status, completed, len(status.Assignments))
	}
	return InteractResult{Reply: reply}
}

// renderSnapshot flattens a status result into prompt text.
func renderSnapshot(status TaskStatusResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s (%s)\nStatus: %s\nPriority: %s\n",
		status.Task.Title, status.Task.ExternalID, status.Task.Status, status.Task.Priority)
	if status.Task.Intent != nil {
		fmt.Fprintf(&b, "Intent: %s\n", status.Task.Intent.PrimaryIntent)
	}
	fmt.Fprintf(&b, "Assignments (%d):\n", len(status.Assignments))
	for _, a := range status.Assignments {
		fmt.Fprintf(&b, "- %s to %s (%s): %s, %d%%\n",
			a.ExternalID, a.AgentName, a.AgentSpecialization, a.Status, a.Progress)
	}
	// Most recent updates only; listings are newest first.
	limit := len(status.Updates)
	if limit > 5 {
		limit = 5
	}
	fmt.Fprintf(&b, "Recent updates:\n")
	for _, u := range status.Updates[:limit] {
		fmt.Fprintf(&b, "- [%s] %s\n", u.SourceType, u.Message)
	}
	return b.String()
}

// appendUpdate writes one progress update, logging rather than failing
// on persistence errors: the audit log must never break a delegation.
func (m *Master) appendUpdate(taskID int64, source models.SourceType, sourceID, message string, pct *int) {
	update := &models.ProgressUpdate{
		ExternalID:         newExternalID("update"),
		TaskID:             taskID,
		SourceType:         source,
		SourceID:           sourceID,
		Message:            message,
		ProgressPercentage: pct,
		CreatedAt:          time.Now(),
	}
	if err := m.store.AppendProgress(update); err != nil {
		m.logger.Log("[master] append progress failed: %v", err)
	}
}

// newExternalID returns a prefixed public identifier.
func newExternalID(prefix string) string {
	return prefix + "-" + uuid.New().String()
}
