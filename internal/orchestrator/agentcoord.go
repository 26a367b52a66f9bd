package orchestrator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/taskfleet/taskfleet/internal/reason"
	"github.com/taskfleet/taskfleet/internal/registry"
	"github.com/taskfleet/taskfleet/internal/state"
	"github.com/taskfleet/taskfleet/internal/workbot"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// MaxBotsPerAssignment caps the work bots created for one assignment.
// Excess decomposed tasks are silently dropped; this is a design limit
// per agent round, not an error.
const MaxBotsPerAssignment = 5

// AgentCoordinator turns one assignment into a definite outcome: it
// decomposes the assigned elements into work bots, executes them
// sequentially, aggregates the results onto the assignment, and reports
// back, releasing the agent's load exactly once.
//
// The logic is identical for every agent, so a single coordinator
// instance serves the whole fleet, parameterized by the assignment's
// agent.
type AgentCoordinator struct {
	store    state.Store
	registry *registry.AgentRegistry
	reasoner reason.Reasoner
	executor *workbot.Executor
	emitter  *EventEmitter
	logger   *DebugLogger
}

// NewAgentCoordinator creates a new agent coordinator.
func NewAgentCoordinator(store state.Store, reg *registry.AgentRegistry, r reason.Reasoner, emitter *EventEmitter, logger *DebugLogger) *AgentCoordinator {
	if logger == nil {
		logger = NopLogger()
	}
	return &AgentCoordinator{
		store:    store,
		registry: reg,
		reasoner: r,
		executor: workbot.NewExecutor(store, r),
		emitter:  emitter,
		logger:   logger,
	}
}

// ProcessResult summarizes one processed assignment.
type ProcessResult struct {
	AssignmentID string                  `json:"assignment_id"`
	Status       models.AssignmentStatus `json:"status"`
	Completed    int                     `json:"completed"`
	Total        int                     `json:"total"`
}

// ProcessAssignment runs an already-claimed assignment to a terminal
// status. The caller (the sweeper) has transitioned it to in-progress;
// this method never re-checks that and never raises past its own
// boundary: every failure path still finalizes the assignment, releases
// the agent's load once, and returns a result.
func (c *AgentCoordinator) ProcessAssignment(ctx context.Context, a *models.Assignment) ProcessResult {
	task, err := c.store.GetTask(a.TaskID)
	if err != nil {
		return c.failAssignment(a, fmt.Sprintf("task lookup failed: %v", err))
	}

	agent, err := c.store.GetAgent(a.AgentID)
	if err != nil {
		return c.failAssignment(a, fmt.Sprintf("agent lookup failed: %v", err))
	}
	agentCtx := reason.AgentContext{Name: agent.Name, Specialization: agent.Specialization}

	c.emitter.Emit(Event{
		Type:         EventAssignmentStarted,
		TaskID:       task.ExternalID,
		AssignmentID: a.ExternalID,
		AgentID:      agent.ID,
	})

	specs := c.decompose(ctx, a, agentCtx)
	if len(specs) > MaxBotsPerAssignment {
		c.logger.Log("[agent %s] capping %d decomposed tasks to %d", agent.ID, len(specs), MaxBotsPerAssignment)
		specs = specs[:MaxBotsPerAssignment]
	}

	bots, err := c.createBots(a, specs)
	if err != nil {
		return c.failAssignment(a, fmt.Sprintf("create work bots: %v", err))
	}

	// Bots run sequentially: reasoning calls stay rate-bounded, and a
	// failed bot never aborts its siblings.
	total := len(bots)
	completedBots := 0
	for i := range bots {
		result, err := c.executor.Run(ctx, &bots[i], agentCtx)
		if err != nil {
			c.logger.Log("[agent %s] bot %s persistence error: %v", agent.ID, bots[i].ExternalID, err)
		}
		if result != nil && result.Success {
			completedBots++
		}

		progress := roundPercent(completedBots, total)
		if err := c.store.UpdateAssignmentProgress(a.ID, progress); err != nil {
			c.logger.Log("[agent %s] progress write failed: %v", agent.ID, err)
		}

		c.appendUpdate(task.ID, models.SourceWorkBot, bots[i].ExternalID,
			fmt.Sprintf("Work bot finished (%s): %s", bots[i].Status, truncate(bots[i].Description, 60)), &progress)

		c.emitter.Emit(Event{
			Type:         EventBotCompleted,
			TaskID:       task.ExternalID,
			AssignmentID: a.ExternalID,
			AgentID:      agent.ID,
			Message:      truncate(bots[i].Description, 60),
			Progress:     progress,
		})
	}

	return c.report(task, a, agent)
}

// decompose asks the reasoner for bot specs, falling back to one general
// bot per assigned element. The fallback is mandatory: decomposition
// failure must never stall an assignment.
func (c *AgentCoordinator) decompose(ctx context.Context, a *models.Assignment, agentCtx reason.AgentContext) []models.BotSpec {
	d, err := c.reasoner.Decompose(ctx, a.AssignedElements, agentCtx)
	if err == nil {
		return d.Tasks
	}
	c.logger.Log("[agent %s] decompose failed, one general bot per element: %v", a.AgentID, err)

	specs := make([]models.BotSpec, len(a.AssignedElements))
	for i, element := range a.AssignedElements {
		specs[i] = models.BotSpec{
			Description: element,
			BotType:     models.BotTypeGeneral,
		}
	}
	return specs
}

// createBots persists one work bot row per spec.
func (c *AgentCoordinator) createBots(a *models.Assignment, specs []models.BotSpec) ([]models.WorkBot, error) {
	bots := make([]models.WorkBot, 0, len(specs))
	for _, spec := range specs {
		bot := models.WorkBot{
			ExternalID:   newExternalID("bot"),
			AssignmentID: a.ID,
			AgentID:      a.AgentID,
			Type:         spec.BotType,
			Description:  spec.Description,
			Status:       models.BotStatusCreated,
			CreatedAt:    time.Now(),
		}
		if err := c.store.CreateWorkBot(&bot); err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}
	return bots, nil
}

// report recomputes outcomes from the store, writes the terminal status,
// releases the agent's load, and appends the summary update.
func (c *AgentCoordinator) report(task *models.Task, a *models.Assignment, agent *models.Agent) ProcessResult {
	completed, total, err := c.store.CountWorkBotOutcomes(a.ID)
	if err != nil {
		return c.failAssignment(a, fmt.Sprintf("count outcomes: %v", err))
	}

	var status models.AssignmentStatus
	switch {
	case total > 0 && completed == total:
		status = models.AssignmentStatusCompleted
	case completed > 0:
		status = models.AssignmentStatusPartial
	default:
		status = models.AssignmentStatusFailed
	}
	progress := roundPercent(completed, total)

	if err := c.store.FinalizeAssignment(a.ID, status, progress, time.Now()); err != nil {
		c.logger.Log("[agent %s] finalize failed: %v", agent.ID, err)
	}

	c.releaseLoad(a.AgentID)

	c.appendUpdate(task.ID, models.SourceAgent, agent.ID,
		fmt.Sprintf("%d/%d work bots successful", completed, total), &progress)

	c.emitter.Emit(Event{
		Type:         EventAssignmentCompleted,
		TaskID:       task.ExternalID,
		AssignmentID: a.ExternalID,
		AgentID:      agent.ID,
		Message:      string(status),
		Progress:     progress,
	})

	return ProcessResult{
		AssignmentID: a.ExternalID,
		Status:       status,
		Completed:    completed,
		Total:        total,
	}
}

// failAssignment handles errors before or around bot execution: the
// assignment fails immediately and the agent's load is still released,
// so load never leaks on an early failure.
func (c *AgentCoordinator) failAssignment(a *models.Assignment, cause string) ProcessResult {
	c.logger.Log("[agent %s] assignment %s failed: %s", a.AgentID, a.ExternalID, cause)

	if err := c.store.FinalizeAssignment(a.ID, models.AssignmentStatusFailed, 0, time.Now()); err != nil {
		c.logger.Log("[agent %s] finalize after failure also failed: %v", a.AgentID, err)
	}

	c.releaseLoad(a.AgentID)

	zero := 0
	c.appendUpdate(a.TaskID, models.SourceAgent, a.AgentID,
		fmt.Sprintf("Assignment failed: %s", cause), &zero)

	c.emitter.Emit(Event{
		Type:         EventAssignmentCompleted,
		AssignmentID: a.ExternalID,
		AgentID:      a.AgentID,
		Message:      string(models.AssignmentStatusFailed),
	})

	return ProcessResult{
		AssignmentID: a.ExternalID,
		Status:       models.AssignmentStatusFailed,
	}
}

// releaseLoad decrements the agent's load once. Called from exactly one
// point on every processing path.
func (c *AgentCoordinator) releaseLoad(agentID string) {
	if _, err := c.registry.AdjustLoad(agentID, -1); err != nil {
		c.logger.Log("[agent %s] load decrement failed: %v", agentID, err)
	}
}

// appendUpdate writes one progress update, logging on failure.
func (c *AgentCoordinator) appendUpdate(taskID int64, source models.SourceType, sourceID, message string, pct *int) {
	update := &models.ProgressUpdate{
		ExternalID:         newExternalID("update"),
		TaskID:             taskID,
		SourceType:         source,
		SourceID:           sourceID,
		Message:            message,
		ProgressPercentage: pct,
		CreatedAt:          time.Now(),
	}
	if err := c.store.AppendProgress(update); err != nil {
		c.logger.Log("[coord] append progress failed: %v", err)
	}
}

// roundPercent returns round(100*completed/total), 0 when total is 0.
func roundPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// truncate shortens s to at most n runes, appending an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
