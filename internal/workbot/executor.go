// Package workbot runs simulated units of work for taskfleet.
package workbot

import (
	"context"
	"fmt"
	"time"

	"github.com/taskfleet/taskfleet/internal/reason"
	"github.com/taskfleet/taskfleet/internal/state"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// Executor runs one work bot at a time against the reasoning collaborator.
// Failures are isolated per bot: a failed execution marks that bot failed
// and never aborts its siblings. Retries, if any, belong to the reasoner.
type Executor struct {
	store    state.WorkBotStore
	reasoner reason.Reasoner
}

// NewExecutor creates a new Executor.
func NewExecutor(store state.WorkBotStore, reasoner reason.Reasoner) *Executor {
	return &Executor{store: store, reasoner: reasoner}
}

// Run executes one work bot and records its outcome. The returned result
// is always non-nil; the error reports persistence problems only, never
// execution failure (that is captured in the result and bot status).
func (e *Executor) Run(ctx context.Context, bot *models.WorkBot, agent reason.AgentContext) (*models.BotResult, error) {
	if err := e.store.MarkWorkBotRunning(bot.ID, time.Now()); err != nil {
		return nil, fmt.Errorf("mark bot running: %w", err)
	}
	bot.Status = models.BotStatusRunning

	spec := models.BotSpec{
		Description: bot.Description,
		BotType:     bot.Type,
	}

	output, execErr := e.reasoner.Execute(ctx, spec, agent)

	now := time.Now()
	var result *models.BotResult
	var status models.BotStatus

	if execErr != nil {
		result = &models.BotResult{
			Success:   false,
			Error:     execErr.Error(),
			Timestamp: now,
		}
		status = models.BotStatusFailed
	} else {
		result = &models.BotResult{
			Success:   true,
			Output:    output,
			Timestamp: now,
		}
		status = models.BotStatusCompleted
	}

	if err := e.store.FinishWorkBot(bot.ID, status, result, now); err != nil {
		return result, fmt.Errorf("finish bot: %w", err)
	}
	bot.Status = status
	bot.Result = result
	return result, nil
}
