package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/taskfleet/taskfleet/internal/state"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// DefaultSweepInterval is how often the sweeper scans for pending
// assignments when no interval is configured.
const DefaultSweepInterval = 10 * time.Second

// maxConcurrentAssignments bounds the assignments processed in one
// sweep. Assignments run concurrently; bots within one assignment
// stay sequential.
const maxConcurrentAssignments = 4

// Sweeper drives pending assignments to completion on an interval.
// Each assignment is claimed with a compare-and-swap before processing,
// so overlapping sweeps (or a second process against the same store)
// never run the same assignment twice.
type Sweeper struct {
	store    state.Store
	coord    *AgentCoordinator
	master   *Master
	logger   *DebugLogger
	interval time.Duration
}

// NewSweeper creates a sweeper. A non-positive interval falls back to
// DefaultSweepInterval.
func NewSweeper(store state.Store, coord *AgentCoordinator, master *Master, logger *DebugLogger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Sweeper{
		store:    store,
		coord:    coord,
		master:   master,
		logger:   logger,
		interval: interval,
	}
}

// Run sweeps immediately, then on every interval tick until ctx is
// canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.Tick(ctx)
	if err != nil {
		s.logger.Log("[sweeper] sweep failed: %v", err)
		return
	}
	if n > 0 {
		s.logger.Log("[sweeper] processed %d assignments", n)
	}
}

// Tick runs a single sweep: it claims every currently assigned
// assignment and processes the claimed ones concurrently, waiting for
// all of them before returning. It returns the number processed.
func (s *Sweeper) Tick(ctx context.Context) (int, error) {
	pending, err := s.store.ListAssignmentsByStatus(models.AssignmentStatusAssigned)
	if err != nil {
		return 0, err
	}

	claimed := make([]models.Assignment, 0, len(pending))
	for i := range pending {
		ok, err := s.store.ClaimAssignment(pending[i].ID, time.Now())
		if err != nil {
			s.logger.Log("[sweeper] claim %s failed: %v", pending[i].ExternalID, err)
			continue
		}
		if ok {
			pending[i].Status = models.AssignmentStatusInProgress
			claimed = append(claimed, pending[i])
		}
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	sem := make(chan struct{}, maxConcurrentAssignments)
	var wg sync.WaitGroup
	for i := range claimed {
		wg.Add(1)
		sem <- struct{}{}
		go func(a *models.Assignment) {
			defer wg.Done()
			defer func() { <-sem }()
			s.process(ctx, a)
		}(&claimed[i])
	}
	wg.Wait()

	return len(claimed), nil
}

// process runs one claimed assignment and rolls the outcome up into its
// task.
func (s *Sweeper) process(ctx context.Context, a *models.Assignment) {
	result := s.coord.ProcessAssignment(ctx, a)
	s.logger.Log("[sweeper] %s finished as %s (%d/%d)",
		a.ExternalID, result.Status, result.Completed, result.Total)

	task, err := s.store.GetTask(a.TaskID)
	if err != nil {
		s.logger.Log("[sweeper] task lookup for roll-up failed: %v", err)
		return
	}
	if check := s.master.CheckProgress(task.ExternalID); check.Error != "" {
		s.logger.Log("[sweeper] progress roll-up for %s failed: %s", task.ExternalID, check.Error)
	}
}
