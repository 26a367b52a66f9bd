// Package registry provides the agent catalog for taskfleet.
// It wraps the persistent store with per-agent locking so concurrent
// assignment creation and completion never interleave into a lost
// load update.
package registry

import (
	"fmt"
	"sync"

	"github.com/taskfleet/taskfleet/internal/state"
	"github.com/taskfleet/taskfleet/pkg/models"
)

// AgentRegistry manages the fixed catalog of agents.
// Agents are seeded once at startup and never deleted during normal
// operation. All load mutations go through AdjustLoad, which holds the
// agent's lock across the read-modify-write.
type AgentRegistry struct {
	store state.AgentStore
	// locks maps agent IDs to their mutexes.
	locks map[string]*sync.Mutex
	// mu protects the locks map itself.
	mu sync.Mutex
}

// New creates a new AgentRegistry backed by the given store.
func New(store state.AgentStore) *AgentRegistry {
	return &AgentRegistry{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// agentLock returns the mutex for an agent, creating it on first use.
func (r *AgentRegistry) agentLock(agentID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[agentID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[agentID] = l
	}
	return l
}

// Get retrieves an agent by ID. Inactive agents are treated as unknown.
func (r *AgentRegistry) Get(agentID string) (*models.Agent, error) {
	a, err := r.store.GetAgent(agentID)
	if err != nil {
		return nil, err
	}
	if !a.Active {
		return nil, fmt.Errorf("agent %s is inactive: %w", agentID, state.ErrNotFound)
	}
	return a, nil
}

// List returns a snapshot of agents. With activeOnly, retired agents are
// excluded. Callers must not rely on ordering.
func (r *AgentRegistry) List(activeOnly bool) ([]models.Agent, error) {
	return r.store.ListAgents(activeOnly)
}

// AdjustLoad applies delta to an agent's load under that agent's lock and
// returns the updated agent. No clamping is applied: callers guard the
// capacity ceiling and only issue decrements matched to prior increments.
func (r *AgentRegistry) AdjustLoad(agentID string, delta int) (*models.Agent, error) {
	l := r.agentLock(agentID)
	l.Lock()
	defer l.Unlock()

	return r.store.AdjustAgentLoad(agentID, delta)
}

// ReserveSlot increments an agent's load under that agent's lock and
// reports whether the agent had headroom at the moment of the increment.
// The increment happens either way: capacity is advisory, and callers
// that reroute release the slot with AdjustLoad(-1).
func (r *AgentRegistry) ReserveSlot(agentID string) (*models.Agent, bool, error) {
	l := r.agentLock(agentID)
	l.Lock()
	defer l.Unlock()

	cur, err := r.store.GetAgent(agentID)
	if err != nil {
		return nil, false, err
	}
	a, err := r.store.AdjustAgentLoad(agentID, 1)
	if err != nil {
		return nil, false, err
	}
	return a, cur.HasCapacity(), nil
}

// PickFallback returns the active agent with the most headroom, breaking
// ties by performance score. Used when a plan names no resolvable agent.
func (r *AgentRegistry) PickFallback() (*models.Agent, error) {
	agents, err := r.store.ListAgents(true)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("no active agents: %w", state.ErrNotFound)
	}

	best := agents[0]
	for _, a := range agents[1:] {
		headroom := a.MaxCapacity - a.CurrentLoad
		bestHeadroom := best.MaxCapacity - best.CurrentLoad
		if headroom > bestHeadroom ||
			(headroom == bestHeadroom && a.PerformanceScore > best.PerformanceScore) {
			best = a
		}
	}
	return &best, nil
}
