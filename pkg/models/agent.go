package models

// Agent represents a specialized worker identity with bounded
// concurrent-assignment capacity.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// Name is the human-readable display name.
	Name string `json:"name"`
	// Specialization is the agent's primary discipline.
	Specialization string `json:"specialization"`
	// ExpertiseAreas lists the domains this agent covers.
	ExpertiseAreas []string `json:"expertise_areas"`
	// CurrentLoad is the number of in-flight assignments.
	CurrentLoad int `json:"current_load"`
	// MaxCapacity is the advisory concurrent-assignment limit.
	MaxCapacity int `json:"max_capacity"`
	// PerformanceScore tracks historical outcome quality.
	PerformanceScore float64 `json:"performance_score"`
	// Active indicates whether the agent accepts new work.
	Active bool `json:"active"`
}

// HasCapacity reports whether the agent is below its advisory limit.
// Capacity is a preference signal, not a hard admission gate.
func (a *Agent) HasCapacity() bool {
	return a.CurrentLoad < a.MaxCapacity
}
