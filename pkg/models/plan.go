package models

// Understanding is the classification produced for a task before planning.
// PrimaryIntent is LLM-origin free text and stays opaque to core logic.
type Understanding struct {
	// PrimaryIntent summarizes what the task is asking for.
	PrimaryIntent string `json:"primary_intent"`
	// Complexity is a coarse rating such as "Simple" or "Moderate".
	Complexity string `json:"complexity"`
	// RequiredExpertise lists the disciplines the task needs.
	RequiredExpertise []string `json:"required_expertise"`
}

// WorkPackage is one slice of a project plan delegated to a single agent.
type WorkPackage struct {
	// ID identifies the package within its plan.
	ID string `json:"id"`
	// Name is the short label for the package.
	Name string `json:"name"`
	// Description explains the package's goal.
	Description string `json:"description"`
	// AssignedTo names the target agent identifier.
	AssignedTo string `json:"assigned_to"`
	// Elements is the ordered list of concrete work items.
	Elements []string `json:"elements"`
	// Dependencies lists package IDs that should land first.
	Dependencies []string `json:"dependencies,omitempty"`
}

// ProjectPlan is the ordered set of work packages produced for a task.
type ProjectPlan struct {
	// Overview is a free-text summary of the plan.
	Overview string `json:"overview"`
	// WorkPackages are the delegable slices, in plan order.
	WorkPackages []WorkPackage `json:"work_packages"`
	// Milestones lists notable checkpoints, if any.
	Milestones []string `json:"milestones,omitempty"`
	// Timeline is a free-text schedule estimate.
	Timeline string `json:"timeline,omitempty"`
}

// BotSpec describes one work bot to create for an assignment.
type BotSpec struct {
	// Description is what the bot should do.
	Description string `json:"description"`
	// BotType categorizes the work.
	BotType BotType `json:"bot_type"`
	// ExpectedOutput describes what a successful run produces.
	ExpectedOutput string `json:"expected_output,omitempty"`
	// Dependencies lists descriptions of specs that should run first.
	Dependencies []string `json:"dependencies,omitempty"`
}

// Decomposition is the result of breaking assignment elements into bot specs.
type Decomposition struct {
	// Tasks are the bot specs, in execution order.
	Tasks []BotSpec `json:"tasks"`
	// Strategy is a free-text note on how the split was chosen.
	Strategy string `json:"strategy,omitempty"`
}
