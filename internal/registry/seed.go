package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// seedEntry is the YAML shape of one agent in a catalog file.
type seedEntry struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	Specialization   string   `yaml:"specialization"`
	ExpertiseAreas   []string `yaml:"expertise_areas"`
	MaxCapacity      int      `yaml:"max_capacity"`
	PerformanceScore float64  `yaml:"performance_score"`
	Active           *bool    `yaml:"active,omitempty"`
}

// seedFile is the YAML shape of a catalog file.
type seedFile struct {
	Agents []seedEntry `yaml:"agents"`
}

// DefaultFleet is the compiled-in agent catalog used when no seed file
// is configured.
func DefaultFleet() []models.Agent {
	return []models.Agent{
		{
			ID: "architect-1", Name: "Atlas", Specialization: "architecture",
			ExpertiseAreas: []string{"system-design", "planning", "analysis"},
			MaxCapacity:    3, PerformanceScore: 0.95, Active: true,
		},
		{
			ID: "backend-1", Name: "Brick", Specialization: "backend",
			ExpertiseAreas: []string{"api", "database", "services"},
			MaxCapacity:    5, PerformanceScore: 0.9, Active: true,
		},
		{
			ID: "frontend-1", Name: "Fresco", Specialization: "frontend",
			ExpertiseAreas: []string{"ui", "components", "styling"},
			MaxCapacity:    5, PerformanceScore: 0.88, Active: true,
		},
		{
			ID: "qa-1", Name: "Quill", Specialization: "testing",
			ExpertiseAreas: []string{"testing", "quality", "validation"},
			MaxCapacity:    4, PerformanceScore: 0.92, Active: true,
		},
		{
			ID: "devops-1", Name: "Derrick", Specialization: "deployment",
			ExpertiseAreas: []string{"deployment", "infrastructure", "monitoring"},
			MaxCapacity:    3, PerformanceScore: 0.91, Active: true,
		},
		{
			ID: "generalist-1", Name: "Gopher", Specialization: "general",
			ExpertiseAreas: []string{"general", "research", "documentation"},
			MaxCapacity:    6, PerformanceScore: 0.85, Active: true,
		},
	}
}

// LoadCatalog reads an agent catalog from a YAML file.
func LoadCatalog(path string) ([]models.Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	agents := make([]models.Agent, 0, len(f.Agents))
	for _, e := range f.Agents {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry missing id")
		}
		if e.MaxCapacity <= 0 {
			return nil, fmt.Errorf("agent %s: max_capacity must be positive", e.ID)
		}

		active := true
		if e.Active != nil {
			active = *e.Active
		}
		agents = append(agents, models.Agent{
			ID:               e.ID,
			Name:             e.Name,
			Specialization:   e.Specialization,
			ExpertiseAreas:   e.ExpertiseAreas,
			MaxCapacity:      e.MaxCapacity,
			PerformanceScore: e.PerformanceScore,
			Active:           active,
		})
	}
	return agents, nil
}

// Seed writes the catalog into the store. Seeding is idempotent: rows
// that already exist keep their current load.
func (r *AgentRegistry) Seed(agents []models.Agent) error {
	for i := range agents {
		if err := r.store.SeedAgent(&agents[i]); err != nil {
			return fmt.Errorf("seed agent %s: %w", agents[i].ID, err)
		}
	}
	return nil
}
