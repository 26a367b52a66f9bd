package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// Agent CRUD operations

// SeedAgent inserts an agent if it does not already exist.
// Existing rows keep their current load; catalog fields are refreshed.
func (db *DB) SeedAgent(a *models.Agent) error {
	areas, err := json.Marshal(a.ExpertiseAreas)
	if err != nil {
		return fmt.Errorf("marshal expertise areas: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO agents (id, name, specialization, expertise_areas, current_load, max_capacity, performance_score, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			specialization = excluded.specialization,
			expertise_areas = excluded.expertise_areas,
			max_capacity = excluded.max_capacity,
			performance_score = excluded.performance_score,
			active = excluded.active
	`, a.ID, a.Name, a.Specialization, string(areas), a.CurrentLoad, a.MaxCapacity, a.PerformanceScore, boolToInt(a.Active))
	if err != nil {
		return fmt.Errorf("seed agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID.
func (db *DB) GetAgent(id string) (*models.Agent, error) {
	row := db.QueryRow(`
		SELECT id, name, specialization, expertise_areas, current_load, max_capacity, performance_score, active
		FROM agents WHERE id = ?
	`, id)

	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// ListAgents lists agents, optionally restricted to active ones.
func (db *DB) ListAgents(activeOnly bool) ([]models.Agent, error) {
	query := `
		SELECT id, name, specialization, expertise_areas, current_load, max_capacity, performance_score, active
		FROM agents
	`
	if activeOnly {
		query += " WHERE active = 1"
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []models.Agent
	for rows.Next() {
		a, err := scanAgentRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

// AdjustAgentLoad atomically applies delta to an agent's current load and
// returns the updated agent. The increment executes as a single UPDATE so
// concurrent adjustments on the same agent cannot lose updates.
func (db *DB) AdjustAgentLoad(id string, delta int) (*models.Agent, error) {
	res, err := db.Exec(`
		UPDATE agents SET current_load = current_load + ? WHERE id = ?
	`, delta, id)
	if err != nil {
		return nil, fmt.Errorf("adjust agent load: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("adjust agent load rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}

	return db.GetAgent(id)
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row *sql.Row) (*models.Agent, error) {
	return scanAgentFrom(row)
}

func scanAgentRows(rows *sql.Rows) (*models.Agent, error) {
	return scanAgentFrom(rows)
}

func scanAgentFrom(s rowScanner) (*models.Agent, error) {
	var a models.Agent
	var areas string
	var active int
	err := s.Scan(&a.ID, &a.Name, &a.Specialization, &areas, &a.CurrentLoad, &a.MaxCapacity, &a.PerformanceScore, &active)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(areas), &a.ExpertiseAreas); err != nil {
		return nil, fmt.Errorf("unmarshal expertise areas: %w", err)
	}
	a.Active = active != 0
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
