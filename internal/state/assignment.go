package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// Assignment CRUD operations

// CreateAssignment inserts a new assignment and fills in its row ID.
func (db *DB) CreateAssignment(a *models.Assignment) error {
	elements, err := json.Marshal(a.AssignedElements)
	if err != nil {
		return fmt.Errorf("marshal assigned elements: %w", err)
	}

	res, err := db.Exec(`
		INSERT INTO assignments (external_id, task_id, agent_id, assigned_elements, status, progress, assigned_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ExternalID, a.TaskID, a.AgentID, string(elements), string(a.Status), a.Progress,
		formatTime(a.AssignedAt), formatNullableTime(a.StartedAt), formatNullableTime(a.CompletedAt))
	if err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}

	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create assignment id: %w", err)
	}
	return nil
}

// GetAssignment retrieves an assignment by row ID.
func (db *DB) GetAssignment(id int64) (*models.Assignment, error) {
	row := db.QueryRow(assignmentSelect+" WHERE id = ?", id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assignment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// ListAssignmentsByTask lists a task's assignments in creation order.
func (db *DB) ListAssignmentsByTask(taskID int64) ([]models.Assignment, error) {
	rows, err := db.Query(assignmentSelect+" WHERE task_id = ? ORDER BY id", taskID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by task: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// ListAssignmentsByStatus lists assignments with the given status in creation order.
func (db *DB) ListAssignmentsByStatus(status models.AssignmentStatus) ([]models.Assignment, error) {
	rows, err := db.Query(assignmentSelect+" WHERE status = ? ORDER BY id", string(status))
	if err != nil {
		return nil, fmt.Errorf("list assignments by status: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// ClaimAssignment transitions an assignment from assigned to in-progress,
// stamping started_at. The compare-and-set on status guarantees only one
// sweep can claim a given assignment; a false return means another worker
// got there first or the assignment moved on.
func (db *DB) ClaimAssignment(id int64, startedAt time.Time) (bool, error) {
	res, err := db.Exec(`
		UPDATE assignments SET status = ?, started_at = ?
		WHERE id = ? AND status = ?
	`, string(models.AssignmentStatusInProgress), formatTime(startedAt),
		id, string(models.AssignmentStatusAssigned))
	if err != nil {
		return false, fmt.Errorf("claim assignment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim assignment rows affected: %w", err)
	}
	return affected == 1, nil
}

// UpdateAssignmentProgress writes the bot-completion percentage.
func (db *DB) UpdateAssignmentProgress(id int64, progress int) error {
	_, err := db.Exec(`UPDATE assignments SET progress = ? WHERE id = ?`, progress, id)
	if err != nil {
		return fmt.Errorf("update assignment progress: %w", err)
	}
	return nil
}

// FinalizeAssignment writes the terminal status, final progress, and
// completion timestamp in one statement.
func (db *DB) FinalizeAssignment(id int64, status models.AssignmentStatus, progress int, completedAt time.Time) error {
	_, err := db.Exec(`
		UPDATE assignments SET status = ?, progress = ?, completed_at = ? WHERE id = ?
	`, string(status), progress, formatTime(completedAt), id)
	if err != nil {
		return fmt.Errorf("finalize assignment: %w", err)
	}
	return nil
}

// resetAssignmentSQL returns an in-progress assignment to the assigned
// state. Used by startup recovery when a previous process died mid-sweep;
// the status guard keeps the reset from touching finished rows.
const resetAssignmentSQL = `
	UPDATE assignments SET status = ?, started_at = NULL, progress = 0
	WHERE id = ? AND status = ?
`

const assignmentSelect = `
	SELECT id, external_id, task_id, agent_id, assigned_elements, status, progress, assigned_at, started_at, completed_at
	FROM assignments
`

func collectAssignments(rows *sql.Rows) ([]models.Assignment, error) {
	var assignments []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

func scanAssignment(s rowScanner) (*models.Assignment, error) {
	var a models.Assignment
	var elements string
	var assignedAt string
	var startedAt, completedAt sql.NullString

	err := s.Scan(&a.ID, &a.ExternalID, &a.TaskID, &a.AgentID, &elements,
		&a.Status, &a.Progress, &assignedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(elements), &a.AssignedElements); err != nil {
		return nil, fmt.Errorf("unmarshal assigned elements: %w", err)
	}
	a.AssignedAt, _ = parseTime(assignedAt)
	a.StartedAt = parseNullableTime(startedAt)
	a.CompletedAt = parseNullableTime(completedAt)
	return &a, nil
}
