package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// WorkBot CRUD operations

// CreateWorkBot inserts a new work bot and fills in its row ID.
func (db *DB) CreateWorkBot(b *models.WorkBot) error {
	result, err := marshalBotResult(b.Result)
	if err != nil {
		return err
	}

	res, err := db.Exec(`
		INSERT INTO work_bots (external_id, assignment_id, agent_id, type, description, status, result, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ExternalID, b.AssignmentID, b.AgentID, string(b.Type), b.Description, string(b.Status),
		result, formatTime(b.CreatedAt), formatNullableTime(b.StartedAt), formatNullableTime(b.CompletedAt))
	if err != nil {
		return fmt.Errorf("create work bot: %w", err)
	}

	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create work bot id: %w", err)
	}
	return nil
}

// MarkWorkBotRunning transitions a bot to running and stamps started_at.
func (db *DB) MarkWorkBotRunning(id int64, startedAt time.Time) error {
	_, err := db.Exec(`
		UPDATE work_bots SET status = ?, started_at = ? WHERE id = ?
	`, string(models.BotStatusRunning), formatTime(startedAt), id)
	if err != nil {
		return fmt.Errorf("mark work bot running: %w", err)
	}
	return nil
}

// FinishWorkBot writes a bot's terminal status, result, and completion time.
func (db *DB) FinishWorkBot(id int64, status models.BotStatus, result *models.BotResult, completedAt time.Time) error {
	encoded, err := marshalBotResult(result)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE work_bots SET status = ?, result = ?, completed_at = ? WHERE id = ?
	`, string(status), encoded, formatTime(completedAt), id)
	if err != nil {
		return fmt.Errorf("finish work bot: %w", err)
	}
	return nil
}

// ListWorkBotsByAssignment lists an assignment's bots in creation order.
func (db *DB) ListWorkBotsByAssignment(assignmentID int64) ([]models.WorkBot, error) {
	rows, err := db.Query(workBotSelect+" WHERE assignment_id = ? ORDER BY id", assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list work bots: %w", err)
	}
	defer rows.Close()

	var bots []models.WorkBot
	for rows.Next() {
		b, err := scanWorkBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work bot: %w", err)
		}
		bots = append(bots, *b)
	}
	return bots, rows.Err()
}

// CountWorkBotOutcomes returns the number of completed bots and the total
// bot count for an assignment.
func (db *DB) CountWorkBotOutcomes(assignmentID int64) (completed, total int, err error) {
	row := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM work_bots WHERE assignment_id = ?
	`, string(models.BotStatusCompleted), assignmentID)

	if err := row.Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("count work bot outcomes: %w", err)
	}
	return completed, total, nil
}

const workBotSelect = `
	SELECT id, external_id, assignment_id, agent_id, type, description, status, result, created_at, started_at, completed_at
	FROM work_bots
`

func scanWorkBot(s rowScanner) (*models.WorkBot, error) {
	var b models.WorkBot
	var result sql.NullString
	var createdAt string
	var startedAt, completedAt sql.NullString

	err := s.Scan(&b.ID, &b.ExternalID, &b.AssignmentID, &b.AgentID, &b.Type,
		&b.Description, &b.Status, &result, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if result.Valid && result.String != "" {
		var r models.BotResult
		if err := json.Unmarshal([]byte(result.String), &r); err != nil {
			return nil, fmt.Errorf("unmarshal bot result: %w", err)
		}
		b.Result = &r
	}
	b.CreatedAt, _ = parseTime(createdAt)
	b.StartedAt = parseNullableTime(startedAt)
	b.CompletedAt = parseNullableTime(completedAt)
	return &b, nil
}

func marshalBotResult(r *models.BotResult) (any, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal bot result: %w", err)
	}
	return string(b), nil
}
