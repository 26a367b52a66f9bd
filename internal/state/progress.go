package state

import (
	"database/sql"
	"fmt"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// ProgressUpdate operations. The table is append-only: updates are never
// mutated or deleted.

// AppendProgress inserts one progress update and fills in its row ID.
func (db *DB) AppendProgress(p *models.ProgressUpdate) error {
	var pct any
	if p.ProgressPercentage != nil {
		pct = *p.ProgressPercentage
	}

	res, err := db.Exec(`
		INSERT INTO progress_updates (external_id, task_id, source_type, source_id, message, progress_percentage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ExternalID, p.TaskID, string(p.SourceType), p.SourceID, p.Message, pct, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("append progress: %w", err)
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append progress id: %w", err)
	}
	return nil
}

// ListProgressByTask lists a task's progress updates newest first.
// Insertion order is preserved exactly: rows are ordered by descending
// row ID, which breaks ties between updates created in the same instant.
func (db *DB) ListProgressByTask(taskID int64) ([]models.ProgressUpdate, error) {
	rows, err := db.Query(`
		SELECT id, external_id, task_id, source_type, source_id, message, progress_percentage, created_at
		FROM progress_updates WHERE task_id = ? ORDER BY id DESC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var updates []models.ProgressUpdate
	for rows.Next() {
		var p models.ProgressUpdate
		var pct sql.NullInt64
		var createdAt string
		if err := rows.Scan(&p.ID, &p.ExternalID, &p.TaskID, &p.SourceType, &p.SourceID, &p.Message, &pct, &createdAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		if pct.Valid {
			v := int(pct.Int64)
			p.ProgressPercentage = &v
		}
		p.CreatedAt, _ = parseTime(createdAt)
		updates = append(updates, p)
	}
	return updates, rows.Err()
}
