package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// Task CRUD operations

// CreateTask inserts a new task and fills in its row ID.
func (db *DB) CreateTask(t *models.Task) error {
	intent, err := marshalIntent(t.Intent)
	if err != nil {
		return err
	}

	res, err := db.Exec(`
		INSERT INTO tasks (external_id, user_id, title, description, intent, priority, status, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ExternalID, t.UserID, t.Title, t.Description, intent, string(t.Priority), string(t.Status),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), formatNullableTime(t.CompletedAt))
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create task id: %w", err)
	}
	return nil
}

// GetTask retrieves a task by row ID.
func (db *DB) GetTask(id int64) (*models.Task, error) {
	row := db.QueryRow(taskSelect+" WHERE id = ?", id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// GetTaskByExternalID retrieves a task by its public identifier.
func (db *DB) GetTaskByExternalID(externalID string) (*models.Task, error) {
	row := db.QueryRow(taskSelect+" WHERE external_id = ?", externalID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", externalID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task by external id: %w", err)
	}
	return t, nil
}

// UpdateTask persists mutable task fields.
func (db *DB) UpdateTask(t *models.Task) error {
	intent, err := marshalIntent(t.Intent)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE tasks SET title = ?, description = ?, intent = ?, priority = ?, status = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`, t.Title, t.Description, intent, string(t.Priority), string(t.Status),
		formatTime(t.UpdatedAt), formatNullableTime(t.CompletedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ListTasks lists tasks newest first, optionally filtered by status.
func (db *DB) ListTasks(status *models.TaskStatus) ([]models.Task, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(taskSelect+" WHERE status = ? ORDER BY created_at DESC", string(*status))
	} else {
		rows, err = db.Query(taskSelect + " ORDER BY created_at DESC")
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

const taskSelect = `
	SELECT id, external_id, user_id, title, description, intent, priority, status, created_at, updated_at, completed_at
	FROM tasks
`

func scanTask(s rowScanner) (*models.Task, error) {
	var t models.Task
	var description, intent sql.NullString
	var createdAt, updatedAt string
	var completedAt sql.NullString

	err := s.Scan(&t.ID, &t.ExternalID, &t.UserID, &t.Title, &description, &intent,
		&t.Priority, &t.Status, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	if intent.Valid && intent.String != "" {
		var u models.Understanding
		if err := json.Unmarshal([]byte(intent.String), &u); err != nil {
			return nil, fmt.Errorf("unmarshal intent: %w", err)
		}
		t.Intent = &u
	}
	t.CreatedAt, _ = parseTime(createdAt)
	t.UpdatedAt, _ = parseTime(updatedAt)
	t.CompletedAt = parseNullableTime(completedAt)
	return &t, nil
}

func marshalIntent(u *models.Understanding) (any, error) {
	if u == nil {
		return nil, nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("marshal intent: %w", err)
	}
	return string(b), nil
}
