package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskPatch describes a partial task update. Nil fields are left alone.
type TaskPatch struct {
	Title       *string
	Description *string
	DueAt       *time.Time
	EventAt     *time.Time
	Status      *string
}

// TaskWithReminders pairs a task with its reminders for listing.
type TaskWithReminders struct {
	Task      *Task
	Reminders []*Reminder
}

// CreateTask stores a new task in status active and returns its id.
func (s *Store) CreateTask(t *Task) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	_, err := s.DB.Exec(`
		INSERT INTO tasks (id, conversation_key, type, title, description,
			due_at, event_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.Conversation, t.Type, t.Title, t.Description,
		formatTime(t.DueAt), formatTime(t.EventAt), TaskActive, formatTime(now))
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	t.ID = id
	t.Status = TaskActive
	t.CreatedAt = now
	return id, nil
}

// GetTask returns a task by id.
func (s *Store) GetTask(id string) (*Task, error) {
	row := s.DB.QueryRow(`
		SELECT id, conversation_key, type, title, description, due_at,
		       event_at, status, created_at, completed_at
		FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// UpdateTask applies a partial update. Moving to status completed stamps
// completed_at. Reminder cascades for completed/cancelled tasks are the
// caller's responsibility since wake-up cancellation lives outside the
// store.
func (s *Store) UpdateTask(id string, patch TaskPatch) (*Task, error) {
	t, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.DueAt != nil {
		t.DueAt = *patch.DueAt
	}
	if patch.EventAt != nil {
		t.EventAt = *patch.EventAt
	}
	if patch.Status != nil {
		t.Status = *patch.Status
		if t.Status == TaskCompleted && t.CompletedAt.IsZero() {
			t.CompletedAt = time.Now()
		}
	}
	_, err = s.DB.Exec(`
		UPDATE tasks SET title = ?, description = ?, due_at = ?, event_at = ?,
			status = ?, completed_at = ?
		WHERE id = ?`,
		t.Title, t.Description, formatTime(t.DueAt), formatTime(t.EventAt),
		t.Status, formatTime(t.CompletedAt), id)
	if err != nil {
		return nil, fmt.Errorf("update task %q: %w", id, err)
	}
	return t, nil
}

// DeleteTask removes the task record. Its reminders are cascaded by the
// caller, which must cancel their wake-ups first.
func (s *Store) DeleteTask(id string) error {
	res, err := s.DB.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTasks returns the conversation's tasks, newest first. When
// activeOnly is set, completed and cancelled tasks are excluded.
func (s *Store) ListTasks(conversation string, activeOnly bool) ([]*Task, error) {
	query := `
		SELECT id, conversation_key, type, title, description, due_at,
		       event_at, status, created_at, completed_at
		FROM tasks WHERE conversation_key = ?`
	if activeOnly {
		query += " AND status = 'active'"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(query, conversation)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTasksWithReminders returns the conversation's tasks each paired with
// its reminders.
func (s *Store) ListTasksWithReminders(conversation string, activeOnly bool) ([]*TaskWithReminders, error) {
	tasks, err := s.ListTasks(conversation, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]*TaskWithReminders, 0, len(tasks))
	for _, t := range tasks {
		reminders, err := s.ListRemindersByTask(t.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &TaskWithReminders{Task: t, Reminders: reminders})
	}
	return out, nil
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var dueAt, eventAt, createdAt, completedAt string
	err := row.Scan(&t.ID, &t.Conversation, &t.Type, &t.Title, &t.Description,
		&dueAt, &eventAt, &t.Status, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.DueAt = parseTime(dueAt)
	t.EventAt = parseTime(eventAt)
	t.CreatedAt = parseTime(createdAt)
	t.CompletedAt = parseTime(completedAt)
	return &t, nil
}
