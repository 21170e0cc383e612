package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AddReminder stores a new reminder in status pending and returns its id.
// Validation of kind-specific fields happens in the scheduling layer; the
// store records what it is given.
func (s *Store) AddReminder(r *Reminder) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	_, err := s.DB.Exec(`
		INSERT INTO reminders (id, task_id, conversation_key, kind, trigger_at,
			wakeup_id, cron_schedule, timezone, next_trigger_at, purpose,
			status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.TaskID, r.Conversation, r.Kind, formatTime(r.TriggerAt),
		r.WakeupID, r.CronSchedule, r.Timezone, formatTime(r.NextTriggerAt),
		r.Purpose, ReminderPending, formatTime(now))
	if err != nil {
		return "", fmt.Errorf("insert reminder: %w", err)
	}
	r.ID = id
	r.Status = ReminderPending
	r.CreatedAt = now
	return id, nil
}

// GetReminder returns a reminder by id.
func (s *Store) GetReminder(id string) (*Reminder, error) {
	row := s.DB.QueryRow(selectReminder+" WHERE id = ?", id)
	return scanReminder(row)
}

// SetReminderWakeup records the handle of the reminder's scheduled wake-up.
func (s *Store) SetReminderWakeup(id, wakeupID string) error {
	res, err := s.DB.Exec("UPDATE reminders SET wakeup_id = ? WHERE id = ?", wakeupID, id)
	if err != nil {
		return fmt.Errorf("set reminder wakeup %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RetimeReminder rewrites the trigger time of a one-time reminder (or the
// next trigger of a recurring one) and resets it to pending.
func (s *Store) RetimeReminder(id string, triggerAt time.Time) error {
	res, err := s.DB.Exec(`
		UPDATE reminders
		SET trigger_at = ?, next_trigger_at = ?, status = ?
		WHERE id = ?`,
		formatTime(triggerAt), formatTime(triggerAt), ReminderPending, id)
	if err != nil {
		return fmt.Errorf("retime reminder %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetReminderPurpose rewrites the reminder's human-readable purpose.
func (s *Store) SetReminderPurpose(id, purpose string) error {
	res, err := s.DB.Exec("UPDATE reminders SET purpose = ? WHERE id = ?", purpose, id)
	if err != nil {
		return fmt.Errorf("set reminder purpose %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RescheduleRecurring replaces a recurring reminder's cron schedule and
// its computed next trigger time.
func (s *Store) RescheduleRecurring(id, cronSchedule string, next time.Time) error {
	res, err := s.DB.Exec(
		"UPDATE reminders SET cron_schedule = ?, next_trigger_at = ? WHERE id = ?",
		cronSchedule, formatTime(next), id)
	if err != nil {
		return fmt.Errorf("reschedule reminder %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelReminder moves a reminder to its terminal cancelled status. The
// caller cancels any outstanding wake-up by handle.
func (s *Store) CancelReminder(id string) error {
	res, err := s.DB.Exec("UPDATE reminders SET status = ? WHERE id = ?", ReminderCancelled, id)
	if err != nil {
		return fmt.Errorf("cancel reminder %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReminder removes the reminder record entirely.
func (s *Store) DeleteReminder(id string) error {
	res, err := s.DB.Exec("DELETE FROM reminders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete reminder %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRemindersByTask returns all reminders attached to the task.
func (s *Store) ListRemindersByTask(taskID string) ([]*Reminder, error) {
	return s.queryReminders(selectReminder+" WHERE task_id = ? ORDER BY created_at", taskID)
}

// PendingRemindersByTask returns the task's reminders still in status
// pending, the only ones a task-status cascade is allowed to cancel.
func (s *Store) PendingRemindersByTask(taskID string) ([]*Reminder, error) {
	return s.queryReminders(
		selectReminder+" WHERE task_id = ? AND status = ? ORDER BY created_at",
		taskID, ReminderPending)
}

// DuePendingReminders returns every pending reminder across all
// conversations whose next trigger time has passed.
func (s *Store) DuePendingReminders(now time.Time) ([]*Reminder, error) {
	return s.queryReminders(
		selectReminder+` WHERE status = ? AND next_trigger_at != '' AND next_trigger_at <= ?
		ORDER BY next_trigger_at`,
		ReminderPending, formatTime(now))
}

// DuePendingForConversation returns the conversation's pending reminders
// whose next trigger time falls before the cutoff.
func (s *Store) DuePendingForConversation(conversation string, before time.Time) ([]*Reminder, error) {
	return s.queryReminders(
		selectReminder+` WHERE conversation_key = ? AND status = ?
		AND next_trigger_at != '' AND next_trigger_at <= ?
		ORDER BY next_trigger_at`,
		conversation, ReminderPending, formatTime(before))
}

// PendingTriggerReminders returns the conversation's reminders waiting to
// be narrated by an agent session.
func (s *Store) PendingTriggerReminders(conversation string) ([]*Reminder, error) {
	return s.queryReminders(
		selectReminder+" WHERE conversation_key = ? AND status = ? ORDER BY next_trigger_at",
		conversation, ReminderPendingTrigger)
}

// MarkPendingTrigger moves a due reminder into pending_trigger so the next
// agent session picks it up.
func (s *Store) MarkPendingTrigger(id string) error {
	res, err := s.DB.Exec("UPDATE reminders SET status = ? WHERE id = ?", ReminderPendingTrigger, id)
	if err != nil {
		return fmt.Errorf("mark reminder pending_trigger %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkTriggered records that a reminder was narrated. One-time reminders
// reach their terminal triggered status; recurring ones re-arm to pending
// with the supplied next trigger time.
func (s *Store) MarkTriggered(id string, now, nextTrigger time.Time) error {
	r, err := s.GetReminder(id)
	if err != nil {
		return err
	}
	if r.Kind == ReminderRecurring {
		_, err = s.DB.Exec(`
			UPDATE reminders
			SET status = ?, last_triggered_at = ?, next_trigger_at = ?
			WHERE id = ?`,
			ReminderPending, formatTime(now), formatTime(nextTrigger), id)
	} else {
		_, err = s.DB.Exec(`
			UPDATE reminders SET status = ?, last_triggered_at = ? WHERE id = ?`,
			ReminderTriggered, formatTime(now), id)
	}
	if err != nil {
		return fmt.Errorf("mark reminder triggered %q: %w", id, err)
	}
	return nil
}

const selectReminder = `
	SELECT id, task_id, conversation_key, kind, trigger_at, wakeup_id,
	       cron_schedule, timezone, next_trigger_at, purpose, status,
	       last_triggered_at, created_at
	FROM reminders`

func (s *Store) queryReminders(query string, args ...any) ([]*Reminder, error) {
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var out []*Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReminder(row rowScanner) (*Reminder, error) {
	var r Reminder
	var triggerAt, nextAt, lastAt, createdAt string
	err := row.Scan(&r.ID, &r.TaskID, &r.Conversation, &r.Kind, &triggerAt,
		&r.WakeupID, &r.CronSchedule, &r.Timezone, &nextAt, &r.Purpose,
		&r.Status, &lastAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan reminder: %w", err)
	}
	r.TriggerAt = parseTime(triggerAt)
	r.NextTriggerAt = parseTime(nextAt)
	r.LastTriggeredAt = parseTime(lastAt)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}
