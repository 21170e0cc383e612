package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

// Service owns the reminder lifecycle: it validates reminder specs,
// computes fire times, keeps stored reminders and scheduled wake-ups in
// step, and cascades task status changes onto their reminders.
type Service struct {
	store  *store.Store
	timers *Timers
	log    *slog.Logger
	now    func() time.Time

	// Spawn hands a conversation with pending_trigger reminders to the
	// agent spawn path. Wired after construction; nil means wake-ups only
	// mark reminders and nobody narrates them.
	Spawn func(conversation string)
}

// NewService creates a reminder service around the store and timer
// registry.
func NewService(st *store.Store, timers *Timers, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		timers: timers,
		log:    logger.With("component", "schedule"),
		now:    time.Now,
	}
}

// AddReminderParams describes a new reminder. Timezone is optional for
// recurring reminders; when empty it is fetched from the conversation.
type AddReminderParams struct {
	TaskID       string
	Conversation string
	Kind         string
	Purpose      string
	TriggerAt    time.Time
	CronSchedule string
	Timezone     string
}

// AddReminder validates and stores a reminder and schedules its wake-up.
func (s *Service) AddReminder(p AddReminderParams) (*store.Reminder, error) {
	if _, err := s.store.GetTask(p.TaskID); err != nil {
		return nil, err
	}

	timezone := p.Timezone
	if timezone == "" {
		if c, err := s.store.GetConversation(p.Conversation); err == nil {
			timezone = c.Timezone
		}
	}

	r := &store.Reminder{
		TaskID:       p.TaskID,
		Conversation: p.Conversation,
		Kind:         p.Kind,
		Purpose:      p.Purpose,
		TriggerAt:    p.TriggerAt,
		CronSchedule: p.CronSchedule,
		Timezone:     timezone,
	}

	switch p.Kind {
	case store.ReminderOneTime:
		if p.TriggerAt.IsZero() {
			return nil, fmt.Errorf("%w: trigger_at required for one_time reminders", ErrValidation)
		}
		r.NextTriggerAt = p.TriggerAt

	case store.ReminderRecurring:
		if p.CronSchedule == "" {
			return nil, fmt.Errorf("%w: cron_schedule required for recurring reminders", ErrValidation)
		}
		if timezone == "" {
			return nil, fmt.Errorf("%w: timezone required for recurring reminders - set the conversation timezone first or pass one explicitly", ErrValidation)
		}
		next, err := NextCronTime(p.CronSchedule, timezone, s.now())
		if err != nil {
			return nil, err
		}
		r.NextTriggerAt = next

	default:
		return nil, fmt.Errorf("%w: unknown reminder kind %q", ErrValidation, p.Kind)
	}

	if _, err := s.store.AddReminder(r); err != nil {
		return nil, err
	}

	// One-time reminders get a direct wake-up at their instant; recurring
	// ones are driven by the poller.
	if r.Kind == store.ReminderOneTime {
		conversation := r.Conversation
		handle := s.timers.At(r.TriggerAt, func() { s.wake(conversation) })
		if err := s.store.SetReminderWakeup(r.ID, handle); err != nil {
			return nil, err
		}
		r.WakeupID = handle
	}

	s.log.Info("reminder added",
		"reminder_id", r.ID, "task_id", r.TaskID, "kind", r.Kind,
		"next_trigger_at", r.NextTriggerAt)
	return r, nil
}

// ReminderPatch describes a partial reminder update. Nil fields are left
// alone.
type ReminderPatch struct {
	Purpose      *string
	TriggerAt    *time.Time
	CronSchedule *string
	Cancel       bool
}

// UpdateReminder applies a partial update, re-scheduling or cancelling the
// wake-up as the patch requires.
func (s *Service) UpdateReminder(id string, patch ReminderPatch) error {
	r, err := s.store.GetReminder(id)
	if err != nil {
		return err
	}

	if patch.Purpose != nil {
		if err := s.store.SetReminderPurpose(id, *patch.Purpose); err != nil {
			return err
		}
	}

	if patch.TriggerAt != nil {
		if r.Kind != store.ReminderOneTime {
			return fmt.Errorf("%w: trigger_at only applies to one_time reminders", ErrValidation)
		}
		s.timers.Cancel(r.WakeupID)
		if err := s.store.RetimeReminder(id, *patch.TriggerAt); err != nil {
			return err
		}
		conversation := r.Conversation
		handle := s.timers.At(*patch.TriggerAt, func() { s.wake(conversation) })
		if err := s.store.SetReminderWakeup(id, handle); err != nil {
			return err
		}
	}

	if patch.CronSchedule != nil {
		if r.Kind != store.ReminderRecurring {
			return fmt.Errorf("%w: cron_schedule only applies to recurring reminders", ErrValidation)
		}
		next, err := NextCronTime(*patch.CronSchedule, r.Timezone, s.now())
		if err != nil {
			return err
		}
		if err := s.store.RescheduleRecurring(id, *patch.CronSchedule, next); err != nil {
			return err
		}
	}

	if patch.Cancel {
		// Cancelling an already-fired wake-up is expected and ignored.
		s.timers.Cancel(r.WakeupID)
		if err := s.store.CancelReminder(id); err != nil {
			return err
		}
	}

	return nil
}

// DeleteReminder cancels the reminder's wake-up and removes the record.
func (s *Service) DeleteReminder(id string) error {
	r, err := s.store.GetReminder(id)
	if err != nil {
		return err
	}
	s.timers.Cancel(r.WakeupID)
	return s.store.DeleteReminder(id)
}

// UpdateTask applies a task patch. Completing or cancelling a task
// cascades onto its reminders: every pending one is cancelled along with
// its wake-up; triggered and already-cancelled reminders are untouched.
func (s *Service) UpdateTask(id string, patch store.TaskPatch) (*store.Task, error) {
	t, err := s.store.UpdateTask(id, patch)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil && (*patch.Status == store.TaskCompleted || *patch.Status == store.TaskCancelled) {
		if err := s.cancelPendingReminders(id); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// DeleteTask removes a task and all of its reminders, cancelling their
// wake-ups first.
func (s *Service) DeleteTask(id string) error {
	reminders, err := s.store.ListRemindersByTask(id)
	if err != nil {
		return err
	}
	for _, r := range reminders {
		s.timers.Cancel(r.WakeupID)
		if err := s.store.DeleteReminder(r.ID); err != nil && err != store.ErrNotFound {
			return err
		}
	}
	return s.store.DeleteTask(id)
}

// MarkTriggered records that the reminders were narrated by an agent
// session: one-time reminders become terminal, recurring ones re-arm with
// a freshly computed next trigger time.
func (s *Service) MarkTriggered(reminders []*store.Reminder) {
	now := s.now()
	for _, r := range reminders {
		var next time.Time
		if r.Kind == store.ReminderRecurring {
			var err error
			next, err = NextCronTime(r.CronSchedule, r.Timezone, now)
			if err != nil {
				s.log.Error("recompute recurring reminder", "reminder_id", r.ID, "error", err)
				continue
			}
		}
		if err := s.store.MarkTriggered(r.ID, now, next); err != nil {
			s.log.Error("mark reminder triggered", "reminder_id", r.ID, "error", err)
		}
	}
}

func (s *Service) cancelPendingReminders(taskID string) error {
	pending, err := s.store.PendingRemindersByTask(taskID)
	if err != nil {
		return err
	}
	for _, r := range pending {
		s.timers.Cancel(r.WakeupID)
		if err := s.store.CancelReminder(r.ID); err != nil {
			return err
		}
	}
	return nil
}

// wake is the one-time wake-up callback: it queues everything due within
// the next minute for this conversation and hands the conversation to the
// spawn path.
func (s *Service) wake(conversation string) {
	due, err := s.store.DuePendingForConversation(conversation, s.now().Add(time.Minute))
	if err != nil {
		s.log.Error("query due reminders on wake-up", "conversation", conversation, "error", err)
		return
	}
	for _, r := range due {
		if err := s.store.MarkPendingTrigger(r.ID); err != nil {
			s.log.Error("mark reminder pending_trigger", "reminder_id", r.ID, "error", err)
		}
	}
	if s.Spawn != nil {
		s.Spawn(conversation)
	}
}
