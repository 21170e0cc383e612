package agent

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/teekay-ai/teekay/pkg/teekay/channels"
	"github.com/teekay-ai/teekay/pkg/teekay/schedule"
	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

// Runner executes one agent session per invocation: claims the
// conversation, builds the prompt and tools, drives the runtime, sweeps
// reminders that came due mid-session, and releases the claim on every
// exit path. Runtime failures are logged, never propagated; the claim
// release must not depend on a clean run.
type Runner struct {
	Store    *store.Store
	Channel  channels.Channel
	Schedule *schedule.Service
	Runtime  Runtime
	Tracker  *Tracker
	Toolbox  *Toolbox
	Log      *slog.Logger
}

// NewRunner wires a session runner.
func NewRunner(st *store.Store, ch channels.Channel, svc *schedule.Service, rt Runtime, tracker *Tracker, toolbox *Toolbox, logger *slog.Logger) *Runner {
	return &Runner{
		Store:    st,
		Channel:  ch,
		Schedule: svc,
		Runtime:  rt,
		Tracker:  tracker,
		Toolbox:  toolbox,
		Log:      logger.With("component", "runner"),
	}
}

// RunSession runs one session for the conversation. If another session
// already owns the conversation the call is a no-op.
func (r *Runner) RunSession(ctx context.Context, conversation string, trig *Trigger) {
	sessionID := uuid.NewString()
	if owner, ok := r.Tracker.Claim(conversation, sessionID); !ok {
		r.Log.Info("conversation already claimed, skipping session",
			"conversation", conversation, "owner", owner)
		return
	}
	defer r.Tracker.Release(conversation)

	log := r.Log.With("conversation", conversation, "session", sessionID, "trigger", trig.Type)
	log.Info("session starting")

	// Read receipt is cosmetic. Never let it block the session.
	if err := r.Channel.MarkRead(ctx, conversation); err != nil {
		log.Warn("read receipt failed", "error", err)
	}

	memories, err := r.Store.ListMemories(conversation)
	if err != nil {
		log.Error("loading memories failed", "error", err)
	}
	onboarded := false
	if conv, err := r.Store.GetConversation(conversation); err == nil {
		onboarded = conv.Onboarded
	} else {
		log.Error("loading conversation failed", "error", err)
	}

	threadID, err := r.Runtime.OpenThread(ctx, conversation)
	if err != nil {
		log.Error("opening thread failed", "error", err)
		return
	}
	if closer, ok := r.Runtime.(interface{ CloseThread(string) }); ok {
		defer closer.CloseThread(threadID)
	}

	instruction := ""
	switch trig.Type {
	case TriggerReminder:
		instruction = ReminderInstruction(trig.Reminders)
	default:
		instruction = MessageInstruction(trig.Event)
	}

	req := &RunRequest{
		ThreadID:     threadID,
		SystemPrompt: SystemPrompt(memories, onboarded, trig),
		Instruction:  instruction,
		Tools:        r.Toolbox.ForConversation(conversation),
	}
	if _, err := r.Runtime.Run(ctx, req); err != nil {
		log.Error("session run failed", "error", err)
	}

	r.sweep(ctx, log, conversation, req)

	log.Info("session finished")
}

// sweep narrates reminders that became due while the session held the
// claim. The poller parks them in pending_trigger instead of spawning;
// this extra turn delivers them in the same thread.
func (r *Runner) sweep(ctx context.Context, log *slog.Logger, conversation string, req *RunRequest) {
	pending, err := r.Store.PendingTriggerReminders(conversation)
	if err != nil {
		log.Error("reminder sweep query failed", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	due := BuildDueReminders(r.Store, pending, log)

	log.Info("sweeping reminders that came due mid-session", "count", len(pending))
	req.Instruction = SweepInstruction(due)
	if _, err := r.Runtime.Run(ctx, req); err != nil {
		// Reminders stay pending_trigger so the next session narrates them.
		log.Error("reminder sweep run failed", "error", err)
		return
	}
	r.Schedule.MarkTriggered(pending)
}

// BuildDueReminders joins reminders with their owning tasks into the
// payload the prompts render. Tasks that fail to load keep the reminder
// with placeholder task fields rather than dropping it.
func BuildDueReminders(st *store.Store, reminders []*store.Reminder, log *slog.Logger) []DueReminder {
	out := make([]DueReminder, 0, len(reminders))
	for _, rem := range reminders {
		due := DueReminder{
			ID:      rem.ID,
			TaskID:  rem.TaskID,
			Purpose: rem.Purpose,
		}
		if task, err := st.GetTask(rem.TaskID); err == nil {
			due.TaskTitle = task.Title
			due.TaskType = task.Type
			due.DueAt = task.DueAt
			due.EventAt = task.EventAt
		} else {
			log.Warn("task lookup for due reminder failed", "task", rem.TaskID, "error", err)
			due.TaskTitle = "a task"
			due.TaskType = store.TaskTypeReminder
		}
		out = append(out, due)
	}
	return out
}
