package agent

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teekay-ai/teekay/pkg/teekay/channels"
	"github.com/teekay-ai/teekay/pkg/teekay/schedule"
	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

// Toolbox carries the dependencies the conversation tools close over.
// ForConversation binds them to one conversation and returns the
// registry a session runs with.
type Toolbox struct {
	Store    *store.Store
	Channel  channels.Channel
	Schedule *schedule.Service
	Config   Config
	Log      *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewToolbox wires a toolbox with real clock and sleep functions.
func NewToolbox(st *store.Store, ch channels.Channel, svc *schedule.Service, cfg Config, logger *slog.Logger) *Toolbox {
	return &Toolbox{
		Store:    st,
		Channel:  ch,
		Schedule: svc,
		Config:   cfg,
		Log:      logger.With("component", "tools"),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TypingDelay scales the simulated typing time with message length,
// clamped between the configured minimum and maximum.
func TypingDelay(text string, minMillis, maxMillis int) time.Duration {
	ms := float64(minMillis) + float64(len(text))/200*float64(maxMillis-minMillis)
	if ms < float64(minMillis) {
		ms = float64(minMillis)
	}
	if ms > float64(maxMillis) {
		ms = float64(maxMillis)
	}
	return time.Duration(ms) * time.Millisecond
}

// ForConversation builds the tool registry for one conversation.
func (t *Toolbox) ForConversation(conversation string) *Registry {
	r := NewRegistry()

	r.Register(Definition{
		Name:        "think",
		Description: "Reason through something before acting. The thought is not visible to the user.",
		Parameters:  objectSchema(map[string]any{"thought": prop("string", "what you are thinking through")}, "thought"),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return "ok", nil
	})

	r.Register(Definition{
		Name:        "get_messages",
		Description: "Fetch the most recent messages in this conversation, oldest first.",
		Parameters:  objectSchema(map[string]any{"limit": prop("integer", "how many messages to fetch (default 30, max 200)")}),
	}, t.getMessages(conversation))

	r.Register(Definition{
		Name:        "send_message",
		Description: "Send a text to the user after a realistic typing delay. Returns ABORTED if they texted mid-typing; call get_messages and respond to that instead.",
		Parameters:  objectSchema(map[string]any{"text": prop("string", "the message to send")}, "text"),
	}, t.sendMessage(conversation))

	r.Register(Definition{
		Name:        "send_contact_card",
		Description: "Send your contact card so the user can save your number.",
		Parameters:  objectSchema(nil),
	}, t.sendContactCard(conversation))

	r.Register(Definition{
		Name:        "get_login_link",
		Description: "Create a single-use dashboard login link for the user. Expires in 5 minutes.",
		Parameters:  objectSchema(nil),
	}, t.getLoginLink(conversation))

	r.Register(Definition{
		Name:        "edit_message",
		Description: "Edit a message you previously sent.",
		Parameters: objectSchema(map[string]any{
			"message_id": prop("string", "id of the message to edit"),
			"text":       prop("string", "the new text"),
		}, "message_id", "text"),
	}, t.editMessage(conversation))

	r.Register(Definition{
		Name:        "delete_message",
		Description: "Unsend a message you previously sent.",
		Parameters:  objectSchema(map[string]any{"message_id": prop("string", "id of the message to delete")}, "message_id"),
	}, t.deleteMessage(conversation))

	r.Register(Definition{
		Name:        "react",
		Description: "Add or remove a tapback reaction on a message.",
		Parameters: objectSchema(map[string]any{
			"message_id": prop("string", "id of the message to react to"),
			"reaction":   enumProp("the tapback type", channels.ReactionLove, channels.ReactionLike, channels.ReactionDislike, channels.ReactionLaugh, channels.ReactionEmphasize, channels.ReactionQuestion),
			"operation":  enumProp("add or remove the reaction", channels.ReactionAdd, channels.ReactionRemove),
		}, "message_id", "reaction"),
	}, t.react(conversation))

	r.Register(Definition{
		Name:        "wait",
		Description: "Pause for 1-60 seconds to give the user time to respond.",
		Parameters:  objectSchema(map[string]any{"seconds": prop("integer", "seconds to wait (1-60)")}, "seconds"),
	}, t.wait())

	r.Register(Definition{
		Name:        "terminate",
		Description: "End this session. Call only when the conversation has gone quiet.",
		Parameters:  objectSchema(map[string]any{"reason": prop("string", "why the session is ending")}, "reason"),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return fmt.Sprintf("session ended: %s", stringArg(args, "reason")), nil
	})

	r.Register(Definition{
		Name:        "save_memory",
		Description: "Save a fact about the user. Check current memories first and only save new information.",
		Parameters:  objectSchema(map[string]any{"content": prop("string", "the fact to remember")}, "content"),
	}, t.saveMemory(conversation))

	r.Register(Definition{
		Name:        "edit_memory",
		Description: "Replace the content of an existing memory.",
		Parameters: objectSchema(map[string]any{
			"memory_id": prop("string", "id of the memory to edit"),
			"content":   prop("string", "the new content"),
		}, "memory_id", "content"),
	}, t.editMemory())

	r.Register(Definition{
		Name:        "delete_memory",
		Description: "Delete a memory that is no longer true.",
		Parameters:  objectSchema(map[string]any{"memory_id": prop("string", "id of the memory to delete")}, "memory_id"),
	}, t.deleteMemory())

	r.Register(Definition{
		Name:        "set_timezone",
		Description: "Set the user's timezone once you learn where they live.",
		Parameters:  objectSchema(map[string]any{"timezone": prop("string", "IANA name or abbreviation, e.g. America/New_York, PST, EDT")}, "timezone"),
	}, t.setTimezone(conversation))

	r.Register(Definition{
		Name:        "complete_onboarding",
		Description: "Mark onboarding as done. Call only after saving name, birthday and hometown memories.",
		Parameters:  objectSchema(nil),
	}, t.completeOnboarding(conversation))

	r.Register(Definition{
		Name:        "create_task",
		Description: "Create a task for the user. Add reminders separately with add_reminder.",
		Parameters: objectSchema(map[string]any{
			"title":       prop("string", "short task title"),
			"task_type":   enumProp("what kind of task this is", store.TaskTypeTodo, store.TaskTypeHomework, store.TaskTypeEvent, store.TaskTypeReminder),
			"description": prop("string", "optional details"),
			"due_at":      prop("string", "optional RFC 3339 due time"),
			"event_at":    prop("string", "optional RFC 3339 event time"),
		}, "title", "task_type"),
	}, t.createTask(conversation))

	r.Register(Definition{
		Name:        "add_reminder",
		Description: "Attach a reminder to a task. one_time needs trigger_at; recurring needs a 5-field cron schedule in the user's local time.",
		Parameters: objectSchema(map[string]any{
			"task_id":       prop("string", "id of the task to remind about"),
			"kind":          enumProp("reminder kind", store.ReminderOneTime, store.ReminderRecurring),
			"trigger_at":    prop("string", "RFC 3339 time for one_time reminders"),
			"cron_schedule": prop("string", "cron expression for recurring reminders, e.g. 0 9 * * MON"),
			"purpose":       prop("string", "what to say when it fires"),
		}, "task_id", "kind", "purpose"),
	}, t.addReminder(conversation))

	r.Register(Definition{
		Name:        "get_tasks",
		Description: "List the user's tasks with their reminders.",
		Parameters:  objectSchema(map[string]any{"include_completed": prop("boolean", "include completed and cancelled tasks")}),
	}, t.getTasks(conversation))

	r.Register(Definition{
		Name:        "get_reminders",
		Description: "List reminders, optionally for a single task.",
		Parameters:  objectSchema(map[string]any{"task_id": prop("string", "optional task id to filter by")}),
	}, t.getReminders(conversation))

	r.Register(Definition{
		Name:        "update_task",
		Description: "Update a task's fields or status. Completing or cancelling a task cancels its pending reminders.",
		Parameters: objectSchema(map[string]any{
			"task_id":     prop("string", "id of the task to update"),
			"title":       prop("string", "new title"),
			"description": prop("string", "new description"),
			"status":      enumProp("new status", store.TaskActive, store.TaskCompleted, store.TaskCancelled),
			"due_at":      prop("string", "new RFC 3339 due time"),
			"event_at":    prop("string", "new RFC 3339 event time"),
		}, "task_id"),
	}, t.updateTask())

	r.Register(Definition{
		Name:        "update_reminder",
		Description: "Retime, repurpose or cancel a reminder.",
		Parameters: objectSchema(map[string]any{
			"reminder_id":   prop("string", "id of the reminder to update"),
			"trigger_at":    prop("string", "new RFC 3339 trigger time for one_time reminders"),
			"cron_schedule": prop("string", "new cron expression for recurring reminders"),
			"purpose":       prop("string", "new purpose"),
			"cancel":        prop("boolean", "cancel the reminder"),
		}, "reminder_id"),
	}, t.updateReminder())

	r.Register(Definition{
		Name:        "delete_task",
		Description: "Delete a task and all of its reminders.",
		Parameters:  objectSchema(map[string]any{"task_id": prop("string", "id of the task to delete")}, "task_id"),
	}, t.deleteTask())

	return r
}

func (t *Toolbox) getMessages(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		limit := intArg(args, "limit")
		if limit <= 0 {
			limit = 30
		}
		messages, err := t.Store.RecentMessages(conversation, limit)
		if err != nil {
			return nil, fmt.Errorf("fetching messages: %w", err)
		}
		out := make([]map[string]any, 0, len(messages))
		for _, m := range messages {
			entry := map[string]any{
				"id":      m.ID,
				"sender":  m.Sender,
				"text":    m.Text,
				"sent_at": m.SentAt.Format(time.RFC3339),
				"from_me": m.FromAgent,
			}
			if m.Edited {
				entry["edited"] = true
			}
			if len(m.Reactions) > 0 {
				entry["reactions"] = m.Reactions
			}
			if len(m.Attachments) > 0 {
				entry["attachments"] = m.Attachments
			}
			out = append(out, entry)
		}
		return out, nil
	}
}

func (t *Toolbox) sendMessage(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		text := stringArg(args, "text")
		if text == "" {
			return nil, errors.New("text is required")
		}

		before, err := t.Store.LatestMessageID(conversation)
		if err != nil {
			return nil, fmt.Errorf("checking latest message: %w", err)
		}

		if err := t.Channel.StartTyping(ctx, conversation); err != nil {
			t.Log.Warn("start typing failed", "conversation", conversation, "error", err)
		}
		delay := TypingDelay(text, t.Config.TypingMinMillis, t.Config.TypingMaxMillis)
		if err := t.sleep(ctx, delay); err != nil {
			t.stopTyping(ctx, conversation)
			return nil, err
		}

		// The user may have texted while we were "typing".
		after, err := t.Store.LatestMessageID(conversation)
		if err != nil {
			t.stopTyping(ctx, conversation)
			return nil, fmt.Errorf("checking latest message: %w", err)
		}
		if after != before {
			t.stopTyping(ctx, conversation)
			return "ABORTED: the user sent a new message while you were typing. call get_messages() and respond to that instead", nil
		}

		if err := t.Channel.SendText(ctx, conversation, text); err != nil {
			t.stopTyping(ctx, conversation)
			return nil, fmt.Errorf("sending message: %w", err)
		}
		t.stopTyping(ctx, conversation)
		return "sent", nil
	}
}

func (t *Toolbox) stopTyping(ctx context.Context, conversation string) {
	if err := t.Channel.StopTyping(ctx, conversation); err != nil {
		t.Log.Warn("stop typing failed", "conversation", conversation, "error", err)
	}
}

func (t *Toolbox) sendContactCard(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if t.Config.ContactCardURL == "" {
			return nil, errors.New("no contact card configured")
		}
		if err := t.Channel.SendAttachment(ctx, conversation, t.Config.ContactCardURL); err != nil {
			return nil, fmt.Errorf("sending contact card: %w", err)
		}
		return "sent", nil
	}
}

func (t *Toolbox) getLoginLink(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		conv, err := t.Store.GetConversation(conversation)
		if err != nil {
			return nil, fmt.Errorf("fetching conversation: %w", err)
		}
		token, err := loginToken()
		if err != nil {
			return nil, err
		}
		if _, err := t.Store.CreateMagicLink(conv.Contact, conversation, token, 5*time.Minute); err != nil {
			return nil, fmt.Errorf("creating login link: %w", err)
		}
		return fmt.Sprintf("%s/login?token=%s (expires in 5 minutes, single use)", t.Config.DashboardURL, token), nil
	}
}

// loginToken returns a 48-character hex token.
func loginToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (t *Toolbox) editMessage(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		id := stringArg(args, "message_id")
		text := stringArg(args, "text")
		if id == "" || text == "" {
			return nil, errors.New("message_id and text are required")
		}
		msg, err := t.Store.GetMessage(id)
		if err != nil {
			return nil, fmt.Errorf("fetching message: %w", err)
		}
		if !msg.FromAgent {
			return nil, errors.New("can only edit your own messages")
		}
		if err := t.Channel.EditMessage(ctx, conversation, msg.ExternalID, text); err != nil {
			return nil, fmt.Errorf("editing message: %w", err)
		}
		if err := t.Store.EditMessage(id, text); err != nil {
			return nil, fmt.Errorf("recording edit: %w", err)
		}
		return "edited", nil
	}
}

func (t *Toolbox) deleteMessage(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		id := stringArg(args, "message_id")
		if id == "" {
			return nil, errors.New("message_id is required")
		}
		msg, err := t.Store.GetMessage(id)
		if err != nil {
			return nil, fmt.Errorf("fetching message: %w", err)
		}
		if !msg.FromAgent {
			return nil, errors.New("can only delete your own messages")
		}
		if err := t.Channel.DeleteMessage(ctx, conversation, msg.ExternalID); err != nil {
			return nil, fmt.Errorf("deleting message: %w", err)
		}
		if err := t.Store.SoftDeleteMessage(id); err != nil {
			return nil, fmt.Errorf("recording delete: %w", err)
		}
		return "deleted", nil
	}
}

func (t *Toolbox) react(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		id := stringArg(args, "message_id")
		reaction := stringArg(args, "reaction")
		operation := stringArg(args, "operation")
		if operation == "" {
			operation = channels.ReactionAdd
		}
		if !channels.ValidReaction(reaction) {
			return nil, fmt.Errorf("%w: %q", channels.ErrInvalidReaction, reaction)
		}
		msg, err := t.Store.GetMessage(id)
		if err != nil {
			return nil, fmt.Errorf("fetching message: %w", err)
		}
		if err := t.Channel.React(ctx, msg.ExternalID, reaction, operation); err != nil {
			return nil, fmt.Errorf("reacting: %w", err)
		}
		return "reacted", nil
	}
}

func (t *Toolbox) wait() ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		seconds := intArg(args, "seconds")
		if seconds < 1 {
			seconds = 1
		}
		if seconds > 60 {
			seconds = 60
		}
		if err := t.sleep(ctx, time.Duration(seconds)*time.Second); err != nil {
			return nil, err
		}
		return fmt.Sprintf("waited %d seconds", seconds), nil
	}
}

func (t *Toolbox) saveMemory(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		content := stringArg(args, "content")
		if content == "" {
			return nil, errors.New("content is required")
		}
		id, err := t.Store.SaveMemory(conversation, content)
		if err != nil {
			return nil, fmt.Errorf("saving memory: %w", err)
		}
		return map[string]any{"memory_id": id}, nil
	}
}

func (t *Toolbox) editMemory() ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		id := stringArg(args, "memory_id")
		content := stringArg(args, "content")
		if id == "" || content == "" {
			return nil, errors.New("memory_id and content are required")
		}
		if err := t.Store.EditMemory(id, content); err != nil {
			return nil, fmt.Errorf("editing memory: %w", err)
		}
		return "updated", nil
	}
}

func (t *Toolbox) deleteMemory() ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		id := stringArg(args, "memory_id")
		if id == "" {
			return nil, errors.New("memory_id is required")
		}
		if err := t.Store.DeleteMemory(id); err != nil {
			return nil, fmt.Errorf("deleting memory: %w", err)
		}
		return "deleted", nil
	}
}

func (t *Toolbox) setTimezone(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		tz := stringArg(args, "timezone")
		if !schedule.KnownTimezone(tz) {
			return nil, fmt.Errorf("unknown timezone %q", tz)
		}
		if err := t.Store.SetConversationTimezone(conversation, tz); err != nil {
			return nil, fmt.Errorf("setting timezone: %w", err)
		}
		return fmt.Sprintf("timezone set to %s", tz), nil
	}
}

func (t *Toolbox) completeOnboarding(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if err := t.Store.CompleteOnboarding(conversation); err != nil {
			return nil, fmt.Errorf("completing onboarding: %w", err)
		}
		return "onboarding complete", nil
	}
}

func (t *Toolbox) createTask(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		task := &store.Task{
			Conversation: conversation,
			Title:        stringArg(args, "title"),
			Description:  stringArg(args, "description"),
			Type:         stringArg(args, "task_type"),
		}
		if task.Title == "" {
			return nil, errors.New("title is required")
		}
		var err error
		if task.DueAt, err = timeArg(args, "due_at"); err != nil {
			return nil, err
		}
		if task.EventAt, err = timeArg(args, "event_at"); err != nil {
			return nil, err
		}
		id, err := t.Store.CreateTask(task)
		if err != nil {
			return nil, fmt.Errorf("creating task: %w", err)
		}
		return map[string]any{"task_id": id}, nil
	}
}

func (t *Toolbox) addReminder(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		params := schedule.AddReminderParams{
			TaskID:       stringArg(args, "task_id"),
			Conversation: conversation,
			Kind:         stringArg(args, "kind"),
			CronSchedule: stringArg(args, "cron_schedule"),
			Purpose:      stringArg(args, "purpose"),
		}
		var err error
		if params.TriggerAt, err = timeArg(args, "trigger_at"); err != nil {
			return nil, err
		}
		rem, err := t.Schedule.AddReminder(params)
		if err != nil {
			return nil, fmt.Errorf("adding reminder: %w", err)
		}
		out := map[string]any{"reminder_id": rem.ID}
		if !rem.NextTriggerAt.IsZero() {
			out["next_trigger_at"] = rem.NextTriggerAt.Format(time.RFC3339)
		}
		if !rem.TriggerAt.IsZero() {
			out["trigger_at"] = rem.TriggerAt.Format(time.RFC3339)
		}
		return out, nil
	}
}

func (t *Toolbox) getTasks(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		includeCompleted, _ := args["include_completed"].(bool)
		tasks, err := t.Store.ListTasksWithReminders(conversation, !includeCompleted)
		if err != nil {
			return nil, fmt.Errorf("listing tasks: %w", err)
		}
		out := make([]map[string]any, 0, len(tasks))
		for _, tw := range tasks {
			entry := map[string]any{
				"id":        tw.Task.ID,
				"title":     tw.Task.Title,
				"task_type": tw.Task.Type,
				"status":    tw.Task.Status,
			}
			if tw.Task.Description != "" {
				entry["description"] = tw.Task.Description
			}
			if !tw.Task.DueAt.IsZero() {
				entry["due_at"] = tw.Task.DueAt.Format(time.RFC3339)
			}
			if !tw.Task.EventAt.IsZero() {
				entry["event_at"] = tw.Task.EventAt.Format(time.RFC3339)
			}
			if len(tw.Reminders) > 0 {
				entry["reminders"] = reminderSummaries(tw.Reminders)
			}
			out = append(out, entry)
		}
		return out, nil
	}
}

func (t *Toolbox) getReminders(conversation string) ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if taskID := stringArg(args, "task_id"); taskID != "" {
			reminders, err := t.Store.ListRemindersByTask(taskID)
			if err != nil {
				return nil, fmt.Errorf("listing reminders: %w", err)
			}
			return reminderSummaries(reminders), nil
		}
		tasks, err := t.Store.ListTasksWithReminders(conversation, false)
		if err != nil {
			return nil, fmt.Errorf("listing reminders: %w", err)
		}
		var out []map[string]any
		for _, tw := range tasks {
			out = append(out, reminderSummaries(tw.Reminders)...)
		}
		return out, nil
	}
}

func reminderSummaries(reminders []*store.Reminder) []map[string]any {
	out := make([]map[string]any, 0, len(reminders))
	for _, r := range reminders {
		entry := map[string]any{
			"id":      r.ID,
			"task_id": r.TaskID,
			"kind":    r.Kind,
			"status":  r.Status,
			"purpose": r.Purpose,
		}
		if !r.TriggerAt.IsZero() {
			entry["trigger_at"] = r.TriggerAt.Format(time.RFC3339)
		}
		if r.CronSchedule != "" {
			entry["cron_schedule"] = r.CronSchedule
			entry["timezone"] = r.Timezone
		}
		if !r.NextTriggerAt.IsZero() {
			entry["next_trigger_at"] = r.NextTriggerAt.Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	return out
}

func (t *Toolbox) updateTask() ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		id := stringArg(args, "task_id")
		if id == "" {
			return nil, errors.New("task_id is required")
		}
		var patch store.TaskPatch
		if v := stringArg(args, "title"); v != "" {
			patch.Title = &v
		}
		if v := stringArg(args, "description"); v != "" {
			patch.Description = &v
		}
		if v := stringArg(args, "status"); v != "" {
			patch.Status = &v
		}
		if at, err := timeArg(args, "due_at"); err != nil {
			return nil, err
		} else if !at.IsZero() {
			patch.DueAt = &at
		}
		if at, err := timeArg(args, "event_at"); err != nil {
			return nil, err
		} else if !at.IsZero() {
			patch.EventAt = &at
		}
		if _, err := t.Schedule.UpdateTask(id, patch); err != nil {
			return nil, fmt.Errorf("updating task: %w", err)
		}
		return "updated", nil
	}
}

func (t *Toolbox) updateReminder() ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		id := stringArg(args, "reminder_id")
		if id == "" {
			return nil, errors.New("reminder_id is required")
		}
		var patch schedule.ReminderPatch
		if v := stringArg(args, "purpose"); v != "" {
			patch.Purpose = &v
		}
		if v := stringArg(args, "cron_schedule"); v != "" {
			patch.CronSchedule = &v
		}
		if at, err := timeArg(args, "trigger_at"); err != nil {
			return nil, err
		} else if !at.IsZero() {
			patch.TriggerAt = &at
		}
		if cancel, _ := args["cancel"].(bool); cancel {
			patch.Cancel = true
		}
		if err := t.Schedule.UpdateReminder(id, patch); err != nil {
			return nil, fmt.Errorf("updating reminder: %w", err)
		}
		return "updated", nil
	}
}

func (t *Toolbox) deleteTask() ToolHandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		id := stringArg(args, "task_id")
		if id == "" {
			return nil, errors.New("task_id is required")
		}
		if err := t.Schedule.DeleteTask(id); err != nil {
			return nil, fmt.Errorf("deleting task: %w", err)
		}
		return "deleted", nil
	}
}

// timeArg parses an optional RFC 3339 time argument.
func timeArg(args map[string]any, key string) (time.Time, error) {
	raw := stringArg(args, key)
	if raw == "" {
		return time.Time{}, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return at, nil
}
