package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teekay-ai/teekay/pkg/teekay/channels"
	"github.com/teekay-ai/teekay/pkg/teekay/schedule"
	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

// Coordinator is the spawn policy layer between the webhook and the
// session runner. It persists inbound events, decides whether a session
// should start, and debounces message-triggered spawns so a burst of
// texts starts one session.
type Coordinator struct {
	Store    *store.Store
	Channel  channels.Channel
	Schedule *schedule.Service
	Timers   *schedule.Timers
	Tracker  *Tracker
	Runner   *Runner
	Config   Config
	Log      *slog.Logger
}

// NewCoordinator wires the spawn policy layer.
func NewCoordinator(st *store.Store, ch channels.Channel, svc *schedule.Service, timers *schedule.Timers, tracker *Tracker, runner *Runner, cfg Config, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		Store:    st,
		Channel:  ch,
		Schedule: svc,
		Timers:   timers,
		Tracker:  tracker,
		Runner:   runner,
		Config:   cfg,
		Log:      logger.With("component", "coordinator"),
	}
}

var _ channels.Sink = (*Coordinator)(nil)

// HandleMessage persists an inbound or echoed message and, for inbound
// traffic, schedules a debounced session spawn. Group and SMS
// conversations are dropped before anything is persisted.
func (c *Coordinator) HandleMessage(ctx context.Context, ev *channels.MessageEvent) error {
	log := c.Log.With("conversation", ev.Conversation)

	if ev.Text == "" && len(ev.Attachments) == 0 {
		return nil
	}
	if isGroup(ev.Participants) {
		log.Debug("ignoring group conversation message")
		return nil
	}
	if ev.Service == store.ServiceSMS {
		log.Debug("ignoring sms conversation message")
		return nil
	}

	if _, err := c.Store.GetOrCreateConversation(ev.Conversation, ev.Sender, senderName(ev), ev.Service); err != nil {
		return fmt.Errorf("upserting conversation: %w", err)
	}
	msg := &store.Message{
		Conversation: ev.Conversation,
		ExternalID:   ev.ExternalID,
		Text:         ev.Text,
		SentAt:       ev.SentAt,
		Sender:       ev.Sender,
		FromAgent:    ev.FromAgent,
		Read:         ev.Read,
		Attachments:  attachments(ev),
	}
	if _, err := c.Store.UpsertMessage(msg); err != nil {
		return fmt.Errorf("storing message: %w", err)
	}

	// Echoes of our own sends are stored as backup only.
	if ev.FromAgent {
		return nil
	}

	if c.Tracker.IsActive(ev.Conversation) {
		// The running session polls get_messages; a read receipt is all
		// that is needed here.
		if err := c.Channel.MarkRead(ctx, ev.Conversation); err != nil {
			log.Warn("read receipt failed", "error", err)
		}
		return nil
	}

	c.scheduleSpawn(ev)
	return nil
}

// scheduleSpawn starts a session after the debounce delay, re-checking
// activity at fire time so a spawn scheduled before another session
// started does not double up.
func (c *Coordinator) scheduleSpawn(ev *channels.MessageEvent) {
	conversation := ev.Conversation
	event := fmt.Sprintf("from %s: %s", ev.Sender, ev.Text)
	delay := time.Duration(c.Config.SpawnDelaySeconds) * time.Second

	c.Timers.After(delay, func() {
		if c.Tracker.IsActive(conversation) {
			c.Log.Debug("session already active at spawn time", "conversation", conversation)
			return
		}
		go c.Runner.RunSession(context.Background(), conversation, &Trigger{
			Type:  TriggerMessage,
			Event: event,
		})
	})
}

// HandleReaction records a tapback on the referenced stored message.
// Reactions to messages we never stored are dropped.
func (c *Coordinator) HandleReaction(ctx context.Context, ev *channels.ReactionEvent) error {
	msg, err := c.Store.GetMessageByExternalID(ev.Conversation, ev.MessageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.Log.Debug("reaction for unknown message", "conversation", ev.Conversation, "message", ev.MessageID)
			return nil
		}
		return fmt.Errorf("looking up reacted message: %w", err)
	}
	return c.Store.UpsertReaction(msg.ID, store.Reaction{
		ID:        ev.ReactionID,
		Type:      ev.Reaction,
		Sender:    ev.Sender,
		FromAgent: ev.FromAgent,
		Removed:   ev.Removed,
	})
}

// OnRemindersDue starts a reminder-triggered session for the
// conversation. The schedule layer has already parked the due reminders
// in pending_trigger; an active session picks them up in its sweep
// instead of a new spawn.
func (c *Coordinator) OnRemindersDue(conversation string) {
	log := c.Log.With("conversation", conversation)

	if c.Tracker.IsActive(conversation) {
		log.Debug("session active, reminders left for sweep")
		return
	}
	pending, err := c.Store.PendingTriggerReminders(conversation)
	if err != nil {
		log.Error("fetching due reminders failed", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	due := BuildDueReminders(c.Store, pending, log)
	c.Schedule.MarkTriggered(pending)

	log.Info("spawning reminder session", "reminders", len(pending))
	go c.Runner.RunSession(context.Background(), conversation, &Trigger{
		Type:      TriggerReminder,
		Reminders: due,
	})
}

// isGroup reports whether more than one participant besides us is on the
// conversation.
func isGroup(participants []channels.Participant) bool {
	others := 0
	for _, p := range participants {
		if !p.IsMe {
			others++
		}
	}
	return others > 1
}

func senderName(ev *channels.MessageEvent) string {
	for _, p := range ev.Participants {
		if p.Identifier == ev.Sender && p.DisplayName != "" {
			return p.DisplayName
		}
	}
	return ""
}

func attachments(ev *channels.MessageEvent) []store.Attachment {
	if len(ev.Attachments) == 0 {
		return nil
	}
	out := make([]store.Attachment, 0, len(ev.Attachments))
	for _, a := range ev.Attachments {
		out = append(out, store.Attachment{
			URL:      a.URL,
			Name:     a.Filename,
			MimeType: a.MimeType,
		})
	}
	return out
}
