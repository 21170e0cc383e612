package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/teekay-ai/teekay/pkg/teekay/channels"
	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

func TestHandleMessageStoresAndSpawns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev := inboundEvent("chat-1", "msg-1", "hey whats up")
	if err := f.coord.HandleMessage(ctx, ev); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	req := f.runtime.waitRun(t)
	if !strings.Contains(req.Instruction, "hey whats up") {
		t.Errorf("instruction missing message text: %q", req.Instruction)
	}
	if !req.Tools.Has("send_message") {
		t.Errorf("session tools missing send_message")
	}

	messages, err := f.store.RecentMessages("chat-1", 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(messages) != 1 || messages[0].Text != "hey whats up" {
		t.Fatalf("message not persisted, got %d", len(messages))
	}
}

func TestHandleMessageGroupIgnored(t *testing.T) {
	f := newFixture(t)

	ev := inboundEvent("group-1", "msg-1", "yo everyone")
	ev.Participants = append(ev.Participants, channels.Participant{Identifier: "+15550002222"})

	if err := f.coord.HandleMessage(context.Background(), ev); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	f.runtime.expectNoRun(t, 100*time.Millisecond)

	if _, err := f.store.GetConversation("group-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("group conversation was persisted: %v", err)
	}
}

func TestHandleMessageSMSIgnored(t *testing.T) {
	f := newFixture(t)

	ev := inboundEvent("sms-1", "msg-1", "hello")
	ev.Service = store.ServiceSMS
	if err := f.coord.HandleMessage(context.Background(), ev); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	f.runtime.expectNoRun(t, 100*time.Millisecond)

	if _, err := f.store.GetConversation("sms-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("sms conversation was persisted: %v", err)
	}
	messages, err := f.store.RecentMessages("sms-1", 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("sms message was persisted, got %d", len(messages))
	}
}

func TestHandleMessageEchoStoredNotSpawned(t *testing.T) {
	f := newFixture(t)

	ev := inboundEvent("chat-1", "msg-1", "i sent this")
	ev.FromAgent = true
	if err := f.coord.HandleMessage(context.Background(), ev); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	f.runtime.expectNoRun(t, 100*time.Millisecond)

	messages, err := f.store.RecentMessages("chat-1", 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(messages) != 1 || !messages[0].FromAgent {
		t.Fatalf("echo not stored as agent message")
	}
}

func TestHandleMessageActiveSessionReadsOnly(t *testing.T) {
	f := newFixture(t)

	if _, err := f.store.ClaimAgent("chat-1", "session-x"); err != nil {
		t.Fatalf("ClaimAgent: %v", err)
	}
	if err := f.coord.HandleMessage(context.Background(), inboundEvent("chat-1", "msg-1", "you there?")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	f.runtime.expectNoRun(t, 100*time.Millisecond)

	if f.channel.readCount() != 1 {
		t.Errorf("expected a read receipt, got %d", f.channel.readCount())
	}
}

func TestScheduleSpawnRechecksActivity(t *testing.T) {
	f := newFixture(t)
	f.coord.Config.SpawnDelaySeconds = 1

	if err := f.coord.HandleMessage(context.Background(), inboundEvent("chat-1", "msg-1", "hi")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	// Another session claims the conversation before the debounce fires.
	if _, err := f.store.ClaimAgent("chat-1", "session-x"); err != nil {
		t.Fatalf("ClaimAgent: %v", err)
	}
	f.runtime.expectNoRun(t, 1500*time.Millisecond)
}

func TestHandleReaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev := inboundEvent("chat-1", "msg-1", "check this out")
	ev.FromAgent = true
	if err := f.coord.HandleMessage(ctx, ev); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	err := f.coord.HandleReaction(ctx, &channels.ReactionEvent{
		Conversation: "chat-1",
		MessageID:    "msg-1",
		ReactionID:   "react-1",
		Reaction:     channels.ReactionLove,
		Sender:       "+15550001111",
	})
	if err != nil {
		t.Fatalf("HandleReaction: %v", err)
	}

	msg, err := f.store.GetMessageByExternalID("chat-1", "msg-1")
	if err != nil {
		t.Fatalf("GetMessageByExternalID: %v", err)
	}
	if len(msg.Reactions) != 1 || msg.Reactions[0].Type != channels.ReactionLove {
		t.Fatalf("reaction not recorded: %+v", msg.Reactions)
	}
}

func TestHandleReactionUnknownMessageIgnored(t *testing.T) {
	f := newFixture(t)
	err := f.coord.HandleReaction(context.Background(), &channels.ReactionEvent{
		Conversation: "chat-1",
		MessageID:    "never-stored",
		Reaction:     channels.ReactionLike,
	})
	if err != nil {
		t.Fatalf("unknown-message reaction should be dropped silently: %v", err)
	}
}

func TestOnRemindersDueSpawnsAndMarksTriggered(t *testing.T) {
	f := newFixture(t)
	_, reminderID := seedTaskWithReminder(t, f, "chat-1", store.ReminderPendingTrigger)

	f.coord.OnRemindersDue("chat-1")

	req := f.runtime.waitRun(t)
	if !strings.Contains(req.Instruction, "physics homework") {
		t.Errorf("reminder instruction missing task title: %q", req.Instruction)
	}
	if !strings.Contains(req.Instruction, "finish problem set") {
		t.Errorf("reminder instruction missing purpose: %q", req.Instruction)
	}

	rem, err := f.store.GetReminder(reminderID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if rem.Status != store.ReminderTriggered {
		t.Fatalf("reminder status = %q, want triggered", rem.Status)
	}
}

func TestOnRemindersDueActiveSessionDefersToSweep(t *testing.T) {
	f := newFixture(t)
	_, reminderID := seedTaskWithReminder(t, f, "chat-1", store.ReminderPendingTrigger)

	if _, err := f.store.ClaimAgent("chat-1", "session-x"); err != nil {
		t.Fatalf("ClaimAgent: %v", err)
	}
	f.coord.OnRemindersDue("chat-1")
	f.runtime.expectNoRun(t, 100*time.Millisecond)

	rem, err := f.store.GetReminder(reminderID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if rem.Status != store.ReminderPendingTrigger {
		t.Fatalf("reminder status = %q, want pending_trigger for the sweep", rem.Status)
	}
}
