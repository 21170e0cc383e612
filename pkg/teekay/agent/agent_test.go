package agent

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/teekay-ai/teekay/pkg/teekay/channels"
	"github.com/teekay-ai/teekay/pkg/teekay/schedule"
	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

// fakeChannel records outbound calls and never fails unless told to.
type fakeChannel struct {
	mu        sync.Mutex
	sent      []string
	edits     []string
	deletes   []string
	reactions []string
	marksRead int
	typing    int
}

func (f *fakeChannel) Name() string { return "fake" }

func (f *fakeChannel) SendText(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeChannel) SendAttachment(_ context.Context, _, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, "attachment:"+url)
	return nil
}

func (f *fakeChannel) EditMessage(_ context.Context, _, messageID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, messageID+":"+text)
	return nil
}

func (f *fakeChannel) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, messageID)
	return nil
}

func (f *fakeChannel) React(_ context.Context, messageID, reaction, operation string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, messageID+":"+reaction+":"+operation)
	return nil
}

func (f *fakeChannel) MarkRead(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marksRead++
	return nil
}

func (f *fakeChannel) StartTyping(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeChannel) StopTyping(_ context.Context, _ string) error { return nil }

func (f *fakeChannel) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeChannel) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marksRead
}

// fakeRuntime signals each Run call and delegates to an optional hook.
type fakeRuntime struct {
	mu   sync.Mutex
	runs []*RunRequest
	ran  chan *RunRequest
	hook func(req *RunRequest) error
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{ran: make(chan *RunRequest, 8)}
}

func (f *fakeRuntime) OpenThread(_ context.Context, _ string) (string, error) {
	return "thread-1", nil
}

func (f *fakeRuntime) Run(_ context.Context, req *RunRequest) (string, error) {
	f.mu.Lock()
	f.runs = append(f.runs, req)
	hook := f.hook
	f.mu.Unlock()
	var err error
	if hook != nil {
		err = hook(req)
	}
	f.ran <- req
	return "done", err
}

func (f *fakeRuntime) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

func (f *fakeRuntime) waitRun(t *testing.T) *RunRequest {
	t.Helper()
	select {
	case req := <-f.ran:
		return req
	case <-time.After(5 * time.Second):
		t.Fatalf("runtime never ran")
		return nil
	}
}

func (f *fakeRuntime) expectNoRun(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case <-f.ran:
		t.Fatalf("runtime ran, expected no session")
	case <-time.After(wait):
	}
}

type fixture struct {
	store   *store.Store
	channel *fakeChannel
	runtime *fakeRuntime
	timers  *schedule.Timers
	svc     *schedule.Service
	tracker *Tracker
	runner  *Runner
	coord   *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "teekay.db")})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	channel := &fakeChannel{}
	runtime := newFakeRuntime()
	timers := schedule.NewTimers()
	t.Cleanup(timers.StopAll)
	svc := schedule.NewService(st, timers, logger)
	tracker := NewTracker(st, logger)

	// Zero spawn delay and instant sleeps keep the tests fast.
	cfg := Config{TypingMinMillis: 1, TypingMaxMillis: 2, DashboardURL: "http://dash.test"}
	toolbox := NewToolbox(st, channel, svc, cfg, logger)
	toolbox.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	runner := NewRunner(st, channel, svc, runtime, tracker, toolbox, logger)
	coord := NewCoordinator(st, channel, svc, timers, tracker, runner, cfg, logger)
	svc.Spawn = coord.OnRemindersDue

	return &fixture{
		store:   st,
		channel: channel,
		runtime: runtime,
		timers:  timers,
		svc:     svc,
		tracker: tracker,
		runner:  runner,
		coord:   coord,
	}
}

func inboundEvent(conversation, externalID, text string) *channels.MessageEvent {
	return &channels.MessageEvent{
		Conversation: conversation,
		ExternalID:   externalID,
		Text:         text,
		SentAt:       time.Now(),
		Sender:       "+15550001111",
		Service:      store.ServiceIMessage,
		Participants: []channels.Participant{
			{Identifier: "+15550001111"},
			{Identifier: "+15550009999", IsMe: true},
		},
	}
}

func seedTaskWithReminder(t *testing.T, f *fixture, conversation, status string) (taskID, reminderID string) {
	t.Helper()
	if _, err := f.store.GetOrCreateConversation(conversation, "+15550001111", "", store.ServiceIMessage); err != nil {
		t.Fatalf("seeding conversation: %v", err)
	}
	taskID, err := f.store.CreateTask(&store.Task{
		Conversation: conversation,
		Title:        "physics homework",
		Type:         store.TaskTypeHomework,
	})
	if err != nil {
		t.Fatalf("seeding task: %v", err)
	}
	reminderID, err = f.store.AddReminder(&store.Reminder{
		TaskID:       taskID,
		Conversation: conversation,
		Kind:         store.ReminderOneTime,
		TriggerAt:    time.Now().Add(-time.Minute),
		Purpose:      "finish problem set",
	})
	if err != nil {
		t.Fatalf("seeding reminder: %v", err)
	}
	if status == store.ReminderPendingTrigger {
		if err := f.store.MarkPendingTrigger(reminderID); err != nil {
			t.Fatalf("marking pending_trigger: %v", err)
		}
	}
	return taskID, reminderID
}
