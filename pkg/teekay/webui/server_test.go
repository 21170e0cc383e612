package webui

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/teekay-ai/teekay/pkg/teekay/schedule"
	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

type fixture struct {
	store  *store.Store
	server *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "teekay.db")})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	timers := schedule.NewTimers()
	t.Cleanup(timers.StopAll)
	svc := schedule.NewService(st, timers, logger)

	return &fixture{
		store:  st,
		server: NewServer(st, svc, Config{}, logger),
	}
}

// login seeds a conversation and magic link and exchanges it for a
// session token.
func (f *fixture) login(t *testing.T) string {
	t.Helper()
	if _, err := f.store.GetOrCreateConversation("chat-1", "+15550001111", "Dana", store.ServiceIMessage); err != nil {
		t.Fatalf("seeding conversation: %v", err)
	}
	if _, err := f.store.CreateMagicLink("+15550001111", "chat-1", "magic-token-1", 5*time.Minute); err != nil {
		t.Fatalf("seeding magic link: %v", err)
	}

	rec := f.do(t, "", http.MethodPost, "/api/auth/verify", map[string]any{"token": "magic-token-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("verify returned %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding verify response: %v", err)
	}
	if out.Token == "" {
		t.Fatalf("verify returned no session token")
	}
	return out.Token
}

func (f *fixture) do(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(rec, req)
	return rec
}

func TestVerifyInvalidToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodPost, "/api/auth/verify", map[string]any{"token": "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMagicLinkSingleUse(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	rec := f.do(t, "", http.MethodPost, "/api/auth/verify", map[string]any{"token": "magic-token-1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("second use returned %d, want 401", rec.Code)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodGet, "/api/messages", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	rec = f.do(t, "garbage-token", http.MethodGet, "/api/tasks", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthStatus(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "", http.MethodGet, "/api/auth/status", nil)
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if out["authenticated"] != false {
		t.Fatalf("expected unauthenticated, got %v", out)
	}

	token := f.login(t)
	rec = f.do(t, token, http.MethodGet, "/api/auth/status", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if out["authenticated"] != true {
		t.Fatalf("expected authenticated, got %v", out)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	rec := f.do(t, token, http.MethodPost, "/api/auth/logout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout returned %d", rec.Code)
	}
	rec = f.do(t, token, http.MethodGet, "/api/messages", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("session survived logout: %d", rec.Code)
	}
}

func TestListMessagesScopedToUser(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	for _, key := range []string{"chat-1", "chat-2"} {
		if _, err := f.store.GetOrCreateConversation(key, "+1555", "", store.ServiceIMessage); err != nil {
			t.Fatalf("seeding conversation: %v", err)
		}
		if _, err := f.store.UpsertMessage(&store.Message{
			Conversation: key,
			Text:         "hello from " + key,
			SentAt:       time.Now(),
			Sender:       "+1555",
		}); err != nil {
			t.Fatalf("seeding message: %v", err)
		}
	}

	rec := f.do(t, token, http.MethodGet, "/api/messages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Messages []map[string]any `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(out.Messages) != 1 || out.Messages[0]["text"] != "hello from chat-1" {
		t.Fatalf("messages leaked across conversations: %v", out.Messages)
	}
}

func TestMemoryCRUD(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	rec := f.do(t, token, http.MethodPost, "/api/memories", map[string]any{"content": "likes hiking"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	rec = f.do(t, token, http.MethodPut, "/api/memories/"+created.ID, map[string]any{"content": "likes trail running"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d", rec.Code)
	}

	rec = f.do(t, token, http.MethodGet, "/api/memories", nil)
	var listed struct {
		Memories []map[string]any `json:"memories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(listed.Memories) != 1 || listed.Memories[0]["content"] != "likes trail running" {
		t.Fatalf("memories = %v", listed.Memories)
	}

	rec = f.do(t, token, http.MethodDelete, "/api/memories/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d", rec.Code)
	}
	rec = f.do(t, token, http.MethodDelete, "/api/memories/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete returned %d, want 404", rec.Code)
	}
}

func TestTaskAndReminderEndpoints(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	rec := f.do(t, token, http.MethodPost, "/api/tasks", map[string]any{
		"title": "book flights",
		"type":  store.TaskTypeTodo,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task returned %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	rec = f.do(t, token, http.MethodPost, "/api/tasks/"+created.ID+"/reminders", map[string]any{
		"kind":       store.ReminderOneTime,
		"trigger_at": time.Now().Add(time.Hour).Format(time.RFC3339),
		"purpose":    "check prices",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create reminder returned %d: %s", rec.Code, rec.Body.String())
	}

	// A recurring reminder without a schedule is a validation error.
	rec = f.do(t, token, http.MethodPost, "/api/tasks/"+created.ID+"/reminders", map[string]any{
		"kind":    store.ReminderRecurring,
		"purpose": "nag",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid reminder returned %d, want 400", rec.Code)
	}

	rec = f.do(t, token, http.MethodGet, "/api/tasks", nil)
	var listed struct {
		Tasks []struct {
			Title     string           `json:"title"`
			Reminders []map[string]any `json:"reminders"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(listed.Tasks) != 1 || len(listed.Tasks[0].Reminders) != 1 {
		t.Fatalf("tasks = %+v", listed.Tasks)
	}

	rec = f.do(t, token, http.MethodPut, "/api/tasks/"+created.ID, map[string]any{"status": store.TaskCompleted})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete task returned %d", rec.Code)
	}
	rec = f.do(t, token, http.MethodGet, "/api/tasks", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(listed.Tasks) != 0 {
		t.Fatalf("completed task still listed as active: %+v", listed.Tasks)
	}

	rec = f.do(t, token, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete task returned %d", rec.Code)
	}
	rec = f.do(t, token, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete returned %d, want 404", rec.Code)
	}
}

func TestMutationsScopedToOwner(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	// Seed another user's records directly.
	if _, err := f.store.GetOrCreateConversation("chat-2", "+15550002222", "", store.ServiceIMessage); err != nil {
		t.Fatalf("seeding conversation: %v", err)
	}
	memoryID, err := f.store.SaveMemory("chat-2", "their secret")
	if err != nil {
		t.Fatalf("seeding memory: %v", err)
	}
	taskID, err := f.store.CreateTask(&store.Task{Conversation: "chat-2", Title: "their task", Type: store.TaskTypeTodo})
	if err != nil {
		t.Fatalf("seeding task: %v", err)
	}
	reminderID, err := f.store.AddReminder(&store.Reminder{
		TaskID:       taskID,
		Conversation: "chat-2",
		Kind:         store.ReminderOneTime,
		TriggerAt:    time.Now().Add(time.Hour),
		Purpose:      "their reminder",
	})
	if err != nil {
		t.Fatalf("seeding reminder: %v", err)
	}

	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, "/api/memories/" + memoryID, map[string]any{"content": "overwritten"}},
		{http.MethodDelete, "/api/memories/" + memoryID, nil},
		{http.MethodPut, "/api/tasks/" + taskID, map[string]any{"title": "hijacked"}},
		{http.MethodDelete, "/api/tasks/" + taskID, nil},
		{http.MethodPost, "/api/tasks/" + taskID + "/reminders", map[string]any{
			"kind":       store.ReminderOneTime,
			"trigger_at": time.Now().Add(time.Hour).Format(time.RFC3339),
		}},
		{http.MethodPut, "/api/reminders/" + reminderID, map[string]any{"purpose": "hijacked"}},
		{http.MethodDelete, "/api/reminders/" + reminderID, nil},
	} {
		rec := f.do(t, token, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s returned %d, want 404", tc.method, tc.path, rec.Code)
		}
	}

	// Nothing was mutated.
	if mem, err := f.store.GetMemory(memoryID); err != nil || mem.Content != "their secret" {
		t.Fatalf("foreign memory mutated: %v %v", mem, err)
	}
	if task, err := f.store.GetTask(taskID); err != nil || task.Title != "their task" {
		t.Fatalf("foreign task mutated: %v %v", task, err)
	}
	if rem, err := f.store.GetReminder(reminderID); err != nil || rem.Purpose != "their reminder" {
		t.Fatalf("foreign reminder mutated: %v %v", rem, err)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	rec := f.do(t, token, http.MethodPut, "/api/me", map[string]any{
		"name":     "Dana",
		"timezone": "America/Denver",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, token, http.MethodGet, "/api/me", nil)
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if out["name"] != "Dana" || out["timezone"] != "America/Denver" {
		t.Fatalf("profile = %v", out)
	}

	rec = f.do(t, token, http.MethodPut, "/api/me", map[string]any{"timezone": "Nowhere/Zone"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown timezone returned %d, want 400", rec.Code)
	}
}
