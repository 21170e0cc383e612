package webui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teekay-ai/teekay/pkg/teekay/schedule"
	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	view := profileView(user)
	if conv, err := s.store.GetConversation(user.Conversation); err == nil {
		view["timezone"] = conv.Timezone
		view["onboarded"] = conv.Onboarded
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	var body struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name != "" {
		if err := s.store.SetUserName(user.ID, body.Name); err != nil {
			s.internalError(w, "updating name", err)
			return
		}
	}
	if body.Timezone != "" {
		if !schedule.KnownTimezone(body.Timezone) {
			writeError(w, http.StatusBadRequest, "unknown timezone")
			return
		}
		if err := s.store.SetConversationTimezone(user.Conversation, body.Timezone); err != nil {
			s.internalError(w, "updating timezone", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	messages, err := s.store.RecentMessages(user.Conversation, limit)
	if err != nil {
		s.internalError(w, "listing messages", err)
		return
	}
	out := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageView(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

func messageView(m *store.Message) map[string]any {
	view := map[string]any{
		"id":         m.ID,
		"text":       m.Text,
		"sender":     m.Sender,
		"from_agent": m.FromAgent,
		"sent_at":    m.SentAt.Format(time.RFC3339),
	}
	if m.Edited {
		view["edited"] = true
	}
	if len(m.Reactions) > 0 {
		view["reactions"] = m.Reactions
	}
	if len(m.Attachments) > 0 {
		view["attachments"] = m.Attachments
	}
	return view
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	memories, err := s.store.ListMemories(user.Conversation)
	if err != nil {
		s.internalError(w, "listing memories", err)
		return
	}
	out := make([]map[string]any, 0, len(memories))
	for _, m := range memories {
		out = append(out, map[string]any{
			"id":         m.ID,
			"content":    m.Content,
			"created_at": m.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": out})
}

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	id, err := s.store.SaveMemory(user.Conversation, body.Content)
	if err != nil {
		s.internalError(w, "saving memory", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	id, ok := s.ownedMemory(w, r)
	if !ok {
		return
	}
	if err := s.store.EditMemory(id, body.Content); err != nil {
		s.storeError(w, "updating memory", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownedMemory(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteMemory(id); err != nil {
		s.storeError(w, "deleting memory", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	activeOnly := r.URL.Query().Get("all") == ""
	tasks, err := s.store.ListTasksWithReminders(user.Conversation, activeOnly)
	if err != nil {
		s.internalError(w, "listing tasks", err)
		return
	}
	out := make([]map[string]any, 0, len(tasks))
	for _, tw := range tasks {
		out = append(out, taskView(tw))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func taskView(tw *store.TaskWithReminders) map[string]any {
	view := map[string]any{
		"id":     tw.Task.ID,
		"title":  tw.Task.Title,
		"type":   tw.Task.Type,
		"status": tw.Task.Status,
	}
	if tw.Task.Description != "" {
		view["description"] = tw.Task.Description
	}
	if !tw.Task.DueAt.IsZero() {
		view["due_at"] = tw.Task.DueAt.Format(time.RFC3339)
	}
	if !tw.Task.EventAt.IsZero() {
		view["event_at"] = tw.Task.EventAt.Format(time.RFC3339)
	}
	reminders := make([]map[string]any, 0, len(tw.Reminders))
	for _, rem := range tw.Reminders {
		reminders = append(reminders, reminderView(rem))
	}
	view["reminders"] = reminders
	return view
}

func reminderView(rem *store.Reminder) map[string]any {
	view := map[string]any{
		"id":      rem.ID,
		"kind":    rem.Kind,
		"status":  rem.Status,
		"purpose": rem.Purpose,
	}
	if !rem.TriggerAt.IsZero() {
		view["trigger_at"] = rem.TriggerAt.Format(time.RFC3339)
	}
	if rem.CronSchedule != "" {
		view["cron_schedule"] = rem.CronSchedule
		view["timezone"] = rem.Timezone
	}
	if !rem.NextTriggerAt.IsZero() {
		view["next_trigger_at"] = rem.NextTriggerAt.Format(time.RFC3339)
	}
	return view
}

type taskBody struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Description string `json:"description"`
	DueAt       string `json:"due_at"`
	EventAt     string `json:"event_at"`
	Status      string `json:"status"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	var body taskBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	task := &store.Task{
		Conversation: user.Conversation,
		Title:        body.Title,
		Type:         body.Type,
		Description:  body.Description,
	}
	var err error
	if task.DueAt, err = parseBodyTime(body.DueAt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid due_at")
		return
	}
	if task.EventAt, err = parseBodyTime(body.EventAt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event_at")
		return
	}
	id, err := s.store.CreateTask(task)
	if err != nil {
		s.internalError(w, "creating task", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var body taskBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var patch store.TaskPatch
	if body.Title != "" {
		patch.Title = &body.Title
	}
	if body.Description != "" {
		patch.Description = &body.Description
	}
	if body.Status != "" {
		patch.Status = &body.Status
	}
	if body.DueAt != "" {
		at, err := parseBodyTime(body.DueAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid due_at")
			return
		}
		patch.DueAt = &at
	}
	if body.EventAt != "" {
		at, err := parseBodyTime(body.EventAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid event_at")
			return
		}
		patch.EventAt = &at
	}
	id, ok := s.ownedTask(w, r)
	if !ok {
		return
	}
	if _, err := s.schedule.UpdateTask(id, patch); err != nil {
		s.storeError(w, "updating task", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownedTask(w, r)
	if !ok {
		return
	}
	if err := s.schedule.DeleteTask(id); err != nil {
		s.storeError(w, "deleting task", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	var body struct {
		Kind         string `json:"kind"`
		TriggerAt    string `json:"trigger_at"`
		CronSchedule string `json:"cron_schedule"`
		Purpose      string `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	taskID, ok := s.ownedTask(w, r)
	if !ok {
		return
	}
	params := schedule.AddReminderParams{
		TaskID:       taskID,
		Conversation: user.Conversation,
		Kind:         body.Kind,
		CronSchedule: body.CronSchedule,
		Purpose:      body.Purpose,
	}
	var err error
	if params.TriggerAt, err = parseBodyTime(body.TriggerAt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid trigger_at")
		return
	}
	rem, err := s.schedule.AddReminder(params)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		if errors.Is(err, schedule.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.internalError(w, "adding reminder", err)
		return
	}
	writeJSON(w, http.StatusCreated, reminderView(rem))
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TriggerAt    string `json:"trigger_at"`
		CronSchedule string `json:"cron_schedule"`
		Purpose      string `json:"purpose"`
		Cancel       bool   `json:"cancel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var patch schedule.ReminderPatch
	if body.Purpose != "" {
		patch.Purpose = &body.Purpose
	}
	if body.CronSchedule != "" {
		patch.CronSchedule = &body.CronSchedule
	}
	if body.TriggerAt != "" {
		at, err := parseBodyTime(body.TriggerAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid trigger_at")
			return
		}
		patch.TriggerAt = &at
	}
	patch.Cancel = body.Cancel
	id, ok := s.ownedReminder(w, r)
	if !ok {
		return
	}
	if err := s.schedule.UpdateReminder(id, patch); err != nil {
		if errors.Is(err, schedule.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.storeError(w, "updating reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownedReminder(w, r)
	if !ok {
		return
	}
	if err := s.schedule.DeleteReminder(id); err != nil {
		s.storeError(w, "deleting reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ownership checks for id-addressed mutations. Records belonging to
// another conversation answer 404 the same as missing ones, so ids do
// not leak across users.

func (s *Server) ownedMemory(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	mem, err := s.store.GetMemory(id)
	if err != nil {
		s.storeError(w, "looking up memory", err)
		return "", false
	}
	if mem.Conversation != requestUser(r).Conversation {
		writeError(w, http.StatusNotFound, "not found")
		return "", false
	}
	return id, true
}

func (s *Server) ownedTask(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	task, err := s.store.GetTask(id)
	if err != nil {
		s.storeError(w, "looking up task", err)
		return "", false
	}
	if task.Conversation != requestUser(r).Conversation {
		writeError(w, http.StatusNotFound, "not found")
		return "", false
	}
	return id, true
}

func (s *Server) ownedReminder(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	rem, err := s.store.GetReminder(id)
	if err != nil {
		s.storeError(w, "looking up reminder", err)
		return "", false
	}
	if rem.Conversation != requestUser(r).Conversation {
		writeError(w, http.StatusNotFound, "not found")
		return "", false
	}
	return id, true
}

func parseBodyTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// storeError maps ErrNotFound to 404 and everything else to 500.
func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.internalError(w, op, err)
}
