package imessage

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teekay-ai/teekay/pkg/teekay/channels"
)

type stubSink struct {
	messages  []*channels.MessageEvent
	reactions []*channels.ReactionEvent
}

func (s *stubSink) HandleMessage(_ context.Context, ev *channels.MessageEvent) error {
	s.messages = append(s.messages, ev)
	return nil
}

func (s *stubSink) HandleReaction(_ context.Context, ev *channels.ReactionEvent) error {
	s.reactions = append(s.reactions, ev)
	return nil
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postEvent(t *testing.T, w *Webhook, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	rec := httptest.NewRecorder()
	w.Routes().ServeHTTP(rec, req)
	return rec
}

func TestWebhookSignature(t *testing.T) {
	sink := &stubSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWebhook("s3cret", sink, logger)

	payload := []byte(`{"event_id": "evt-1", "event_type": "message.read", "data": {"id": 7}}`)

	t.Run("missing signature", func(t *testing.T) {
		if rec := postEvent(t, w, payload, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong signature", func(t *testing.T) {
		if rec := postEvent(t, w, payload, sign("other-secret", payload)); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid signature", func(t *testing.T) {
		if rec := postEvent(t, w, payload, sign("s3cret", payload)); rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("sha256 prefix accepted", func(t *testing.T) {
		if rec := postEvent(t, w, payload, "sha256="+sign("s3cret", payload)); rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestWebhookMessageEvent(t *testing.T) {
	sink := &stubSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWebhook("s3cret", sink, logger)

	payload := []byte(`{
		"event_id": "evt-2",
		"event_type": "message.received",
		"data": {
			"id": 4711,
			"chat_id": "chat-1",
			"text": "hey, you around?",
			"sent_at": "2026-03-10T16:00:00Z",
			"from_phone": "+15551234567",
			"service": "iMessage",
			"chat_handles": [
				{"identifier": "+15551234567", "display_name": "Alex", "is_me": false},
				{"identifier": "+15559876543", "is_me": true}
			],
			"attachments": [{"id": "att-1", "url": "https://cdn.example.com/a.jpg", "mime_type": "image/jpeg"}]
		}
	}`)

	if rec := postEvent(t, w, payload, sign("s3cret", payload)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(sink.messages) != 1 {
		t.Fatalf("expected 1 message event, got %d", len(sink.messages))
	}

	ev := sink.messages[0]
	if ev.Conversation != "chat-1" || ev.ExternalID != "4711" {
		t.Errorf("unexpected identifiers: %+v", ev)
	}
	if ev.FromAgent {
		t.Error("message.received must not be from agent")
	}
	if ev.Service != "imessage" {
		t.Errorf("expected normalized service, got %q", ev.Service)
	}
	if len(ev.Participants) != 2 || ev.Participants[0].DisplayName != "Alex" {
		t.Errorf("unexpected participants: %+v", ev.Participants)
	}
	if len(ev.Attachments) != 1 || ev.Attachments[0].MimeType != "image/jpeg" {
		t.Errorf("unexpected attachments: %+v", ev.Attachments)
	}
}

func TestWebhookReactionEvent(t *testing.T) {
	sink := &stubSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWebhook("s3cret", sink, logger)

	payload := []byte(`{
		"event_id": "evt-3",
		"event_type": "reaction.received",
		"data": {
			"id": 99,
			"chat_id": "chat-1",
			"chat_message_id": 4711,
			"reaction": "love",
			"is_from_me": false,
			"chat_handle": {"identifier": "+15551234567"}
		}
	}`)

	if rec := postEvent(t, w, payload, sign("s3cret", payload)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(sink.reactions) != 1 {
		t.Fatalf("expected 1 reaction event, got %d", len(sink.reactions))
	}

	ev := sink.reactions[0]
	if ev.MessageID != "4711" || ev.Reaction != "love" || ev.Sender != "+15551234567" {
		t.Errorf("unexpected reaction event: %+v", ev)
	}
}

func TestClientCalls(t *testing.T) {
	type call struct {
		method, path, token string
		body                string
	}
	var calls []call
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, r.Header.Get("X-Integration-Token"), string(body)})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(Config{BaseURL: server.URL, Token: "tok"}, logger)
	ctx := context.Background()

	if err := client.SendText(ctx, "chat-1", "hello"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if err := client.MarkRead(ctx, "chat-1"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if err := client.React(ctx, "4711", "like", "add"); err != nil {
		t.Fatalf("React failed: %v", err)
	}
	if err := client.React(ctx, "4711", "sparkle", "add"); err != channels.ErrInvalidReaction {
		t.Errorf("expected ErrInvalidReaction, got %v", err)
	}

	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(calls))
	}
	if calls[0].method != http.MethodPost || calls[0].path != "/chats/chat-1/chat_messages" {
		t.Errorf("unexpected send call: %+v", calls[0])
	}
	if calls[0].token != "tok" {
		t.Errorf("expected token header, got %q", calls[0].token)
	}
	if calls[1].method != http.MethodPut || calls[1].path != "/chats/chat-1/mark_as_read" {
		t.Errorf("unexpected mark-read call: %+v", calls[1])
	}
	if calls[2].path != "/chat_messages/4711/reactions" {
		t.Errorf("unexpected react call: %+v", calls[2])
	}
}
