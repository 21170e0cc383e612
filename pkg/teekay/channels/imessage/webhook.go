package imessage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teekay-ai/teekay/pkg/teekay/channels"
)

// Webhook receives partner API events, verifies their signature and hands
// the parsed events to the sink. Policy (group/SMS blocking, persistence,
// spawn) lives entirely in the sink.
type Webhook struct {
	secret string
	sink   channels.Sink
	log    *slog.Logger
}

// NewWebhook creates the webhook receiver.
func NewWebhook(secret string, sink channels.Sink, logger *slog.Logger) *Webhook {
	return &Webhook{
		secret: secret,
		sink:   sink,
		log:    logger.With("component", "webhook"),
	}
}

// Routes returns the webhook's router, mounted by the server under
// /webhooks/imessage.
func (w *Webhook) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", w.handle)
	return r
}

// event envelope as delivered by the partner API.
type webhookEvent struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	CreatedAt string      `json:"created_at"`
	Data      webhookData `json:"data"`
}

type webhookData struct {
	ID          json.Number     `json:"id"`
	ChatID      string          `json:"chat_id"`
	Text        string          `json:"text"`
	SentAt      string          `json:"sent_at"`
	IsRead      bool            `json:"is_read"`
	FromPhone   string          `json:"from_phone"`
	Service     string          `json:"service"`
	ChatHandles []webhookHandle `json:"chat_handles"`
	Attachments []struct {
		ID       string `json:"id"`
		URL      string `json:"url"`
		Filename string `json:"filename"`
		MimeType string `json:"mime_type"`
	} `json:"attachments"`

	// Reaction events
	ChatMessageID json.Number `json:"chat_message_id"`
	Reaction      string      `json:"reaction"`
	IsFromMe      bool        `json:"is_from_me"`
	ChatHandle    *struct {
		Identifier string `json:"identifier"`
	} `json:"chat_handle"`
}

type webhookHandle struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
	IsMe        bool   `json:"is_me"`
}

func (w *Webhook) handle(rw http.ResponseWriter, req *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(rw, req.Body, 1<<20))
	if err != nil {
		http.Error(rw, `{"error": "read body"}`, http.StatusBadRequest)
		return
	}

	if !w.verifySignature(payload, req.Header.Get("X-Webhook-Signature")) {
		w.log.Warn("webhook signature rejected")
		http.Error(rw, `{"error": "invalid signature"}`, http.StatusUnauthorized)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		http.Error(rw, `{"error": "invalid payload"}`, http.StatusBadRequest)
		return
	}

	w.log.Info("webhook event", "event_id", event.EventID, "event_type", event.EventType)
	w.dispatch(req, &event)

	rw.Header().Set("Content-Type", "application/json")
	rw.Write([]byte(`{"received": true}`))
}

// dispatch routes one verified event. Sink errors are logged, never
// surfaced to the platform: the webhook always acknowledges so the
// platform does not redeliver.
func (w *Webhook) dispatch(req *http.Request, event *webhookEvent) {
	ctx := req.Context()

	switch event.EventType {
	case "message.received", "message.sent":
		if event.Data.ChatID == "" {
			return
		}
		ev := w.messageEvent(event)
		if err := w.sink.HandleMessage(ctx, ev); err != nil {
			w.log.Error("handle message event", "event_id", event.EventID, "error", err)
		}

	case "reaction.received", "reaction.sent":
		if event.Data.ChatID == "" || event.Data.ChatMessageID.String() == "" {
			return
		}
		sender := ""
		if event.Data.ChatHandle != nil {
			sender = event.Data.ChatHandle.Identifier
		}
		ev := &channels.ReactionEvent{
			Conversation: event.Data.ChatID,
			MessageID:    event.Data.ChatMessageID.String(),
			ReactionID:   event.Data.ID.String(),
			Reaction:     event.Data.Reaction,
			FromAgent:    event.Data.IsFromMe,
			Sender:       sender,
		}
		if err := w.sink.HandleReaction(ctx, ev); err != nil {
			w.log.Error("handle reaction event", "event_id", event.EventID, "error", err)
		}

	case "message.read":
		w.log.Info("message read", "message_id", event.Data.ID.String())

	default:
		w.log.Info("ignoring event type", "event_type", event.EventType)
	}
}

func (w *Webhook) messageEvent(event *webhookEvent) *channels.MessageEvent {
	ev := &channels.MessageEvent{
		Conversation: event.Data.ChatID,
		ExternalID:   event.Data.ID.String(),
		Text:         event.Data.Text,
		SentAt:       parseTimestamp(event.Data.SentAt),
		FromAgent:    event.EventType == "message.sent",
		Read:         event.Data.IsRead,
		Service:      normalizeService(event.Data.Service),
		Sender:       event.Data.FromPhone,
	}
	for _, h := range event.Data.ChatHandles {
		ev.Participants = append(ev.Participants, channels.Participant{
			Identifier:  h.Identifier,
			DisplayName: h.DisplayName,
			IsMe:        h.IsMe,
		})
	}
	for _, a := range event.Data.Attachments {
		ev.Attachments = append(ev.Attachments, channels.AttachmentEvent{
			ID:       a.ID,
			URL:      a.URL,
			Filename: a.Filename,
			MimeType: a.MimeType,
		})
	}
	return ev
}

// verifySignature checks the HMAC-SHA256 hex signature, with or without
// the "sha256=" prefix, in constant time.
func (w *Webhook) verifySignature(payload []byte, signature string) bool {
	if w.secret == "" || signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(w.secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now()
	}
	return t
}

// normalizeService lowercases the platform's service names ("iMessage",
// "SMS", "RCS"); an absent service is assumed to be iMessage.
func normalizeService(service string) string {
	if service == "" {
		return "imessage"
	}
	return strings.ToLower(service)
}
