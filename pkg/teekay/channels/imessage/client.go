// Package imessage implements the channels.Channel interface against an
// iMessage/RCS partner API, plus the webhook receiver for its events.
package imessage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/teekay-ai/teekay/pkg/teekay/channels"
)

// Config holds the partner API connection settings.
type Config struct {
	// BaseURL is the partner API root, e.g. "https://api.example.com/api/partner/v2".
	BaseURL string `yaml:"base_url"`
	// Token authenticates outbound API calls.
	Token string `yaml:"token"`
	// WebhookSecret signs inbound webhook payloads.
	WebhookSecret string `yaml:"webhook_secret"`
	// SelfPhone is the assistant's own phone number.
	SelfPhone string `yaml:"self_phone"`
	// TimeoutSeconds bounds each outbound API call. Default 15.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Client talks to the partner API. Every method maps to one HTTP call;
// there are no retries, callers treat failures as best-effort.
type Client struct {
	config Config
	http   *http.Client
	log    *slog.Logger
}

// NewClient creates a partner API client.
func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: timeout},
		log:    logger.With("component", "imessage"),
	}
}

// Name returns the channel identifier.
func (c *Client) Name() string { return "imessage" }

// SendText sends a plain text message to the conversation.
func (c *Client) SendText(ctx context.Context, conversation, text string) error {
	body := map[string]any{"message": map[string]any{"text": text}}
	return c.call(ctx, http.MethodPost,
		fmt.Sprintf("/chats/%s/chat_messages", url.PathEscape(conversation)), body)
}

// SendAttachment sends a message with a hosted attachment URL. The
// partner API takes attachments as multipart form data.
func (c *Client) SendAttachment(ctx context.Context, conversation, attachmentURL string) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("message[text]", ""); err != nil {
		return err
	}
	if err := form.WriteField("message[attachment_urls][]", attachmentURL); err != nil {
		return err
	}
	if err := form.Close(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/chats/%s/chat_messages", c.config.BaseURL, url.PathEscape(conversation))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("X-Integration-Token", c.config.Token)
	req.Header.Set("Content-Type", form.FormDataContentType())

	return c.do(req)
}

// EditMessage rewrites a previously sent message.
func (c *Client) EditMessage(ctx context.Context, conversation, messageID, text string) error {
	return c.call(ctx, http.MethodPost,
		fmt.Sprintf("/chats/%s/chat_messages/%s/edit", url.PathEscape(conversation), url.PathEscape(messageID)),
		map[string]any{"text": text})
}

// DeleteMessage unsends a previously sent message.
func (c *Client) DeleteMessage(ctx context.Context, conversation, messageID string) error {
	return c.call(ctx, http.MethodDelete,
		fmt.Sprintf("/chats/%s/chat_messages/%s", url.PathEscape(conversation), url.PathEscape(messageID)), nil)
}

// React adds or removes a tapback on a message.
func (c *Client) React(ctx context.Context, messageID, reaction, operation string) error {
	if !channels.ValidReaction(reaction) {
		return channels.ErrInvalidReaction
	}
	return c.call(ctx, http.MethodPost,
		fmt.Sprintf("/chat_messages/%s/reactions", url.PathEscape(messageID)),
		map[string]any{"type": reaction, "operation": operation})
}

// MarkRead sends a read receipt for the conversation.
func (c *Client) MarkRead(ctx context.Context, conversation string) error {
	return c.call(ctx, http.MethodPut,
		fmt.Sprintf("/chats/%s/mark_as_read", url.PathEscape(conversation)), nil)
}

// StartTyping shows the typing indicator.
func (c *Client) StartTyping(ctx context.Context, conversation string) error {
	return c.call(ctx, http.MethodPost,
		fmt.Sprintf("/chats/%s/start_typing", url.PathEscape(conversation)), nil)
}

// StopTyping hides the typing indicator.
func (c *Client) StopTyping(ctx context.Context, conversation string) error {
	return c.call(ctx, http.MethodPost,
		fmt.Sprintf("/chats/%s/stop_typing", url.PathEscape(conversation)), nil)
}

func (c *Client) call(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-Integration-Token", c.config.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", channels.ErrSendFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s %s returned %d", channels.ErrSendFailed,
			req.Method, req.URL.Path, resp.StatusCode)
	}
	return nil
}

var _ channels.Channel = (*Client)(nil)
