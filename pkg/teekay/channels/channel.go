// Package channels defines the interfaces and types for messaging
// transports. A channel sends outbound side effects (messages, typing,
// read receipts, reactions) and surfaces verified inbound events to a
// sink. All outbound calls are best-effort: callers log failures and move
// on rather than blocking state transitions on platform availability.
package channels

import (
	"context"
	"fmt"
	"time"
)

// Reaction (tapback) types supported by the platform.
const (
	ReactionLove      = "love"
	ReactionLike      = "like"
	ReactionDislike   = "dislike"
	ReactionLaugh     = "laugh"
	ReactionEmphasize = "emphasize"
	ReactionQuestion  = "question"
)

// Reaction operations.
const (
	ReactionAdd    = "add"
	ReactionRemove = "remove"
)

// ValidReaction reports whether the reaction type is one the platform
// accepts.
func ValidReaction(reaction string) bool {
	switch reaction {
	case ReactionLove, ReactionLike, ReactionDislike,
		ReactionLaugh, ReactionEmphasize, ReactionQuestion:
		return true
	}
	return false
}

// Channel is the outbound transport surface the agent and webhook rely on.
type Channel interface {
	// Name returns the channel identifier (e.g. "imessage").
	Name() string

	// SendText sends a plain text message to the conversation.
	SendText(ctx context.Context, conversation, text string) error

	// SendAttachment sends a message carrying a hosted attachment URL,
	// used for the contact card.
	SendAttachment(ctx context.Context, conversation, url string) error

	// EditMessage rewrites a previously sent message.
	EditMessage(ctx context.Context, conversation, messageID, text string) error

	// DeleteMessage unsends a previously sent message.
	DeleteMessage(ctx context.Context, conversation, messageID string) error

	// React adds or removes a tapback on a message.
	React(ctx context.Context, messageID, reaction, operation string) error

	// MarkRead sends a read receipt for the conversation.
	MarkRead(ctx context.Context, conversation string) error

	// StartTyping shows the typing indicator to the counterpart.
	StartTyping(ctx context.Context, conversation string) error

	// StopTyping hides the typing indicator.
	StopTyping(ctx context.Context, conversation string) error
}

// Participant is one handle on a conversation.
type Participant struct {
	Identifier  string
	DisplayName string
	IsMe        bool
}

// MessageEvent is a verified inbound or echoed outbound message.
type MessageEvent struct {
	Conversation string
	ExternalID   string
	Text         string
	SentAt       time.Time
	Sender       string
	FromAgent    bool
	Read         bool
	Service      string
	Participants []Participant
	Attachments  []AttachmentEvent
}

// AttachmentEvent is a media item on an inbound message.
type AttachmentEvent struct {
	ID       string
	URL      string
	Filename string
	MimeType string
}

// ReactionEvent is a tapback added or removed on a stored message.
type ReactionEvent struct {
	Conversation string
	MessageID    string
	ReactionID   string
	Reaction     string
	FromAgent    bool
	Sender       string
	Removed      bool
}

// Sink consumes verified events from a channel's webhook. The sink owns
// all persistence and spawn policy; the webhook only parses and verifies.
type Sink interface {
	HandleMessage(ctx context.Context, ev *MessageEvent) error
	HandleReaction(ctx context.Context, ev *ReactionEvent) error
}

// Errors.
var (
	ErrSendFailed       = fmt.Errorf("failed to send message")
	ErrInvalidReaction  = fmt.Errorf("invalid reaction type")
	ErrInvalidSignature = fmt.Errorf("invalid webhook signature")
)
