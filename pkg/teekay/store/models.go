package store

import "time"

// Task types.
const (
	TaskTypeTodo     = "todo"
	TaskTypeHomework = "homework"
	TaskTypeEvent    = "event"
	TaskTypeReminder = "reminder"
)

// Task statuses.
const (
	TaskActive    = "active"
	TaskCompleted = "completed"
	TaskCancelled = "cancelled"
)

// Reminder kinds.
const (
	ReminderOneTime   = "one_time"
	ReminderRecurring = "recurring"
)

// Reminder statuses. PendingTrigger means "due, queued for the next agent
// session to narrate", distinct from Pending (not yet due) and Triggered
// (already narrated).
const (
	ReminderPending        = "pending"
	ReminderPendingTrigger = "pending_trigger"
	ReminderTriggered      = "triggered"
	ReminderCancelled      = "cancelled"
)

// Transport service types.
const (
	ServiceIMessage = "imessage"
	ServiceSMS      = "sms"
)

// Conversation is one two-party messaging thread, identified by an opaque
// platform-assigned key.
type Conversation struct {
	Key             string
	Contact         string
	DisplayName     string
	Service         string
	LastMessageAt   time.Time
	LastMessageText string
	MessageCount    int
	Onboarded       bool
	Timezone        string
	CreatedAt       time.Time
}

// Message belongs to exactly one conversation. ExternalID, when present,
// is the platform message id used for idempotent upsert and for
// edit/delete/reaction correlation.
type Message struct {
	ID           string
	Conversation string
	ExternalID   string
	Text         string
	SentAt       time.Time
	Sender       string
	FromAgent    bool
	Read         bool
	Attachments  []Attachment
	Reactions    []Reaction
	Edited       bool
	OriginalText string
	EditedAt     time.Time
	Deleted      bool
	DeletedAt    time.Time
}

// Attachment is a media item on a message.
type Attachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Reaction is a tapback-style reaction on a message.
type Reaction struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Sender    string `json:"sender,omitempty"`
	FromAgent bool   `json:"from_agent,omitempty"`
	Removed   bool   `json:"removed,omitempty"`
}

// Task is a todo/homework/event/reminder item owned by one conversation.
type Task struct {
	ID           string
	Conversation string
	Type         string
	Title        string
	Description  string
	DueAt        time.Time
	EventAt      time.Time
	Status       string
	CreatedAt    time.Time
	CompletedAt  time.Time
}

// Reminder belongs to exactly one task, denormalized with the owning
// conversation key for fast lookup. One-time reminders carry TriggerAt and
// a wake-up handle; recurring ones carry a cron schedule, a timezone and a
// computed NextTriggerAt.
type Reminder struct {
	ID              string
	TaskID          string
	Conversation    string
	Kind            string
	TriggerAt       time.Time
	WakeupID        string
	CronSchedule    string
	Timezone        string
	NextTriggerAt   time.Time
	Purpose         string
	Status          string
	LastTriggeredAt time.Time
	CreatedAt       time.Time
}

// ActivityMarker records that an agent session currently owns a conversation.
type ActivityMarker struct {
	Conversation string
	SessionID    string
	StartedAt    time.Time
}

// Memory is a fact the agent keeps about the user.
type Memory struct {
	ID           string
	Conversation string
	Content      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User is a dashboard account, keyed by phone number.
type User struct {
	ID           string
	Phone        string
	Name         string
	Conversation string
	CreatedAt    time.Time
}

// MagicLink is a single-use, short-lived login token.
type MagicLink struct {
	ID           string
	Token        string
	Phone        string
	Conversation string
	ExpiresAt    time.Time
	Used         bool
	CreatedAt    time.Time
}

// Session is an authenticated dashboard session.
type Session struct {
	ID        string
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
