package agent

import (
	"context"
	"time"
)

// Trigger types.
const (
	TriggerMessage  = "user_message"
	TriggerReminder = "scheduled_reminder"
)

// DueReminder is one reminder handed to a session in its trigger payload.
type DueReminder struct {
	ID        string
	TaskID    string
	TaskTitle string
	TaskType  string
	Purpose   string
	DueAt     time.Time
	EventAt   time.Time
}

// Trigger describes why a session was spawned.
type Trigger struct {
	Type string
	// Event is the raw inbound event description for message triggers.
	Event string
	// Reminders is the due-reminder payload for reminder triggers.
	Reminders []DueReminder
}

// RunRequest is one turn of the agent runtime.
type RunRequest struct {
	ThreadID     string
	SystemPrompt string
	Instruction  string
	Tools        *Registry
}

// Runtime is the opaque reasoning loop. The core hands it an instruction
// and a tool surface, waits for completion and never interprets the reply
// beyond logging it. Run blocks for externally driven, unbounded
// wall-clock time.
type Runtime interface {
	// OpenThread establishes a conversation-scoped reasoning thread and
	// returns its identifier, used as the session id.
	OpenThread(ctx context.Context, conversation string) (string, error)

	// Run executes one agent turn to completion and returns the final
	// assistant text.
	Run(ctx context.Context, req *RunRequest) (string, error)
}
