package agent

import (
	"log/slog"

	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

// Tracker is the per-conversation mutual-exclusion marker for agent
// sessions. It is advisory: the storage-level conditional insert resolves
// concurrent claims to one marker, but callers treat IsActive pre-checks
// as optimizations, not guarantees.
type Tracker struct {
	store *store.Store
	log   *slog.Logger
}

// NewTracker creates the activity tracker.
func NewTracker(st *store.Store, logger *slog.Logger) *Tracker {
	return &Tracker{store: st, log: logger.With("component", "tracker")}
}

// IsActive reports whether an agent session currently owns the
// conversation.
func (t *Tracker) IsActive(conversation string) bool {
	active, err := t.store.IsAgentActive(conversation)
	if err != nil {
		t.log.Error("activity check failed", "conversation", conversation, "error", err)
		return false
	}
	return active
}

// Claim marks the conversation active under the session id. If another
// session already owns the conversation the existing owner's id is
// returned; claiming is idempotent, never an error state.
func (t *Tracker) Claim(conversation, sessionID string) (string, bool) {
	owner, err := t.store.ClaimAgent(conversation, sessionID)
	if err != nil {
		t.log.Error("claim failed", "conversation", conversation, "error", err)
		return "", false
	}
	if owner != sessionID {
		t.log.Warn("conversation already claimed",
			"conversation", conversation, "owner", owner, "requested", sessionID)
		return owner, false
	}
	return owner, true
}

// Release drops the conversation's marker. Releasing an unclaimed
// conversation is a no-op. Errors are logged, never propagated: release
// runs on every session exit path and must not mask the original failure.
func (t *Tracker) Release(conversation string) {
	if err := t.store.ReleaseAgent(conversation); err != nil {
		t.log.Error("release failed", "conversation", conversation, "error", err)
	}
}
