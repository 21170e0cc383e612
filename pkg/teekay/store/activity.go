package store

import (
	"database/sql"
	"fmt"
	"time"
)

// IsAgentActive reports whether an activity marker exists for the
// conversation.
func (s *Store) IsAgentActive(conversation string) (bool, error) {
	var one int
	err := s.DB.QueryRow(
		"SELECT 1 FROM active_agents WHERE conversation_key = ?", conversation).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check active agent: %w", err)
	}
	return true, nil
}

// ClaimAgent inserts the activity marker for the conversation if absent.
// The insert is conditional at the storage level, so concurrent claims for
// the same conversation resolve to a single marker; the loser reads back
// the winner's session id. Claiming an already-claimed conversation is not
// an error.
func (s *Store) ClaimAgent(conversation, sessionID string) (string, error) {
	_, err := s.DB.Exec(`
		INSERT OR IGNORE INTO active_agents (conversation_key, session_id, started_at)
		VALUES (?, ?, ?)`,
		conversation, sessionID, formatTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("claim agent for %q: %w", conversation, err)
	}

	var owner string
	err = s.DB.QueryRow(
		"SELECT session_id FROM active_agents WHERE conversation_key = ?", conversation).Scan(&owner)
	if err != nil {
		return "", fmt.Errorf("read agent claim for %q: %w", conversation, err)
	}
	return owner, nil
}

// ReleaseAgent deletes the activity marker. Releasing an absent marker is
// a no-op.
func (s *Store) ReleaseAgent(conversation string) error {
	_, err := s.DB.Exec("DELETE FROM active_agents WHERE conversation_key = ?", conversation)
	if err != nil {
		return fmt.Errorf("release agent for %q: %w", conversation, err)
	}
	return nil
}

// ActiveAgents returns all current activity markers.
func (s *Store) ActiveAgents() ([]*ActivityMarker, error) {
	rows, err := s.DB.Query("SELECT conversation_key, session_id, started_at FROM active_agents")
	if err != nil {
		return nil, fmt.Errorf("list active agents: %w", err)
	}
	defer rows.Close()

	var out []*ActivityMarker
	for rows.Next() {
		var m ActivityMarker
		var startedAt string
		if err := rows.Scan(&m.Conversation, &m.SessionID, &startedAt); err != nil {
			return nil, fmt.Errorf("scan active agent: %w", err)
		}
		m.StartedAt = parseTime(startedAt)
		out = append(out, &m)
	}
	return out, rows.Err()
}
