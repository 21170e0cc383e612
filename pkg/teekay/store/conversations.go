package store

import (
	"database/sql"
	"fmt"
	"time"
)

// GetConversation returns the conversation with the given key.
func (s *Store) GetConversation(key string) (*Conversation, error) {
	row := s.DB.QueryRow(`
		SELECT key, contact, display_name, service, last_message_at,
		       last_message_text, message_count, onboarded, timezone, created_at
		FROM conversations WHERE key = ?`, key)
	return scanConversation(row)
}

// GetOrCreateConversation returns the conversation with the given key,
// creating it on first contact. Non-empty contact/display name/service
// values refresh the stored ones.
func (s *Store) GetOrCreateConversation(key, contact, displayName, service string) (*Conversation, error) {
	_, err := s.DB.Exec(`
		INSERT INTO conversations (key, contact, display_name, service, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			contact      = CASE WHEN excluded.contact      != '' THEN excluded.contact      ELSE contact      END,
			display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE display_name END,
			service      = CASE WHEN excluded.service      != '' THEN excluded.service      ELSE service      END`,
		key, contact, displayName, service, formatTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("upsert conversation %q: %w", key, err)
	}
	return s.GetConversation(key)
}

// TouchConversation records that a message was stored: bumps the message
// count and refreshes the last-message preview (truncated to 100 runes).
func (s *Store) TouchConversation(key, lastText string, at time.Time) error {
	preview := []rune(lastText)
	if len(preview) > 100 {
		preview = preview[:100]
	}
	res, err := s.DB.Exec(`
		UPDATE conversations
		SET last_message_at = ?, last_message_text = ?, message_count = message_count + 1
		WHERE key = ?`,
		formatTime(at), string(preview), key)
	if err != nil {
		return fmt.Errorf("touch conversation %q: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetConversationTimezone stores the user's IANA timezone identifier.
func (s *Store) SetConversationTimezone(key, timezone string) error {
	res, err := s.DB.Exec("UPDATE conversations SET timezone = ? WHERE key = ?", timezone, key)
	if err != nil {
		return fmt.Errorf("set timezone for %q: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteOnboarding marks the conversation's onboarding flow as finished.
func (s *Store) CompleteOnboarding(key string) error {
	res, err := s.DB.Exec("UPDATE conversations SET onboarded = 1 WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("complete onboarding for %q: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListConversations returns all conversations, most recently active first.
func (s *Store) ListConversations() ([]*Conversation, error) {
	rows, err := s.DB.Query(`
		SELECT key, contact, display_name, service, last_message_at,
		       last_message_text, message_count, onboarded, timezone, created_at
		FROM conversations ORDER BY last_message_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var c Conversation
	var lastAt, createdAt string
	var onboarded int
	err := row.Scan(&c.Key, &c.Contact, &c.DisplayName, &c.Service, &lastAt,
		&c.LastMessageText, &c.MessageCount, &onboarded, &c.Timezone, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	c.LastMessageAt = parseTime(lastAt)
	c.CreatedAt = parseTime(createdAt)
	c.Onboarded = onboarded != 0
	return &c, nil
}
