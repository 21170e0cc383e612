package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UpsertMessage stores a message and returns its id. When the message
// carries an external id that is already stored for the conversation, no
// second record is created: the existing id is returned and the read flag
// is refreshed if the new event says the message was read.
func (s *Store) UpsertMessage(m *Message) (string, error) {
	if m.ExternalID != "" {
		var existing string
		err := s.DB.QueryRow(
			"SELECT id FROM messages WHERE conversation_key = ? AND external_id = ?",
			m.Conversation, m.ExternalID).Scan(&existing)
		if err == nil {
			if m.Read {
				if _, err := s.DB.Exec("UPDATE messages SET read = 1 WHERE id = ?", existing); err != nil {
					return "", fmt.Errorf("refresh read flag: %w", err)
				}
			}
			return existing, nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("look up message by external id: %w", err)
		}
	}

	id := uuid.NewString()
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	attachments, err := json.Marshal(orEmpty(m.Attachments))
	if err != nil {
		return "", fmt.Errorf("encode attachments: %w", err)
	}
	reactions, err := json.Marshal(orEmpty(m.Reactions))
	if err != nil {
		return "", fmt.Errorf("encode reactions: %w", err)
	}

	_, err = s.DB.Exec(`
		INSERT INTO messages (id, conversation_key, external_id, text, sent_at,
			sender, from_agent, read, attachments, reactions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, m.Conversation, m.ExternalID, m.Text, formatTime(m.SentAt),
		m.Sender, boolToInt(m.FromAgent), boolToInt(m.Read), string(attachments), string(reactions))
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}

	if err := s.TouchConversation(m.Conversation, m.Text, m.SentAt); err != nil && err != ErrNotFound {
		return "", err
	}
	m.ID = id
	return id, nil
}

// RecentMessages returns up to limit messages for the conversation in
// chronological order, excluding soft-deleted ones. The limit is capped
// at 200.
func (s *Store) RecentMessages(conversation string, limit int) ([]*Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	rows, err := s.DB.Query(`
		SELECT id, conversation_key, external_id, text, sent_at, sender,
		       from_agent, read, attachments, reactions, edited, original_text,
		       edited_at, deleted, deleted_at
		FROM messages
		WHERE conversation_key = ? AND deleted = 0
		ORDER BY sent_at DESC LIMIT ?`, conversation, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query is newest-first for the LIMIT; callers want chronological.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LatestMessageID returns the id of the newest non-deleted message in the
// conversation, or empty when there is none.
func (s *Store) LatestMessageID(conversation string) (string, error) {
	var id string
	err := s.DB.QueryRow(`
		SELECT id FROM messages
		WHERE conversation_key = ? AND deleted = 0
		ORDER BY sent_at DESC LIMIT 1`, conversation).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest message: %w", err)
	}
	return id, nil
}

// GetMessage returns a message by id.
func (s *Store) GetMessage(id string) (*Message, error) {
	row := s.DB.QueryRow(`
		SELECT id, conversation_key, external_id, text, sent_at, sender,
		       from_agent, read, attachments, reactions, edited, original_text,
		       edited_at, deleted, deleted_at
		FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

// GetMessageByExternalID returns a message by its platform id.
func (s *Store) GetMessageByExternalID(conversation, externalID string) (*Message, error) {
	row := s.DB.QueryRow(`
		SELECT id, conversation_key, external_id, text, sent_at, sender,
		       from_agent, read, attachments, reactions, edited, original_text,
		       edited_at, deleted, deleted_at
		FROM messages WHERE conversation_key = ? AND external_id = ?`, conversation, externalID)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

// EditMessage replaces the message text, preserving the original text the
// first time the message is edited.
func (s *Store) EditMessage(id, newText string) error {
	res, err := s.DB.Exec(`
		UPDATE messages
		SET original_text = CASE WHEN edited = 0 THEN text ELSE original_text END,
		    text = ?, edited = 1, edited_at = ?
		WHERE id = ?`, newText, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("edit message %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteMessage marks a message deleted without removing the record.
func (s *Store) SoftDeleteMessage(id string) error {
	res, err := s.DB.Exec(
		"UPDATE messages SET deleted = 1, deleted_at = ? WHERE id = ?",
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("delete message %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkMessageRead sets the read flag on the message with the given
// platform id.
func (s *Store) MarkMessageRead(conversation, externalID string) error {
	_, err := s.DB.Exec(
		"UPDATE messages SET read = 1 WHERE conversation_key = ? AND external_id = ?",
		conversation, externalID)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

// UpsertReaction adds or replaces a reaction on the message, keyed by the
// reaction id. A removal event replaces the reaction with its Removed form.
func (s *Store) UpsertReaction(messageID string, r Reaction) error {
	m, err := s.GetMessage(messageID)
	if err != nil {
		return err
	}
	replaced := false
	for i := range m.Reactions {
		if m.Reactions[i].ID == r.ID {
			m.Reactions[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		m.Reactions = append(m.Reactions, r)
	}
	encoded, err := json.Marshal(m.Reactions)
	if err != nil {
		return fmt.Errorf("encode reactions: %w", err)
	}
	_, err = s.DB.Exec("UPDATE messages SET reactions = ? WHERE id = ?", string(encoded), messageID)
	if err != nil {
		return fmt.Errorf("store reaction: %w", err)
	}
	return nil
}

func scanMessage(row rowScanner) (*Message, error) {
	var m Message
	var sentAt, editedAt, deletedAt, attachments, reactions string
	var fromAgent, read, edited, deleted int
	err := row.Scan(&m.ID, &m.Conversation, &m.ExternalID, &m.Text, &sentAt,
		&m.Sender, &fromAgent, &read, &attachments, &reactions, &edited,
		&m.OriginalText, &editedAt, &deleted, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.SentAt = parseTime(sentAt)
	m.EditedAt = parseTime(editedAt)
	m.DeletedAt = parseTime(deletedAt)
	m.FromAgent = fromAgent != 0
	m.Read = read != 0
	m.Edited = edited != 0
	m.Deleted = deleted != 0
	if err := json.Unmarshal([]byte(attachments), &m.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if err := json.Unmarshal([]byte(reactions), &m.Reactions); err != nil {
		return nil, fmt.Errorf("decode reactions: %w", err)
	}
	return &m, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
