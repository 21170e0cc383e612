package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateMagicLink stores a fresh login token for the phone number and
// invalidates any previous unused links for it.
func (s *Store) CreateMagicLink(phone, conversation, token string, ttl time.Duration) (*MagicLink, error) {
	if _, err := s.DB.Exec(
		"UPDATE magic_links SET used = 1 WHERE phone = ? AND used = 0", phone); err != nil {
		return nil, fmt.Errorf("invalidate previous magic links: %w", err)
	}

	link := &MagicLink{
		ID:           uuid.NewString(),
		Token:        token,
		Phone:        phone,
		Conversation: conversation,
		ExpiresAt:    time.Now().Add(ttl),
		CreatedAt:    time.Now(),
	}
	_, err := s.DB.Exec(`
		INSERT INTO magic_links (id, token, phone, conversation_key, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		link.ID, link.Token, link.Phone, link.Conversation,
		formatTime(link.ExpiresAt), formatTime(link.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert magic link: %w", err)
	}
	return link, nil
}

// ConsumeMagicLink marks the link used and returns it. Unknown, expired
// and already-used tokens all come back as ErrNotFound so callers cannot
// distinguish them.
func (s *Store) ConsumeMagicLink(token string) (*MagicLink, error) {
	res, err := s.DB.Exec(
		"UPDATE magic_links SET used = 1 WHERE token = ? AND used = 0 AND expires_at > ?",
		token, formatTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("consume magic link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	var link MagicLink
	var expiresAt, createdAt string
	var used int
	err = s.DB.QueryRow(`
		SELECT id, token, phone, conversation_key, expires_at, used, created_at
		FROM magic_links WHERE token = ?`, token).
		Scan(&link.ID, &link.Token, &link.Phone, &link.Conversation, &expiresAt, &used, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("read magic link: %w", err)
	}
	link.ExpiresAt = parseTime(expiresAt)
	link.CreatedAt = parseTime(createdAt)
	link.Used = used != 0
	return &link, nil
}

// GetOrCreateUser returns the dashboard account for the phone number,
// creating it on first login.
func (s *Store) GetOrCreateUser(phone, conversation string) (*User, error) {
	_, err := s.DB.Exec(`
		INSERT INTO users (id, phone, conversation_key, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(phone) DO UPDATE SET
			conversation_key = CASE WHEN excluded.conversation_key != ''
				THEN excluded.conversation_key ELSE conversation_key END`,
		uuid.NewString(), phone, conversation, formatTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("upsert user %q: %w", phone, err)
	}

	var u User
	var createdAt string
	err = s.DB.QueryRow(
		"SELECT id, phone, name, conversation_key, created_at FROM users WHERE phone = ?", phone).
		Scan(&u.ID, &u.Phone, &u.Name, &u.Conversation, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("read user %q: %w", phone, err)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(id string) (*User, error) {
	var u User
	var createdAt string
	err := s.DB.QueryRow(
		"SELECT id, phone, name, conversation_key, created_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Phone, &u.Name, &u.Conversation, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read user %q: %w", id, err)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// SetUserName updates the display name on a dashboard account.
func (s *Store) SetUserName(id, name string) error {
	res, err := s.DB.Exec("UPDATE users SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("update user %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSession stores an authenticated dashboard session.
func (s *Store) CreateSession(userID, token string, ttl time.Duration) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	_, err := s.DB.Exec(`
		INSERT INTO sessions (id, token, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Token, sess.UserID, formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// GetSession returns the unexpired session with the given token.
func (s *Store) GetSession(token string) (*Session, error) {
	var sess Session
	var createdAt, expiresAt string
	err := s.DB.QueryRow(`
		SELECT id, token, user_id, created_at, expires_at
		FROM sessions WHERE token = ? AND expires_at > ?`,
		token, formatTime(time.Now())).
		Scan(&sess.ID, &sess.Token, &sess.UserID, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	sess.CreatedAt = parseTime(createdAt)
	sess.ExpiresAt = parseTime(expiresAt)
	return &sess, nil
}

// DeleteSession removes a session; deleting an unknown token is a no-op.
func (s *Store) DeleteSession(token string) error {
	_, err := s.DB.Exec("DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
