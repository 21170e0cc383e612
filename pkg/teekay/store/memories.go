package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveMemory stores a new memory for the conversation and returns its id.
func (s *Store) SaveMemory(conversation, content string) (string, error) {
	id := uuid.NewString()
	now := formatTime(time.Now())
	_, err := s.DB.Exec(`
		INSERT INTO memories (id, conversation_key, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, conversation, content, now, now)
	if err != nil {
		return "", fmt.Errorf("insert memory: %w", err)
	}
	return id, nil
}

// GetMemory fetches one memory by id.
func (s *Store) GetMemory(id string) (*Memory, error) {
	row := s.DB.QueryRow(`
		SELECT id, conversation_key, content, created_at, updated_at
		FROM memories WHERE id = ?`, id)
	var m Memory
	var createdAt, updatedAt string
	if err := row.Scan(&m.ID, &m.Conversation, &m.Content, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get memory %q: %w", id, err)
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

// EditMemory replaces a memory's content.
func (s *Store) EditMemory(id, content string) error {
	res, err := s.DB.Exec(
		"UPDATE memories SET content = ?, updated_at = ? WHERE id = ?",
		content, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("edit memory %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMemory removes a memory.
func (s *Store) DeleteMemory(id string) error {
	res, err := s.DB.Exec("DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete memory %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMemories returns the conversation's memories, oldest first.
func (s *Store) ListMemories(conversation string) ([]*Memory, error) {
	rows, err := s.DB.Query(`
		SELECT id, conversation_key, content, created_at, updated_at
		FROM memories WHERE conversation_key = ? ORDER BY created_at`, conversation)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var out []*Memory
	for rows.Next() {
		var m Memory
		var createdAt, updatedAt string
		if err := rows.Scan(&m.ID, &m.Conversation, &m.Content, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		m.UpdatedAt = parseTime(updatedAt)
		out = append(out, &m)
	}
	return out, rows.Err()
}
