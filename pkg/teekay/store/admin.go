package store

import "fmt"

// Admin bulk wipes. These hard-delete rows and exist for operator resets
// only; nothing in the normal message flow removes records.

// ClearMessages deletes every stored message.
func (s *Store) ClearMessages() (int64, error) { return s.clearTable("messages") }

// ClearConversations deletes every conversation record.
func (s *Store) ClearConversations() (int64, error) { return s.clearTable("conversations") }

// ClearTasks deletes every task.
func (s *Store) ClearTasks() (int64, error) { return s.clearTable("tasks") }

// ClearReminders deletes every reminder.
func (s *Store) ClearReminders() (int64, error) { return s.clearTable("reminders") }

// ClearMemories deletes every memory.
func (s *Store) ClearMemories() (int64, error) { return s.clearTable("memories") }

// ClearActiveAgents drops all activity markers, forcibly unlocking every
// conversation.
func (s *Store) ClearActiveAgents() (int64, error) { return s.clearTable("active_agents") }

// ClearAuth deletes all users, magic links and sessions.
func (s *Store) ClearAuth() (int64, error) {
	var total int64
	for _, table := range []string{"sessions", "magic_links", "users"} {
		n, err := s.clearTable(table)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// ResetEverything wipes all application tables.
func (s *Store) ResetEverything() (int64, error) {
	var total int64
	for _, table := range []string{
		"messages", "conversations", "tasks", "reminders",
		"memories", "active_agents", "sessions", "magic_links", "users",
	} {
		n, err := s.clearTable(table)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *Store) clearTable(table string) (int64, error) {
	res, err := s.DB.Exec("DELETE FROM " + table)
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
