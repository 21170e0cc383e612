package store

// GetSchema returns the SQLite schema DDL.
func GetSchema() string {
	return `
-- Conversations (one row per two-party messaging thread)
CREATE TABLE IF NOT EXISTS conversations (
    key               TEXT PRIMARY KEY,
    contact           TEXT DEFAULT '',
    display_name      TEXT DEFAULT '',
    service           TEXT DEFAULT '',
    last_message_at   TEXT DEFAULT '',
    last_message_text TEXT DEFAULT '',
    message_count     INTEGER DEFAULT 0,
    onboarded         INTEGER DEFAULT 0,
    timezone          TEXT DEFAULT '',
    created_at        TEXT NOT NULL
);

-- Messages
CREATE TABLE IF NOT EXISTS messages (
    id               TEXT PRIMARY KEY,
    conversation_key TEXT NOT NULL,
    external_id      TEXT DEFAULT '',
    text             TEXT DEFAULT '',
    sent_at          TEXT NOT NULL,
    sender           TEXT DEFAULT '',
    from_agent       INTEGER DEFAULT 0,
    read             INTEGER DEFAULT 0,
    attachments      TEXT DEFAULT '[]',
    reactions        TEXT DEFAULT '[]',
    edited           INTEGER DEFAULT 0,
    original_text    TEXT DEFAULT '',
    edited_at        TEXT DEFAULT '',
    deleted          INTEGER DEFAULT 0,
    deleted_at       TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_key, sent_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_external
    ON messages(conversation_key, external_id) WHERE external_id != '';

-- Tasks
CREATE TABLE IF NOT EXISTS tasks (
    id               TEXT PRIMARY KEY,
    conversation_key TEXT NOT NULL,
    type             TEXT NOT NULL,
    title            TEXT NOT NULL,
    description      TEXT DEFAULT '',
    due_at           TEXT DEFAULT '',
    event_at         TEXT DEFAULT '',
    status           TEXT NOT NULL DEFAULT 'active',
    created_at       TEXT NOT NULL,
    completed_at     TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_tasks_conversation ON tasks(conversation_key);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

-- Scheduled reminders, one-time and recurring
CREATE TABLE IF NOT EXISTS reminders (
    id                TEXT PRIMARY KEY,
    task_id           TEXT NOT NULL,
    conversation_key  TEXT NOT NULL,
    kind              TEXT NOT NULL,
    trigger_at        TEXT DEFAULT '',
    wakeup_id         TEXT DEFAULT '',
    cron_schedule     TEXT DEFAULT '',
    timezone          TEXT DEFAULT '',
    next_trigger_at   TEXT DEFAULT '',
    purpose           TEXT DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'pending',
    last_triggered_at TEXT DEFAULT '',
    created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reminders_task ON reminders(task_id);
CREATE INDEX IF NOT EXISTS idx_reminders_conversation ON reminders(conversation_key, status);
CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(status, next_trigger_at);

-- Agent activity markers (existence = session running)
CREATE TABLE IF NOT EXISTS active_agents (
    conversation_key TEXT PRIMARY KEY,
    session_id       TEXT NOT NULL,
    started_at       TEXT NOT NULL
);

-- Memories the agent keeps about the user
CREATE TABLE IF NOT EXISTS memories (
    id               TEXT PRIMARY KEY,
    conversation_key TEXT NOT NULL,
    content          TEXT NOT NULL,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_conversation ON memories(conversation_key);

-- Dashboard users
CREATE TABLE IF NOT EXISTS users (
    id               TEXT PRIMARY KEY,
    phone            TEXT NOT NULL UNIQUE,
    name             TEXT DEFAULT '',
    conversation_key TEXT DEFAULT '',
    created_at       TEXT NOT NULL
);

-- Magic login links (single use, short lived)
CREATE TABLE IF NOT EXISTS magic_links (
    id               TEXT PRIMARY KEY,
    token            TEXT NOT NULL UNIQUE,
    phone            TEXT NOT NULL,
    conversation_key TEXT DEFAULT '',
    expires_at       TEXT NOT NULL,
    used             INTEGER DEFAULT 0,
    created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_magic_links_phone ON magic_links(phone);

-- Dashboard sessions
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    token      TEXT NOT NULL UNIQUE,
    user_id    TEXT NOT NULL,
    created_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`
}
