// Package store persists conversations, messages, tasks, reminders,
// memories, auth records and agent activity markers in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a record referenced by id does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the SQLite database connection with additional functionality.
type Store struct {
	DB     *sql.DB
	Config Config

	// Migrator handles schema migrations
	Migrator *Migrator

	// Health checker
	Health *HealthChecker
}

// Config holds SQLite-specific configuration.
type Config struct {
	Path        string
	JournalMode string
	BusyTimeout int
	ForeignKeys bool
}

// Open opens or creates the SQLite database with the given configuration
// and brings the schema up to date.
func Open(config Config) (*Store, error) {
	if config.Path == "" {
		config.Path = "./data/teekay.db"
	}
	if config.JournalMode == "" {
		config.JournalMode = "WAL"
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5000
	}

	// Ensure parent directory exists
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory %q: %w", dir, err)
	}

	// Build DSN with options
	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d", config.Path, config.JournalMode, config.BusyTimeout)
	if config.ForeignKeys {
		dsn += "&_foreign_keys=ON"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", config.Path, err)
	}

	// Verify connectivity
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		DB:     db,
		Config: config,
	}

	s.Migrator = NewMigrator(db)
	s.Health = NewHealthChecker(db)

	if err := s.Migrator.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Migrator handles schema migrations.
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new migrator.
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// CurrentVersion returns the current schema version.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		// Table might not exist yet
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

// Migrate applies the schema. The DDL is idempotent via IF NOT EXISTS.
func (m *Migrator) Migrate() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}

	if _, err := m.db.Exec(GetSchema()); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	if current == 0 {
		_, err = m.db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (1)")
		if err != nil {
			return fmt.Errorf("record migration: %w", err)
		}
	}

	return nil
}

// HealthChecker monitors database health.
type HealthChecker struct {
	db *sql.DB
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker(db *sql.DB) *HealthChecker {
	return &HealthChecker{db: db}
}

// Ping checks database connectivity.
func (h *HealthChecker) Ping() error {
	return h.db.Ping()
}

// Status returns detailed health status.
func (h *HealthChecker) Status() (map[string]any, error) {
	stats := h.db.Stats()

	var version string
	err := h.db.QueryRow("SELECT sqlite_version()").Scan(&version)
	if err != nil {
		version = "unknown"
	}

	return map[string]any{
		"healthy":          true,
		"version":          version,
		"open_conns":       stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
		"wait_duration_ms": stats.WaitDuration.Milliseconds(),
	}, nil
}

// ---- Scan helpers ----

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
