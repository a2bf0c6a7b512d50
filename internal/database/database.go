package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autoflightlog/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB is the SQLite-backed domain.Store.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
	clock  domain.Clock
}

var _ domain.Store = (*DB)(nil)

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; also keeps ":memory:" on a single shared connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return &DB{DB: db, logger: logger, clock: domain.SystemClock}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS connectors (
            id TEXT PRIMARY KEY,
            request_id TEXT NOT NULL,
            company_name TEXT NOT NULL DEFAULT '',
            crew_id TEXT NOT NULL DEFAULT '',
            api_base_url TEXT NOT NULL DEFAULT '',
            auth_type TEXT NOT NULL DEFAULT '',
            secret TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'inactive',
            auto_sync_enabled INTEGER,
            sync_interval_minutes INTEGER,
            last_test_at TEXT,
            last_error TEXT,
            last_sync_at TEXT,
            last_sync_attempt_at TEXT,
            last_sync_status TEXT,
            last_sync_error TEXT,
            consecutive_failures INTEGER NOT NULL DEFAULT 0,
            next_sync_at TEXT,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS logbook_entries (
            id TEXT PRIMARY KEY,
            template_id TEXT NOT NULL,
            entry_values TEXT NOT NULL DEFAULT '{}',
            source_system TEXT NOT NULL,
            source_connector_id TEXT,
            external_key TEXT,
            manual_overrides TEXT,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS integration_requests (
            id TEXT PRIMARY KEY,
            company_name TEXT NOT NULL,
            contact_email TEXT NOT NULL DEFAULT '',
            crew_id TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS views (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            template_id TEXT NOT NULL,
            visible_fields TEXT NOT NULL DEFAULT '[]',
            columns TEXT,
            sort_by TEXT NOT NULL DEFAULT '',
            sort_order TEXT NOT NULL DEFAULT '',
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_connectors_request_id ON connectors(request_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_external_key ON logbook_entries(external_key) WHERE external_key IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_entries_created_at ON logbook_entries(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Timestamps are stored as fixed-width RFC 3339 text in UTC so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func emptyToNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// WithClock sets the clock used for timestamps the store fills in itself.
func (db *DB) WithClock(clock domain.Clock) *DB {
	if clock != nil {
		db.clock = clock
	}
	return db
}

// Health pings the database.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}
