package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"
)

const connectorColumns = `id, request_id, company_name, crew_id, api_base_url, auth_type, secret, status,
        auto_sync_enabled, sync_interval_minutes, last_test_at, last_error,
        last_sync_at, last_sync_attempt_at, last_sync_status, last_sync_error,
        consecutive_failures, next_sync_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnector(row rowScanner) (*models.Connector, error) {
	var (
		c                                         models.Connector
		autoSync, interval                        sql.NullInt64
		lastTest, lastSync, lastAttempt, nextSync sql.NullString
		lastErr, syncStatus, syncErr              sql.NullString
		createdAt, updatedAt                      string
	)

	err := row.Scan(
		&c.ID, &c.RequestID, &c.CompanyName, &c.CrewID, &c.APIBaseURL, &c.AuthType, &c.Secret, &c.Status,
		&autoSync, &interval, &lastTest, &lastErr,
		&lastSync, &lastAttempt, &syncStatus, &syncErr,
		&c.ConsecutiveFailures, &nextSync, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan connector: %w", err)
	}

	if autoSync.Valid {
		c.AutoSyncEnabled = models.Ptr(autoSync.Int64 != 0)
	}
	if interval.Valid {
		c.SyncIntervalMinutes = models.Ptr(int(interval.Int64))
	}
	c.LastError = stringPtr(lastErr)
	c.LastSyncStatus = stringPtr(syncStatus)
	c.LastSyncError = stringPtr(syncErr)

	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{lastTest, &c.LastTestAt},
		{lastSync, &c.LastSyncAt},
		{lastAttempt, &c.LastSyncAttemptAt},
		{nextSync, &c.NextSyncAt},
	} {
		t, err := parseTimePtr(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = t
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) ListConnectors(ctx context.Context) ([]*models.Connector, error) {
	query := `SELECT ` + connectorColumns + ` FROM connectors ORDER BY created_at, id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list connectors: %w", err)
	}
	defer rows.Close()

	var connectors []*models.Connector
	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list connectors: %w", err)
	}
	return connectors, nil
}

func (db *DB) GetConnector(ctx context.Context, id string) (*models.Connector, error) {
	query := `SELECT ` + connectorColumns + ` FROM connectors WHERE id = ?`
	return scanConnector(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetConnectorByRequestID(ctx context.Context, requestID string) (*models.Connector, error) {
	query := `SELECT ` + connectorColumns + ` FROM connectors WHERE request_id = ? ORDER BY created_at LIMIT 1`
	return scanConnector(db.QueryRowContext(ctx, query, requestID))
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertConnector(ctx context.Context, ex execer, c *models.Connector, now time.Time) error {
	query := `
        INSERT INTO connectors (` + connectorColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            request_id = excluded.request_id,
            company_name = excluded.company_name,
            crew_id = excluded.crew_id,
            api_base_url = excluded.api_base_url,
            auth_type = excluded.auth_type,
            secret = excluded.secret,
            status = excluded.status,
            auto_sync_enabled = excluded.auto_sync_enabled,
            sync_interval_minutes = excluded.sync_interval_minutes,
            last_test_at = excluded.last_test_at,
            last_error = excluded.last_error,
            last_sync_at = excluded.last_sync_at,
            last_sync_attempt_at = excluded.last_sync_attempt_at,
            last_sync_status = excluded.last_sync_status,
            last_sync_error = excluded.last_sync_error,
            consecutive_failures = excluded.consecutive_failures,
            next_sync_at = excluded.next_sync_at,
            updated_at = excluded.updated_at
    `

	var autoSync, interval any
	if c.AutoSyncEnabled != nil {
		autoSync = *c.AutoSyncEnabled
	}
	if c.SyncIntervalMinutes != nil {
		interval = *c.SyncIntervalMinutes
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := ex.ExecContext(ctx, query,
		c.ID, c.RequestID, c.CompanyName, c.CrewID, c.APIBaseURL, c.AuthType, c.Secret, c.Status,
		autoSync, interval, formatTimePtr(c.LastTestAt), nullString(c.LastError),
		formatTimePtr(c.LastSyncAt), formatTimePtr(c.LastSyncAttemptAt), nullString(c.LastSyncStatus), nullString(c.LastSyncError),
		c.ConsecutiveFailures, formatTimePtr(c.NextSyncAt), formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert connector: %w", err)
	}
	return nil
}

func (db *DB) UpsertConnector(ctx context.Context, c *models.Connector) error {
	if c == nil || c.ID == "" {
		return errors.New("connector id is required")
	}
	return upsertConnector(ctx, db, c, db.clock.Now())
}

// PatchConnector applies a merge-patch inside one transaction.
func (db *DB) PatchConnector(ctx context.Context, id string, patch models.ConnectorPatch) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + connectorColumns + ` FROM connectors WHERE id = ?`
	c, err := scanConnector(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return err
	}

	now := db.clock.Now()
	patch.Apply(c)
	c.UpdatedAt = now

	if err := upsertConnector(ctx, tx, c, now); err != nil {
		return err
	}
	return tx.Commit()
}
