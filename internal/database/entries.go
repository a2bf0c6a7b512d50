package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"
)

const entryColumns = `id, template_id, entry_values, source_system, source_connector_id, external_key,
        manual_overrides, created_at, updated_at`

func scanEntry(row rowScanner) (*models.LogbookEntry, error) {
	var (
		e                       models.LogbookEntry
		values                  string
		connectorID, key, overr sql.NullString
		createdAt, updatedAt    string
	)

	err := row.Scan(&e.ID, &e.TemplateID, &values, &e.Source.System, &connectorID, &key, &overr, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.Source.ConnectorID = connectorID.String
	e.Source.ExternalKey = key.String

	if err := json.Unmarshal([]byte(values), &e.Values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal values of entry %s: %w", e.ID, err)
	}
	if e.Values == nil {
		e.Values = map[string]any{}
	}
	if overr.Valid && overr.String != "" {
		if err := json.Unmarshal([]byte(overr.String), &e.ManualOverrides); err != nil {
			return nil, fmt.Errorf("failed to unmarshal overrides of entry %s: %w", e.ID, err)
		}
	}

	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func entryArgs(e *models.LogbookEntry) ([]any, error) {
	values := e.Values
	if values == nil {
		values = map[string]any{}
	}
	rawValues, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry values: %w", err)
	}

	var overrides any
	if len(e.ManualOverrides) > 0 {
		raw, err := json.Marshal(e.ManualOverrides)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal overrides: %w", err)
		}
		overrides = string(raw)
	}

	return []any{
		e.TemplateID, string(rawValues), e.Source.System,
		emptyToNull(e.Source.ConnectorID), emptyToNull(e.Source.ExternalKey), overrides,
		formatTime(e.UpdatedAt),
	}, nil
}

func (db *DB) ListEntries(ctx context.Context) ([]*models.LogbookEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM logbook_entries ORDER BY created_at, id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LogbookEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

func (db *DB) GetEntry(ctx context.Context, id string) (*models.LogbookEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM logbook_entries WHERE id = ?`
	return scanEntry(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetEntryByExternalKey(ctx context.Context, externalKey string) (*models.LogbookEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM logbook_entries WHERE external_key = ?`
	return scanEntry(db.QueryRowContext(ctx, query, externalKey))
}

func (db *DB) InsertEntry(ctx context.Context, e *models.LogbookEntry) error {
	if e == nil || e.ID == "" {
		return errors.New("entry id is required")
	}
	args, err := entryArgs(e)
	if err != nil {
		return err
	}

	query := `INSERT INTO logbook_entries (template_id, entry_values, source_system, source_connector_id, external_key,
              manual_overrides, updated_at, id, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args = append(args, e.ID, formatTime(e.CreatedAt))

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (db *DB) UpdateEntry(ctx context.Context, e *models.LogbookEntry) error {
	if e == nil {
		return errors.New("entry is nil")
	}
	args, err := entryArgs(e)
	if err != nil {
		return err
	}

	query := `UPDATE logbook_entries SET template_id = ?, entry_values = ?, source_system = ?, source_connector_id = ?,
              external_key = ?, manual_overrides = ?, updated_at = ?
              WHERE id = ?`
	args = append(args, e.ID)

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return requireAffected(res)
}

func (db *DB) DeleteEntry(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM logbook_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
