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

const viewColumns = `id, name, template_id, visible_fields, columns, sort_by, sort_order, created_at, updated_at`

func scanView(row rowScanner) (*models.View, error) {
	var (
		v                    models.View
		visible              string
		columns              sql.NullString
		createdAt, updatedAt string
	)

	err := row.Scan(&v.ID, &v.Name, &v.TemplateID, &visible, &columns, &v.SortBy, &v.SortOrder, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan view: %w", err)
	}

	if err := json.Unmarshal([]byte(visible), &v.VisibleFields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields of view %s: %w", v.ID, err)
	}
	if columns.Valid && columns.String != "" {
		if err := json.Unmarshal([]byte(columns.String), &v.Columns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal columns of view %s: %w", v.ID, err)
		}
	}

	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (db *DB) ListViews(ctx context.Context) ([]*models.View, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+viewColumns+` FROM views ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer rows.Close()

	var views []*models.View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	return views, nil
}

func (db *DB) GetView(ctx context.Context, id string) (*models.View, error) {
	return scanView(db.QueryRowContext(ctx, `SELECT `+viewColumns+` FROM views WHERE id = ?`, id))
}

// UpsertView stores v; created_at of an existing row is kept.
func (db *DB) UpsertView(ctx context.Context, v *models.View) error {
	if v == nil || v.ID == "" {
		return errors.New("view id is required")
	}

	visible := v.VisibleFields
	if visible == nil {
		visible = []string{}
	}
	rawVisible, err := json.Marshal(visible)
	if err != nil {
		return fmt.Errorf("failed to marshal view fields: %w", err)
	}
	var columns any
	if len(v.Columns) > 0 {
		raw, err := json.Marshal(v.Columns)
		if err != nil {
			return fmt.Errorf("failed to marshal view columns: %w", err)
		}
		columns = string(raw)
	}

	now := db.clock.Now()
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := v.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	query := `
        INSERT INTO views (` + viewColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            template_id = excluded.template_id,
            visible_fields = excluded.visible_fields,
            columns = excluded.columns,
            sort_by = excluded.sort_by,
            sort_order = excluded.sort_order,
            updated_at = excluded.updated_at
    `
	_, err = db.ExecContext(ctx, query,
		v.ID, v.Name, v.TemplateID, string(rawVisible), columns, v.SortBy, v.SortOrder,
		formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert view: %w", err)
	}
	return nil
}

func (db *DB) DeleteView(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM views WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete view: %w", err)
	}
	return requireAffected(res)
}
