package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"autoflightlog/internal/domain"
	"autoflightlog/internal/models"
)

func scanRequest(row rowScanner) (*models.IntegrationRequest, error) {
	var (
		r         models.IntegrationRequest
		createdAt string
	)
	err := row.Scan(&r.ID, &r.CompanyName, &r.ContactEmail, &r.CrewID, &r.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan integration request: %w", err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) ListIntegrationRequests(ctx context.Context) ([]*models.IntegrationRequest, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, company_name, contact_email, crew_id, status, created_at
        FROM integration_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list integration requests: %w", err)
	}
	defer rows.Close()

	var out []*models.IntegrationRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) GetIntegrationRequest(ctx context.Context, id string) (*models.IntegrationRequest, error) {
	return scanRequest(db.QueryRowContext(ctx, `SELECT id, company_name, contact_email, crew_id, status, created_at
        FROM integration_requests WHERE id = ?`, id))
}

func (db *DB) AddIntegrationRequest(ctx context.Context, req *models.IntegrationRequest) error {
	if req == nil || req.ID == "" {
		return errors.New("request id is required")
	}
	_, err := db.ExecContext(ctx, `INSERT INTO integration_requests (id, company_name, contact_email, crew_id, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		req.ID, req.CompanyName, req.ContactEmail, req.CrewID, req.Status, formatTime(req.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add integration request: %w", err)
	}
	return nil
}
