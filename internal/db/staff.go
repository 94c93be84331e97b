package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/windvault/windvault/internal/models"
)

// CreateStaff inserts a new staff row. Credentials are owned by the auth
// layer and never stored here.
func (s *Store) CreateStaff(ctx context.Context, staff models.Staff) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	if staff.ID == "" {
		return errors.New("staff id is required")
	}
	if staff.TenantID == "" {
		return errors.New("staff tenant_id is required")
	}
	if staff.Name == "" {
		return errors.New("staff name is required")
	}
	createdAt := staff.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO staff (id, tenant_id, name, created_at) VALUES (?, ?, ?, ?)`,
		staff.ID, staff.TenantID, staff.Name, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("insert staff %s: %w", staff.ID, err)
	}
	return nil
}

// GetStaff loads a staff member by id within a tenant.
func (s *Store) GetStaff(ctx context.Context, tenantID, id string) (models.Staff, error) {
	if s == nil || s.DB == nil {
		return models.Staff{}, errors.New("db store is nil")
	}
	row := s.DB.QueryRowContext(ctx, `SELECT id, tenant_id, name, created_at FROM staff WHERE tenant_id = ? AND id = ?`, tenantID, id)
	var staff models.Staff
	var createdAt string
	if err := row.Scan(&staff.ID, &staff.TenantID, &staff.Name, &createdAt); err != nil {
		return models.Staff{}, err
	}
	var err error
	if createdAt != "" {
		staff.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return models.Staff{}, fmt.Errorf("parse created_at: %w", err)
		}
	}
	return staff, nil
}

// ListStaff returns a tenant's staff ordered by name.
func (s *Store) ListStaff(ctx context.Context, tenantID string) ([]models.Staff, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, tenant_id, name, created_at FROM staff WHERE tenant_id = ? ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()
	var out []models.Staff
	for rows.Next() {
		var staff models.Staff
		var createdAt string
		if err := rows.Scan(&staff.ID, &staff.TenantID, &staff.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		if createdAt != "" {
			staff.CreatedAt, err = parseTime(createdAt)
			if err != nil {
				return nil, fmt.Errorf("parse created_at: %w", err)
			}
		}
		out = append(out, staff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff: %w", err)
	}
	return out, nil
}

// DeleteStaff removes a staff row. Windows and history keep the staff id by
// reference; history keeps its name snapshots.
func (s *Store) DeleteStaff(ctx context.Context, tenantID, id string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM staff WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete staff %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected staff %s: %w", id, err)
	}
	return affected > 0, nil
}
