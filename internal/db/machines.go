package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/windvault/windvault/internal/models"
)

// CreateMachine inserts a new machine row.
func (s *Store) CreateMachine(ctx context.Context, machine models.CloudMachine) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	if machine.ID == "" {
		return errors.New("machine id is required")
	}
	if machine.TenantID == "" {
		return errors.New("machine tenant_id is required")
	}
	if machine.Name == "" {
		return errors.New("machine name is required")
	}
	now := time.Now().UTC()
	createdAt := machine.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := machine.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO machines (
		id, tenant_id, name, provider, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?)`,
		machine.ID,
		machine.TenantID,
		machine.Name,
		nullIfEmpty(machine.Provider),
		formatTime(createdAt),
		formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert machine %s: %w", machine.ID, err)
	}
	return nil
}

// GetMachine loads a machine by id within a tenant.
func (s *Store) GetMachine(ctx context.Context, tenantID, id string) (models.CloudMachine, error) {
	if s == nil || s.DB == nil {
		return models.CloudMachine{}, errors.New("db store is nil")
	}
	row := s.DB.QueryRowContext(ctx, `SELECT id, tenant_id, name, provider, created_at, updated_at
		FROM machines WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return scanMachineRow(row)
}

// ListMachines returns all machines for a tenant ordered by creation time.
func (s *Store) ListMachines(ctx context.Context, tenantID string) ([]models.CloudMachine, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, tenant_id, name, provider, created_at, updated_at
		FROM machines WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer rows.Close()
	var out []models.CloudMachine
	for rows.Next() {
		m, err := scanMachineRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate machines: %w", err)
	}
	return out, nil
}

// DeleteMachine removes a machine row. Window cleanup is the caller's
// responsibility (see the registry's cascade delete).
func (s *Store) DeleteMachine(ctx context.Context, tenantID, id string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM machines WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete machine %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected machine %s: %w", id, err)
	}
	return affected > 0, nil
}

func scanMachineRow(scanner interface{ Scan(dest ...any) error }) (models.CloudMachine, error) {
	var m models.CloudMachine
	var provider sql.NullString
	var createdAt string
	var updatedAt string
	if err := scanner.Scan(&m.ID, &m.TenantID, &m.Name, &provider, &createdAt, &updatedAt); err != nil {
		return models.CloudMachine{}, err
	}
	if provider.Valid {
		m.Provider = provider.String
	}
	var err error
	if createdAt != "" {
		m.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return models.CloudMachine{}, fmt.Errorf("parse created_at: %w", err)
		}
	}
	if updatedAt != "" {
		m.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return models.CloudMachine{}, fmt.Errorf("parse updated_at: %w", err)
		}
	}
	return m, nil
}
