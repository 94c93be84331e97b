package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/windvault/windvault/internal/models"
)

const timeLayout = time.RFC3339Nano

// CreateWindow inserts a new window row.
func (s *Store) CreateWindow(ctx context.Context, window models.CloudWindow) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	if window.ID == "" {
		return errors.New("window id is required")
	}
	if window.TenantID == "" {
		return errors.New("window tenant_id is required")
	}
	if window.MachineID == "" {
		return errors.New("window machine_id is required")
	}
	if window.WindowNumber <= 0 {
		return errors.New("window number must be positive")
	}
	now := time.Now().UTC()
	createdAt := window.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := window.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	var user interface{}
	if window.UserID != nil && *window.UserID != "" {
		user = *window.UserID
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO windows (
		id, tenant_id, machine_id, window_number, gold_balance, user_id, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		window.ID,
		window.TenantID,
		window.MachineID,
		window.WindowNumber,
		window.GoldBalance,
		user,
		formatTime(createdAt),
		formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert window %s: %w", window.ID, err)
	}
	return nil
}

// GetWindow loads a window by id within a tenant.
func (s *Store) GetWindow(ctx context.Context, tenantID, id string) (models.CloudWindow, error) {
	if s == nil || s.DB == nil {
		return models.CloudWindow{}, errors.New("db store is nil")
	}
	row := s.DB.QueryRowContext(ctx, `SELECT id, tenant_id, machine_id, window_number, gold_balance, user_id, created_at, updated_at
		FROM windows WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return scanWindowRow(row)
}

// ListWindows returns all windows for a tenant ordered by machine and number.
func (s *Store) ListWindows(ctx context.Context, tenantID string) ([]models.CloudWindow, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, tenant_id, machine_id, window_number, gold_balance, user_id, created_at, updated_at
		FROM windows WHERE tenant_id = ? ORDER BY machine_id, window_number`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()
	var out []models.CloudWindow
	for rows.Next() {
		w, err := scanWindowRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate windows: %w", err)
	}
	return out, nil
}

// ListWindowsByMachine returns the windows owned by one machine.
func (s *Store) ListWindowsByMachine(ctx context.Context, tenantID, machineID string) ([]models.CloudWindow, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, tenant_id, machine_id, window_number, gold_balance, user_id, created_at, updated_at
		FROM windows WHERE tenant_id = ? AND machine_id = ? ORDER BY window_number`, tenantID, machineID)
	if err != nil {
		return nil, fmt.Errorf("list windows for machine %s: %w", machineID, err)
	}
	defer rows.Close()
	var out []models.CloudWindow
	for rows.Next() {
		w, err := scanWindowRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate machine windows: %w", err)
	}
	return out, nil
}

// UpdateWindowAssignment writes the window's assigned user. A nil userID
// clears the assignment. Returns false if no row matched.
func (s *Store) UpdateWindowAssignment(ctx context.Context, tenantID, id string, userID *string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	var user interface{}
	if userID != nil && *userID != "" {
		user = *userID
	}
	updatedAt := formatTime(time.Now().UTC())
	res, err := s.DB.ExecContext(ctx, `UPDATE windows SET user_id = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		user, updatedAt, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("update window %s assignment: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected window %s: %w", id, err)
	}
	return affected > 0, nil
}

// UpdateWindowBalance writes an absolute gold balance. Returns false if no
// row matched.
func (s *Store) UpdateWindowBalance(ctx context.Context, tenantID, id string, balance int64) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	updatedAt := formatTime(time.Now().UTC())
	res, err := s.DB.ExecContext(ctx, `UPDATE windows SET gold_balance = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		balance, updatedAt, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("update window %s balance: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected window %s: %w", id, err)
	}
	return affected > 0, nil
}

// AddWindowBalance applies a signed delta to the gold balance atomically.
// Returns false if no row matched.
func (s *Store) AddWindowBalance(ctx context.Context, tenantID, id string, delta int64) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	updatedAt := formatTime(time.Now().UTC())
	res, err := s.DB.ExecContext(ctx, `UPDATE windows SET gold_balance = gold_balance + ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		delta, updatedAt, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("add window %s balance: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected window %s: %w", id, err)
	}
	return affected > 0, nil
}

// DeleteWindow removes a single window row.
func (s *Store) DeleteWindow(ctx context.Context, tenantID, id string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM windows WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete window %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected window %s: %w", id, err)
	}
	return affected > 0, nil
}

func scanWindowRow(scanner interface{ Scan(dest ...any) error }) (models.CloudWindow, error) {
	var w models.CloudWindow
	var user sql.NullString
	var createdAt string
	var updatedAt string
	if err := scanner.Scan(&w.ID, &w.TenantID, &w.MachineID, &w.WindowNumber, &w.GoldBalance, &user, &createdAt, &updatedAt); err != nil {
		return models.CloudWindow{}, err
	}
	if user.Valid {
		value := user.String
		w.UserID = &value
	}
	var err error
	if createdAt != "" {
		w.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return models.CloudWindow{}, fmt.Errorf("parse created_at: %w", err)
		}
	}
	if updatedAt != "" {
		w.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return models.CloudWindow{}, fmt.Errorf("parse updated_at: %w", err)
		}
	}
	return w, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
