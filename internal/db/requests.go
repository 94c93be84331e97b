package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/windvault/windvault/internal/models"
)

// CreateRequest inserts a new window request row.
func (s *Store) CreateRequest(ctx context.Context, request models.WindowRequest) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	if request.ID == "" {
		return errors.New("request id is required")
	}
	if request.TenantID == "" {
		return errors.New("request tenant_id is required")
	}
	if request.StaffID == "" {
		return errors.New("request staff_id is required")
	}
	if request.Type != models.RequestApply && request.Type != models.RequestRelease {
		return fmt.Errorf("request type %q is invalid", request.Type)
	}
	if request.Status == "" {
		return errors.New("request status is required")
	}
	createdAt := request.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var window interface{}
	if request.WindowID != nil && *request.WindowID != "" {
		window = *request.WindowID
	}
	var processedAt interface{}
	if !request.ProcessedAt.IsZero() {
		processedAt = formatTime(request.ProcessedAt)
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO requests (
		id, tenant_id, staff_id, staff_name, type, window_id, status, created_at, processed_at, processed_by
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID,
		request.TenantID,
		request.StaffID,
		request.StaffName,
		request.Type,
		window,
		request.Status,
		formatTime(createdAt),
		processedAt,
		nullIfEmpty(request.ProcessedBy),
	)
	if err != nil {
		return fmt.Errorf("insert request %s: %w", request.ID, err)
	}
	return nil
}

// GetRequest loads a request by id within a tenant.
func (s *Store) GetRequest(ctx context.Context, tenantID, id string) (models.WindowRequest, error) {
	if s == nil || s.DB == nil {
		return models.WindowRequest{}, errors.New("db store is nil")
	}
	row := s.DB.QueryRowContext(ctx, `SELECT id, tenant_id, staff_id, staff_name, type, window_id, status, created_at, processed_at, processed_by
		FROM requests WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return scanRequestRow(row)
}

// ListRequests returns a tenant's requests, newest first, optionally filtered
// by status ("" for all).
func (s *Store) ListRequests(ctx context.Context, tenantID string, status models.RequestStatus) ([]models.WindowRequest, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	query := `SELECT id, tenant_id, staff_id, staff_name, type, window_id, status, created_at, processed_at, processed_by
		FROM requests WHERE tenant_id = ?`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()
	var out []models.WindowRequest
	for rows.Next() {
		r, err := scanRequestRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

// StampRequest writes the arbitration decision fields. Re-stamping an already
// processed request is permitted; callers enforce at-most-once processing.
func (s *Store) StampRequest(ctx context.Context, tenantID, id string, status models.RequestStatus, processedBy string, processedAt time.Time) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	if status != models.RequestApproved && status != models.RequestRejected {
		return false, fmt.Errorf("request decision %q is invalid", status)
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE requests SET status = ?, processed_at = ?, processed_by = ? WHERE tenant_id = ? AND id = ?`,
		status, formatTime(processedAt), nullIfEmpty(processedBy), tenantID, id)
	if err != nil {
		return false, fmt.Errorf("stamp request %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected request %s: %w", id, err)
	}
	return affected > 0, nil
}

// DeleteRequest removes a request row.
func (s *Store) DeleteRequest(ctx context.Context, tenantID, id string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM requests WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete request %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected request %s: %w", id, err)
	}
	return affected > 0, nil
}

func scanRequestRow(scanner interface{ Scan(dest ...any) error }) (models.WindowRequest, error) {
	var r models.WindowRequest
	var reqType string
	var window sql.NullString
	var status string
	var createdAt string
	var processedAt sql.NullString
	var processedBy sql.NullString
	if err := scanner.Scan(&r.ID, &r.TenantID, &r.StaffID, &r.StaffName, &reqType, &window, &status, &createdAt, &processedAt, &processedBy); err != nil {
		return models.WindowRequest{}, err
	}
	if reqType == "" {
		return models.WindowRequest{}, errors.New("request type missing")
	}
	r.Type = models.RequestType(reqType)
	if status == "" {
		return models.WindowRequest{}, errors.New("request status missing")
	}
	r.Status = models.RequestStatus(status)
	if window.Valid {
		value := window.String
		r.WindowID = &value
	}
	var err error
	if createdAt != "" {
		r.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return models.WindowRequest{}, fmt.Errorf("parse created_at: %w", err)
		}
	}
	if processedAt.Valid {
		r.ProcessedAt, err = parseTime(processedAt.String)
		if err != nil {
			return models.WindowRequest{}, fmt.Errorf("parse processed_at: %w", err)
		}
	}
	if processedBy.Valid {
		r.ProcessedBy = processedBy.String
	}
	return r, nil
}
