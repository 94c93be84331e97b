// ABOUTME: Order database operations for creating, retrieving, and updating orders.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/windvault/windvault/internal/models"
)

// CreateOrder inserts a new order row. Snapshot, result, and history lists
// are stored as JSON text columns.
func (s *Store) CreateOrder(ctx context.Context, order models.Order) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	if order.ID == "" {
		return errors.New("order id is required")
	}
	if order.TenantID == "" {
		return errors.New("order tenant_id is required")
	}
	if order.StaffID == "" {
		return errors.New("order staff_id is required")
	}
	if order.Status == "" {
		return errors.New("order status is required")
	}
	if order.Amount < 0 {
		return errors.New("order amount must not be negative")
	}
	now := time.Now().UTC()
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := order.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	date := order.Date
	if date.IsZero() {
		date = createdAt
	}
	snapshots, err := marshalList(order.Snapshots)
	if err != nil {
		return fmt.Errorf("marshal order %s snapshots: %w", order.ID, err)
	}
	results, err := marshalList(order.Results)
	if err != nil {
		return fmt.Errorf("marshal order %s results: %w", order.ID, err)
	}
	history, err := marshalList(order.History)
	if err != nil {
		return fmt.Errorf("marshal order %s history: %w", order.ID, err)
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO orders (
		id, tenant_id, staff_id, amount, date, status, completed_amount, remaining_amount,
		snapshots_json, results_json, history_json, total_consumed, loss, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.TenantID,
		order.StaffID,
		order.Amount,
		formatTime(date),
		order.Status,
		order.CompletedAmount,
		order.RemainingAmount,
		snapshots,
		results,
		history,
		order.TotalConsumed,
		order.Loss,
		formatTime(createdAt),
		formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}

// GetOrder loads an order by id within a tenant.
func (s *Store) GetOrder(ctx context.Context, tenantID, id string) (models.Order, error) {
	if s == nil || s.DB == nil {
		return models.Order{}, errors.New("db store is nil")
	}
	row := s.DB.QueryRowContext(ctx, `SELECT id, tenant_id, staff_id, amount, date, status, completed_amount, remaining_amount,
		snapshots_json, results_json, history_json, total_consumed, loss, created_at, updated_at
		FROM orders WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return scanOrderRow(row)
}

// ListOrders returns all orders for a tenant, newest first.
func (s *Store) ListOrders(ctx context.Context, tenantID string) ([]models.Order, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, tenant_id, staff_id, amount, date, status, completed_amount, remaining_amount,
		snapshots_json, results_json, history_json, total_consumed, loss, created_at, updated_at
		FROM orders WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var out []models.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// UpdateOrder rewrites the mutable fields of an order row. The snapshot list
// is included so that creation-time fixes remain possible, but ledger callers
// never change it after creation.
func (s *Store) UpdateOrder(ctx context.Context, order models.Order) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	if order.ID == "" {
		return false, errors.New("order id is required")
	}
	if order.TenantID == "" {
		return false, errors.New("order tenant_id is required")
	}
	snapshots, err := marshalList(order.Snapshots)
	if err != nil {
		return false, fmt.Errorf("marshal order %s snapshots: %w", order.ID, err)
	}
	results, err := marshalList(order.Results)
	if err != nil {
		return false, fmt.Errorf("marshal order %s results: %w", order.ID, err)
	}
	history, err := marshalList(order.History)
	if err != nil {
		return false, fmt.Errorf("marshal order %s history: %w", order.ID, err)
	}
	updatedAt := formatTime(time.Now().UTC())
	res, err := s.DB.ExecContext(ctx, `UPDATE orders SET
		staff_id = ?, amount = ?, status = ?, completed_amount = ?, remaining_amount = ?,
		snapshots_json = ?, results_json = ?, history_json = ?, total_consumed = ?, loss = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		order.StaffID,
		order.Amount,
		order.Status,
		order.CompletedAmount,
		order.RemainingAmount,
		snapshots,
		results,
		history,
		order.TotalConsumed,
		order.Loss,
		updatedAt,
		order.TenantID,
		order.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update order %s: %w", order.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected order %s: %w", order.ID, err)
	}
	return affected > 0, nil
}

// DeleteOrder removes an order row unconditionally. Windows referenced by the
// order are left untouched; they return to the pool by being unreferenced.
func (s *Store) DeleteOrder(ctx context.Context, tenantID, id string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM orders WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete order %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected order %s: %w", id, err)
	}
	return affected > 0, nil
}

// CountOrdersByStatus returns a count of a tenant's orders grouped by status.
func (s *Store) CountOrdersByStatus(ctx context.Context, tenantID string) (map[models.OrderStatus]int, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders WHERE tenant_id = ? GROUP BY status`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	defer rows.Close()
	out := make(map[models.OrderStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan order count: %w", err)
		}
		if status == "" {
			continue
		}
		out[models.OrderStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order counts: %w", err)
	}
	return out, nil
}

func scanOrderRow(scanner interface{ Scan(dest ...any) error }) (models.Order, error) {
	var o models.Order
	var status string
	var date string
	var snapshots sql.NullString
	var results sql.NullString
	var history sql.NullString
	var createdAt string
	var updatedAt string
	if err := scanner.Scan(
		&o.ID,
		&o.TenantID,
		&o.StaffID,
		&o.Amount,
		&date,
		&status,
		&o.CompletedAmount,
		&o.RemainingAmount,
		&snapshots,
		&results,
		&history,
		&o.TotalConsumed,
		&o.Loss,
		&createdAt,
		&updatedAt,
	); err != nil {
		return models.Order{}, err
	}
	if status == "" {
		return models.Order{}, errors.New("order status missing")
	}
	o.Status = models.OrderStatus(status)
	var err error
	if date != "" {
		o.Date, err = parseTime(date)
		if err != nil {
			return models.Order{}, fmt.Errorf("parse date: %w", err)
		}
	}
	if err := unmarshalList(snapshots, &o.Snapshots); err != nil {
		return models.Order{}, fmt.Errorf("parse snapshots_json: %w", err)
	}
	if err := unmarshalList(results, &o.Results); err != nil {
		return models.Order{}, fmt.Errorf("parse results_json: %w", err)
	}
	if err := unmarshalList(history, &o.History); err != nil {
		return models.Order{}, fmt.Errorf("parse history_json: %w", err)
	}
	if createdAt != "" {
		o.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return models.Order{}, fmt.Errorf("parse created_at: %w", err)
		}
	}
	if updatedAt != "" {
		o.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return models.Order{}, fmt.Errorf("parse updated_at: %w", err)
		}
	}
	return o, nil
}

func marshalList[T any](list []T) (interface{}, error) {
	if len(list) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalList[T any](col sql.NullString, dest *[]T) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dest)
}
