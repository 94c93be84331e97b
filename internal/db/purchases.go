package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/windvault/windvault/internal/models"
)

// CreatePurchase inserts an append-only purchase ledger row.
func (s *Store) CreatePurchase(ctx context.Context, purchase models.Purchase) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	if purchase.ID == "" {
		return errors.New("purchase id is required")
	}
	if purchase.TenantID == "" {
		return errors.New("purchase tenant_id is required")
	}
	if purchase.Quantity < 0 {
		return errors.New("purchase quantity must not be negative")
	}
	createdAt := purchase.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO purchases (
		id, tenant_id, machine_id, quantity, cost, note, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		purchase.ID,
		purchase.TenantID,
		nullIfEmpty(purchase.MachineID),
		purchase.Quantity,
		purchase.Cost,
		nullIfEmpty(purchase.Note),
		formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("insert purchase %s: %w", purchase.ID, err)
	}
	return nil
}

// ListPurchases returns a tenant's purchases, newest first.
func (s *Store) ListPurchases(ctx context.Context, tenantID string) ([]models.Purchase, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, tenant_id, machine_id, quantity, cost, note, created_at
		FROM purchases WHERE tenant_id = ? ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()
	var out []models.Purchase
	for rows.Next() {
		p, err := scanPurchaseRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return out, nil
}

// DeletePurchase removes a purchase row.
func (s *Store) DeletePurchase(ctx context.Context, tenantID, id string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM purchases WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete purchase %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected purchase %s: %w", id, err)
	}
	return affected > 0, nil
}

func scanPurchaseRow(scanner interface{ Scan(dest ...any) error }) (models.Purchase, error) {
	var p models.Purchase
	var machine sql.NullString
	var note sql.NullString
	var createdAt string
	if err := scanner.Scan(&p.ID, &p.TenantID, &machine, &p.Quantity, &p.Cost, &note, &createdAt); err != nil {
		return models.Purchase{}, err
	}
	if machine.Valid {
		p.MachineID = machine.String
	}
	if note.Valid {
		p.Note = note.String
	}
	var err error
	if createdAt != "" {
		p.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return models.Purchase{}, fmt.Errorf("parse created_at: %w", err)
		}
	}
	return p, nil
}
