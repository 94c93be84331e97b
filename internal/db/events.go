package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Event is a tenant-scoped audit log row recorded by ledger, registry, and
// arbiter operations.
type Event struct {
	ID       int64
	TS       time.Time
	TenantID string
	Kind     string
	WindowID string
	OrderID  string
	Msg      string
	JSON     string
}

// RecordEvent inserts an event row.
func (s *Store) RecordEvent(ctx context.Context, tenantID, kind string, windowID, orderID *string, msg string, jsonPayload string) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	if tenantID == "" {
		return errors.New("event tenant_id is required")
	}
	if kind == "" {
		return errors.New("event kind is required")
	}
	now := formatTime(time.Now().UTC())
	var window sql.NullString
	if windowID != nil && *windowID != "" {
		window = sql.NullString{Valid: true, String: *windowID}
	}
	var order sql.NullString
	if orderID != nil && *orderID != "" {
		order = sql.NullString{Valid: true, String: *orderID}
	}
	var msgVal interface{}
	if msg != "" {
		msgVal = msg
	}
	var jsonVal interface{}
	if jsonPayload != "" {
		jsonVal = jsonPayload
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO events (ts, tenant_id, kind, window_id, order_id, msg, json) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		now, tenantID, kind, window, order, msgVal, jsonVal)
	if err != nil {
		return fmt.Errorf("insert event %q: %w", kind, err)
	}
	return nil
}

// ListEvents returns the most recent events for a tenant, newest first.
func (s *Store) ListEvents(ctx context.Context, tenantID string, limit int) ([]Event, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("db store is nil")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, ts, tenant_id, kind, window_id, order_id, msg, json
		FROM events WHERE tenant_id = ? ORDER BY id DESC LIMIT ?`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var ts string
		var window sql.NullString
		var order sql.NullString
		var msg sql.NullString
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &ts, &e.TenantID, &e.Kind, &window, &order, &msg, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ts != "" {
			e.TS, err = parseTime(ts)
			if err != nil {
				return nil, fmt.Errorf("parse event ts: %w", err)
			}
		}
		if window.Valid {
			e.WindowID = window.String
		}
		if order.Valid {
			e.OrderID = order.String
		}
		if msg.Valid {
			e.Msg = msg.String
		}
		if payload.Valid {
			e.JSON = payload.String
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
