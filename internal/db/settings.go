package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/windvault/windvault/internal/models"
)

// GetSettings loads the tenant settings singleton. Returns sql.ErrNoRows if
// the tenant has never saved settings.
func (s *Store) GetSettings(ctx context.Context, tenantID string) (models.Settings, error) {
	if s == nil || s.DB == nil {
		return models.Settings{}, errors.New("db store is nil")
	}
	row := s.DB.QueryRowContext(ctx, `SELECT tenant_id, gold_rate, window_price, updated_at FROM settings WHERE tenant_id = ?`, tenantID)
	var settings models.Settings
	var updatedAt string
	if err := row.Scan(&settings.TenantID, &settings.GoldRate, &settings.WindowPrice, &updatedAt); err != nil {
		return models.Settings{}, err
	}
	var err error
	if updatedAt != "" {
		settings.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return models.Settings{}, fmt.Errorf("parse updated_at: %w", err)
		}
	}
	return settings, nil
}

// UpsertSettings writes the tenant settings singleton.
func (s *Store) UpsertSettings(ctx context.Context, settings models.Settings) error {
	if s == nil || s.DB == nil {
		return errors.New("db store is nil")
	}
	if settings.TenantID == "" {
		return errors.New("settings tenant_id is required")
	}
	updatedAt := formatTime(time.Now().UTC())
	_, err := s.DB.ExecContext(ctx, `INSERT INTO settings (tenant_id, gold_rate, window_price, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET gold_rate = excluded.gold_rate, window_price = excluded.window_price, updated_at = excluded.updated_at`,
		settings.TenantID, settings.GoldRate, settings.WindowPrice, updatedAt)
	if err != nil {
		return fmt.Errorf("upsert settings %s: %w", settings.TenantID, err)
	}
	return nil
}

// SettingsExist reports whether a tenant has saved settings.
func (s *Store) SettingsExist(ctx context.Context, tenantID string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("db store is nil")
	}
	_, err := s.GetSettings(ctx, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
