// Package store records scan history in PostgreSQL through gorm.
package store

import (
	"context"
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"scan-fill/pkg/models"
)

// Recorder keeps an audit trail of scans and merges.
type Recorder interface {
	Record(ctx context.Context, rec *models.ScanRecord) error
	List(ctx context.Context, sessionID string) ([]models.ScanRecord, error)
}

// History is a Recorder backed by gorm.
type History struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the history table.
func Open(dsn string) (*History, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewHistory(db)
}

// NewHistory wraps an existing connection and migrates the history table.
func NewHistory(db *gorm.DB) (*History, error) {
	if err := db.AutoMigrate(&models.ScanRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate scan history: %w", err)
	}
	return &History{db: db}, nil
}

// Record implements Recorder.
func (h *History) Record(ctx context.Context, rec *models.ScanRecord) error {
	if err := h.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to record %s: %w", rec.Action, err)
	}
	return nil
}

// List implements Recorder, oldest first.
func (h *History) List(ctx context.Context, sessionID string) ([]models.ScanRecord, error) {
	var records []models.ScanRecord
	err := h.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scan history: %w", err)
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (h *History) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Nop is the Recorder used when no database is configured.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, *models.ScanRecord) error { return nil }

// List implements Recorder.
func (Nop) List(context.Context, string) ([]models.ScanRecord, error) { return nil, nil }

// Best records rec, logging a failure instead of returning it.
func Best(ctx context.Context, r Recorder, rec *models.ScanRecord) {
	if err := r.Record(ctx, rec); err != nil {
		log.Printf("[history] %v", err)
	}
}
