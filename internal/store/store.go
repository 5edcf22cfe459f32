// Package store archives check runs and push subscriptions. The JSON
// history snapshot only keeps the latest state; this layer keeps the
// long tail the HTTP API serves.
package store

import (
	"context"

	"gorm.io/gorm"

	"slotwatch-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	RecordCheck(ctx context.Context, run *model.CheckRun) error
	RecentChecks(ctx context.Context, limit int) ([]model.CheckRun, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// RecordCheck appends one archived check run.
func (s *gormStore) RecordCheck(ctx context.Context, run *model.CheckRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

// RecentChecks returns the most recent check runs, newest first.
func (s *gormStore) RecentChecks(ctx context.Context, limit int) ([]model.CheckRun, error) {
	var runs []model.CheckRun
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// DB exposes the underlying connection for handlers that need direct
// queries (subscriptions).
func (s *gormStore) DB() *gorm.DB {
	return s.db
}
