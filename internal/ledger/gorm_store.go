package ledger

import (
	"context"
	"fmt"

	"mint-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore primary order store backed by a gorm database
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates the primary store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Record inserts a new order
func (s *GormStore) Record(ctx context.Context, order *models.Order) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to record order: %w", err)
	}
	return nil
}

// RecordIfAbsent inserts the order, silently skipping an existing ID
func (s *GormStore) RecordIfAbsent(ctx context.Context, order *models.Order) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(order).Error
	if err != nil {
		return fmt.Errorf("failed to record order: %w", err)
	}
	return nil
}

// AttachTokenIDs sets the minted token IDs on an existing order
func (s *GormStore) AttachTokenIDs(ctx context.Context, orderID string, tokenIDs []string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("token_ids", models.StringList(tokenIDs))
	if result.Error != nil {
		return fmt.Errorf("failed to attach token ids: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns all orders, newest first
func (s *GormStore) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Order("timestamp DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
