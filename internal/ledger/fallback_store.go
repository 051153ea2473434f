package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mint-backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const fallbackSlotKey = "orders"

// ErrOrderNotFound the order ID is not present in the fallback slot
var ErrOrderNotFound = errors.New("order not found in fallback store")

// fallbackSlot is the single row holding the pending order list as JSON.
// Keeping the whole list in one slot makes every mutation a read-modify-write
// under one mutex, which is plenty for a store that only absorbs writes while
// the primary is down.
type fallbackSlot struct {
	Key       string `gorm:"primaryKey;size:32"`
	Data      string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (fallbackSlot) TableName() string {
	return "fallback_slots"
}

// FallbackStore local sqlite store holding orders the primary missed
type FallbackStore struct {
	mu sync.Mutex
	db *gorm.DB
}

// NewFallbackStore opens (or creates) the sqlite file and migrates the slot table
func NewFallbackStore(path string) (*FallbackStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open fallback store: %w", err)
	}
	if err := db.AutoMigrate(&fallbackSlot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate fallback store: %w", err)
	}
	return &FallbackStore{db: db}, nil
}

func (s *FallbackStore) load(ctx context.Context) ([]models.Order, error) {
	var slot fallbackSlot
	err := s.db.WithContext(ctx).Where("key = ?", fallbackSlotKey).First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []models.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback slot: %w", err)
	}

	var orders []models.Order
	if slot.Data != "" {
		if err := json.Unmarshal([]byte(slot.Data), &orders); err != nil {
			return nil, fmt.Errorf("failed to decode fallback slot: %w", err)
		}
	}
	return orders, nil
}

func (s *FallbackStore) save(ctx context.Context, orders []models.Order) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("failed to encode fallback slot: %w", err)
	}

	slot := fallbackSlot{Key: fallbackSlotKey, Data: string(data), UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Save(&slot).Error
	if err != nil {
		return fmt.Errorf("failed to write fallback slot: %w", err)
	}
	return nil
}

// Append adds an order to the fallback slot
func (s *FallbackStore) Append(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return err
	}
	orders = append(orders, *order)
	return s.save(ctx, orders)
}

// Orders returns every order currently parked in the fallback slot
func (s *FallbackStore) Orders(ctx context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// AttachTokenIDs sets token IDs on a parked order
func (s *FallbackStore) AttachTokenIDs(ctx context.Context, orderID string, tokenIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range orders {
		if orders[i].ID == orderID {
			orders[i].TokenIDs = models.StringList(tokenIDs)
			return s.save(ctx, orders)
		}
	}
	return ErrOrderNotFound
}

// Remove drops a parked order, typically after it migrated to the primary
func (s *FallbackStore) Remove(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := orders[:0]
	removed := false
	for _, o := range orders {
		if o.ID == orderID {
			removed = true
			continue
		}
		kept = append(kept, o)
	}
	if !removed {
		return ErrOrderNotFound
	}
	return s.save(ctx, kept)
}
