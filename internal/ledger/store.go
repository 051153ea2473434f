package ledger

import (
	"context"

	"mint-backend/internal/models"
)

// PrimaryStore is the durable order store, normally postgres
type PrimaryStore interface {
	Record(ctx context.Context, order *models.Order) error
	// RecordIfAbsent inserts the order unless its ID already exists. Used
	// when migrating fallback entries, where a retry may race an earlier
	// successful write.
	RecordIfAbsent(ctx context.Context, order *models.Order) error
	AttachTokenIDs(ctx context.Context, orderID string, tokenIDs []string) error
	List(ctx context.Context) ([]models.Order, error)
}

// LocalStore is the fallback order store that absorbs writes while the
// primary is unreachable
type LocalStore interface {
	Append(ctx context.Context, order *models.Order) error
	Orders(ctx context.Context) ([]models.Order, error)
	AttachTokenIDs(ctx context.Context, orderID string, tokenIDs []string) error
	Remove(ctx context.Context, orderID string) error
}
