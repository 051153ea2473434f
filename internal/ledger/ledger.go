package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mint-backend/internal/events"
	"mint-backend/internal/metrics"
	"mint-backend/internal/models"

	"github.com/sirupsen/logrus"
)

// Ledger is the resilient order ledger. Writes go to the primary store; when
// the primary is down they land in the local fallback store instead, and a
// background flush migrates them back once the primary recovers. Any order is
// held by exactly one store at a time.
type Ledger struct {
	primary   PrimaryStore // nil when the primary never came up
	fallback  LocalStore
	publisher *events.Publisher
	logger    *logrus.Logger

	primaryTimeout time.Duration
}

// NewLedger wires the resilient ledger. primary may be nil.
func NewLedger(primary PrimaryStore, fallback LocalStore, publisher *events.Publisher, logger *logrus.Logger) *Ledger {
	return &Ledger{
		primary:        primary,
		fallback:       fallback,
		publisher:      publisher,
		logger:         logger,
		primaryTimeout: 5 * time.Second,
	}
}

// Record persists the order in exactly one store and publishes the recorded
// event. The write only fails when both stores reject it.
func (l *Ledger) Record(ctx context.Context, order *models.Order) error {
	if l.primary != nil {
		primaryCtx, cancel := context.WithTimeout(ctx, l.primaryTimeout)
		err := l.primary.Record(primaryCtx, order)
		cancel()
		if err == nil {
			metrics.OrdersRecorded.WithLabelValues("primary").Inc()
			l.publisher.OrderRecorded(order)
			return nil
		}
		l.logger.WithFields(logrus.Fields{
			"orderId": order.ID,
			"error":   err.Error(),
		}).Warn("Primary store rejected order, using fallback")
	}

	if err := l.fallback.Append(ctx, order); err != nil {
		return fmt.Errorf("fallback store rejected order %s: %w", order.ID, err)
	}
	metrics.OrdersRecorded.WithLabelValues("fallback").Inc()
	l.publisher.OrderRecorded(order)
	return nil
}

// AttachTokenIDs records the minted token IDs against whichever store holds
// the order, then publishes the confirmed event.
func (l *Ledger) AttachTokenIDs(ctx context.Context, orderID string, tokenIDs []string) error {
	attached := false
	if l.primary != nil {
		primaryCtx, cancel := context.WithTimeout(ctx, l.primaryTimeout)
		err := l.primary.AttachTokenIDs(primaryCtx, orderID, tokenIDs)
		cancel()
		if err == nil {
			attached = true
		} else {
			l.logger.WithFields(logrus.Fields{
				"orderId": orderID,
				"error":   err.Error(),
			}).Debug("Order not updated in primary, trying fallback")
		}
	}

	if !attached {
		if err := l.fallback.AttachTokenIDs(ctx, orderID, tokenIDs); err != nil {
			return fmt.Errorf("failed to attach token ids to order %s: %w", orderID, err)
		}
	}

	l.publisher.OrderConfirmed(&models.Order{ID: orderID, TokenIDs: models.StringList(tokenIDs)})
	return nil
}

// List merges both stores, newest first. An order migrating between stores
// may briefly appear in both; the primary copy wins.
func (l *Ledger) List(ctx context.Context) ([]models.Order, error) {
	seen := make(map[string]bool)
	var merged []models.Order

	if l.primary != nil {
		primaryCtx, cancel := context.WithTimeout(ctx, l.primaryTimeout)
		orders, err := l.primary.List(primaryCtx)
		cancel()
		if err != nil {
			l.logger.WithError(err).Warn("Primary store list failed, serving fallback only")
		} else {
			for _, o := range orders {
				seen[o.ID] = true
				merged = append(merged, o)
			}
		}
	}

	parked, err := l.fallback.Orders(ctx)
	if err != nil {
		if merged == nil {
			return nil, err
		}
		l.logger.WithError(err).Warn("Fallback store list failed")
	}
	for _, o := range parked {
		if !seen[o.ID] {
			merged = append(merged, o)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})
	if merged == nil {
		merged = []models.Order{}
	}
	return merged, nil
}

// FlushLoop periodically migrates parked fallback orders to the primary.
// Blocks until the context is cancelled.
func (l *Ledger) FlushLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Flush(ctx)
		}
	}
}

// Flush migrates every parked order the primary will accept. An order leaves
// the fallback store only after the primary write succeeded.
func (l *Ledger) Flush(ctx context.Context) {
	if l.primary == nil {
		return
	}

	parked, err := l.fallback.Orders(ctx)
	if err != nil {
		l.logger.WithError(err).Warn("Failed to read fallback store for flush")
		return
	}

	for i := range parked {
		order := parked[i]
		primaryCtx, cancel := context.WithTimeout(ctx, l.primaryTimeout)
		err := l.primary.RecordIfAbsent(primaryCtx, &order)
		cancel()
		if err != nil {
			// primary is likely still down, retry on the next tick
			l.logger.WithFields(logrus.Fields{
				"orderId": order.ID,
				"error":   err.Error(),
			}).Debug("Fallback flush halted")
			return
		}

		if err := l.fallback.Remove(ctx, order.ID); err != nil {
			l.logger.WithFields(logrus.Fields{
				"orderId": order.ID,
				"error":   err.Error(),
			}).Warn("Failed to remove migrated order from fallback store")
			continue
		}
		metrics.FallbackFlushes.Inc()
		l.logger.WithField("orderId", order.ID).Info("Order migrated from fallback store to primary")
	}
}
