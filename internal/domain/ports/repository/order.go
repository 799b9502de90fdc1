package repository

import (
	"context"
	"time"

	"telegram-digital-shop/internal/domain/model"
)

// -----------------------------
// Orders
// -----------------------------

type OrderRepository interface {
	// Create inserts a new order; ErrAlreadyExists on an order id collision.
	Create(ctx context.Context, tx Tx, o *model.Order) error
	FindByOrderID(ctx context.Context, tx Tx, orderID int64) (*model.Order, error)
	// MarkPaid sets paid=true, status=untaken, price and data only while the
	// order is still open (processing, unpaid). false means nothing changed.
	MarkPaid(ctx context.Context, tx Tx, orderID int64, price model.Price, data map[string]string) (bool, error)
	// CancelIfOpen moves an open order to canceled. false means nothing changed.
	CancelIfOpen(ctx context.Context, tx Tx, orderID int64) (bool, error)
	// CancelStale cancels open orders created before olderThan and returns how many.
	CancelStale(ctx context.Context, tx Tx, olderThan time.Time, limit int) (int, error)
}
