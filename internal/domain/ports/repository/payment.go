package repository

import (
	"context"
	"time"

	"telegram-digital-shop/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	// Create inserts a new payment; ErrAlreadyExists on a payment id collision.
	Create(ctx context.Context, tx Tx, p *model.Payment) error
	FindByPaymentID(ctx context.Context, tx Tx, paymentID int64) (*model.Payment, error)
	// FindUnpaid looks a payment up with status<>'paid'; ErrNotFound when it
	// does not exist or is already settled. Inside a tx the row is locked.
	FindUnpaid(ctx context.Context, tx Tx, paymentID int64) (*model.Payment, error)
	SetTelegramMessage(ctx context.Context, tx Tx, paymentID int64, messageID int) error
	// Close transitions a payment to paid only if it is not paid yet and
	// reports whether anything changed.
	Close(ctx context.Context, tx Tx, paymentID int64, transactionID *string, paidAt time.Time) (bool, error)
}
