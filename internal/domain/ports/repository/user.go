package repository

import (
	"context"

	"telegram-digital-shop/internal/domain/model"
)

// -----------------------------
// Users (balance boundary)
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.User, error)
	Touch(ctx context.Context, tx Tx, tgID int64) error
	// Debit decrements the balance only when it covers amount; false means it did not.
	Debit(ctx context.Context, tx Tx, tgID int64, amount int64) (bool, error)
	// Credit increments the balance and the refill counter.
	Credit(ctx context.Context, tx Tx, tgID int64, amount int64) error
}
