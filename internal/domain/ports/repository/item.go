package repository

import (
	"context"

	"telegram-digital-shop/internal/domain/model"
)

// -----------------------------
// Items (catalog boundary)
// -----------------------------

type ItemRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Item, error)
	ListVisible(ctx context.Context, tx Tx, limit int) ([]*model.Item, error)
	Save(ctx context.Context, tx Tx, it *model.Item) error
}
