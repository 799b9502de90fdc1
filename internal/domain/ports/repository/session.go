package repository

import (
	"context"

	"telegram-digital-shop/internal/domain/model"
)

// SessionRepository keeps at most one sell session per customer.
type SessionRepository interface {
	// Load returns model.NoSession when nothing is stored for the customer.
	Load(ctx context.Context, customer int64) (model.Dialogue, error)
	// Store replaces whatever the customer had before.
	Store(ctx context.Context, s *model.Session) error
	Discard(ctx context.Context, customer int64) error
}
