package usecase

import (
	"context"
	"errors"
	"math/rand"

	"telegram-digital-shop/internal/domain"
)

const (
	orderIDDigits   = 7
	paymentIDDigits = 10
	idAttempts      = 5
)

// randomID returns a uniformly random number with exactly `digits` digits.
func randomID(digits int) int64 {
	lo := int64(1)
	for i := 1; i < digits; i++ {
		lo *= 10
	}
	return lo + rand.Int63n(9*lo)
}

// createWithRandomID retries insert with fresh ids while it collides.
func createWithRandomID(ctx context.Context, digits int, insert func(id int64) error) (int64, error) {
	var err error
	for i := 0; i < idAttempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		id := randomID(digits)
		if err = insert(id); err == nil {
			return id, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return 0, err
		}
	}
	return 0, err
}
