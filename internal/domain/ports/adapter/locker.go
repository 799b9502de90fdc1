package adapter

import (
	"context"
	"time"
)

// Locker is a short-lived mutual exclusion keyed by string, shared across replicas.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
