//go:build !integration

package redis

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
)

func TestSessionRepo(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	t.Run("should report NoSession for an unknown customer", func(t *testing.T) {
		repo := NewSessionRepo(newMemClient(), time.Hour, &logger)

		d, err := repo.Load(ctx, 42)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := d.(model.NoSession); !ok {
			t.Errorf("expected NoSession, got %T", d)
		}
	})

	t.Run("should store, load and discard a session", func(t *testing.T) {
		// Arrange
		client := newMemClient()
		repo := NewSessionRepo(client, 2*time.Hour, &logger)
		sess := &model.Session{
			ID:          "01J0000000000000000000000",
			Customer:    42,
			Scenario:    "account",
			OrderID:     1234567,
			CurrentStep: 2,
			Collected:   map[string]string{"item": "netflix", "email": "a@b.c"},
			Pending:     &model.DataRequest{Type: model.DataEmail, Validate: true},
			Target:      model.RenderTarget{ChatID: 42, MessageID: 7},
		}

		// Act
		if err := repo.Store(ctx, sess); err != nil {
			t.Fatalf("Store: %v", err)
		}
		d, err := repo.Load(ctx, 42)

		// Assert
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		aw, ok := d.(model.AwaitingAct)
		if !ok {
			t.Fatalf("expected AwaitingAct, got %T", d)
		}
		if aw.Session.CurrentStep != 2 || aw.Session.Collected["email"] != "a@b.c" || aw.Session.Pending.Type != model.DataEmail {
			t.Errorf("session did not round-trip: %+v", aw.Session)
		}
		if client.ttls[sessionKey(42)] != 2*time.Hour {
			t.Errorf("expected ttl 2h, got %v", client.ttls[sessionKey(42)])
		}

		if err := repo.Discard(ctx, 42); err != nil {
			t.Fatalf("Discard: %v", err)
		}
		d, _ = repo.Load(ctx, 42)
		if _, ok := d.(model.NoSession); !ok {
			t.Errorf("expected NoSession after discard, got %T", d)
		}
	})

	t.Run("should drop a corrupt session", func(t *testing.T) {
		client := newMemClient()
		client.data[sessionKey(42)] = "{not json"
		repo := NewSessionRepo(client, time.Hour, &logger)

		d, err := repo.Load(ctx, 42)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := d.(model.NoSession); !ok {
			t.Errorf("expected NoSession, got %T", d)
		}
		if _, left := client.data[sessionKey(42)]; left {
			t.Error("expected corrupt key to be deleted")
		}
	})

	t.Run("should surface transport errors", func(t *testing.T) {
		boom := errors.New("connection refused")
		client := newMemClient()
		client.GetFunc = func(ctx context.Context, key string) (string, error) { return "", boom }
		repo := NewSessionRepo(client, time.Hour, &logger)

		if _, err := repo.Load(ctx, 42); !errors.Is(err, boom) {
			t.Errorf("expected transport error, got %v", err)
		}
	})

	t.Run("should reject a session without a customer", func(t *testing.T) {
		repo := NewSessionRepo(newMemClient(), time.Hour, &logger)
		if err := repo.Store(ctx, &model.Session{}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)
	client := newMemClient()
	rl := NewRateLimiter(client)
	rl.now = func() time.Time { return at }
	key := UserCommandKey(42, "callback")

	t.Run("should count hits within one window", func(t *testing.T) {
		for want := int64(1); want <= 4; want++ {
			n, err := rl.Hit(ctx, key, time.Minute)
			if err != nil || n != want {
				t.Fatalf("expected count %d, got %d (%v)", want, n, err)
			}
		}
		bucket := windowKey(key, at, time.Minute)
		if client.ttls[bucket] != 2*time.Minute {
			t.Errorf("expected bucket ttl 2m, got %v", client.ttls[bucket])
		}
	})

	t.Run("should start fresh in the next window", func(t *testing.T) {
		rl.now = func() time.Time { return at.Add(time.Minute) }
		if n, err := rl.Hit(ctx, key, time.Minute); err != nil || n != 1 {
			t.Errorf("expected count 1 in a new window, got %d (%v)", n, err)
		}
	})

	t.Run("should reject a zero window", func(t *testing.T) {
		if _, err := rl.Hit(ctx, key, 0); err == nil {
			t.Error("expected error for zero window")
		}
	})
}
