package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo keeps one sell session per customer as JSON with a TTL.
type SessionRepo struct {
	client RedisClient
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewSessionRepo(client RedisClient, ttl time.Duration, logger *zerolog.Logger) *SessionRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepo{
		client: client,
		ttl:    ttl,
		log:    logger,
	}
}

func sessionKey(customer int64) string {
	return fmt.Sprintf("sell_session:%d", customer)
}

func (s *SessionRepo) Load(ctx context.Context, customer int64) (model.Dialogue, error) {
	data, err := s.client.Get(ctx, sessionKey(customer))
	if IsMiss(err) {
		return model.NoSession{}, nil
	}
	if err != nil {
		return nil, err
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil || sess.Customer != customer {
		// unreadable state is dropped; the customer starts over
		s.log.Warn().Err(err).Int64("tg_id", customer).Msg("dropping corrupt sell session")
		_ = s.client.Del(ctx, sessionKey(customer))
		return model.NoSession{}, nil
	}
	return model.AwaitingAct{Session: &sess}, nil
}

func (s *SessionRepo) Store(ctx context.Context, sess *model.Session) error {
	if sess == nil || sess.Customer == 0 {
		return domain.ErrInvalidArgument
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(sess.Customer), data, s.ttl)
}

func (s *SessionRepo) Discard(ctx context.Context, customer int64) error {
	return s.client.Del(ctx, sessionKey(customer))
}
