package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/infra/metrics"
	"telegram-digital-shop/internal/usecase"
)

// OrderSweeper periodically cancels orders left open by abandoned sessions.
type OrderSweeper struct {
	interval    time.Duration
	expireAfter time.Duration
	orderUC     usecase.OrderUseCase
	log         *zerolog.Logger
}

func NewOrderSweeper(interval, expireAfter time.Duration, orderUC usecase.OrderUseCase, logger *zerolog.Logger) *OrderSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	sweepLog := logger.With().Str("component", "OrderSweeper").Logger()
	return &OrderSweeper{
		interval:    interval,
		expireAfter: expireAfter,
		orderUC:     orderUC,
		log:         &sweepLog,
	}
}

func (w *OrderSweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("expire_after", w.expireAfter).Msg("Starting order sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping order sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *OrderSweeper) sweep(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := w.orderUC.ExpireStale(runCtx, w.expireAfter)
	if n > 0 {
		metrics.AddOrdersExpired(n)
		w.log.Info().Int("count", n).Msg("stale orders canceled")
	}
	if err != nil {
		w.log.Error().Err(err).Msg("order sweeper error")
	}
}
