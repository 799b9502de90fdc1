package telegram

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/application"
	"telegram-digital-shop/internal/config"
	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/infra/i18n"
	"telegram-digital-shop/internal/infra/logging"
	"telegram-digital-shop/internal/infra/metrics"
	red "telegram-digital-shop/internal/infra/redis"
	"telegram-digital-shop/internal/infra/worker"
)

const (
	updatesPerMinute = 30
	rateWindow       = time.Minute
)

// RateLimiter is satisfied by the Redis fixed-window limiter. Hit returns
// the number of hits on key in the current window, this one included.
type RateLimiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RealTelegramBotAdapter polls updates and hands each one to the worker lane
// of its customer, so one customer's updates are handled in order.
type RealTelegramBotAdapter struct {
	api         BotAPI
	renderer    *Renderer
	facade      *application.BotFacade
	translator  *i18n.Translator
	rateLimiter RateLimiter
	pool        *worker.Pool
	log         *zerolog.Logger

	adminIDsMap   map[int64]struct{}
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(
	cfg *config.BotConfig,
	api BotAPI,
	renderer *Renderer,
	facade *application.BotFacade,
	translator *i18n.Translator,
	rateLimiter RateLimiter,
	pool *worker.Pool,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	adminMap := map[int64]struct{}{}
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}
	botLog := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		api:         api,
		renderer:    renderer,
		facade:      facade,
		translator:  translator,
		rateLimiter: rateLimiter,
		pool:        pool,
		log:         &botLog,
		adminIDsMap: adminMap,
	}, nil
}

func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel
	r.log.Info().Msg("polling telegram updates")

	for {
		select {
		case <-ctx.Done():
			r.api.StopReceivingUpdates()
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.dispatch(ctx, up)
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) dispatch(ctx context.Context, up tgbotapi.Update) {
	sender := senderOf(up)
	if sender == nil {
		return
	}
	customer := sender.ID
	err := r.pool.SubmitKeyed(customer, func(ctx context.Context) error {
		return r.handleUpdate(ctx, up)
	})
	if err != nil {
		r.log.Warn().Err(err).Int64("tg_id", customer).Msg("update dropped")
		if errors.Is(err, worker.ErrQueueFull) {
			_ = r.renderer.Alert(ctx, customer, r.translator.T("busy"))
		}
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, up tgbotapi.Update) error {
	sender := senderOf(up)
	if sender == nil {
		return nil
	}
	ctx = logging.WithTraceID(logging.WithTgID(ctx, sender.ID), uuid.NewString())

	kind := "message"
	switch {
	case up.CallbackQuery != nil:
		kind = "callback"
	case up.Message != nil && up.Message.IsCommand():
		kind = "command"
	case up.Message == nil:
		return nil
	}
	metrics.IncTelegramUpdate(kind)

	if ok, notify := r.allow(ctx, sender.ID, kind); !ok {
		if up.CallbackQuery != nil {
			r.answer(up.CallbackQuery.ID)
		}
		metrics.IncTelegramRateLimitTriggered()
		if !notify {
			return nil
		}
		return r.renderer.Alert(ctx, sender.ID, r.translator.T("rate_limited"))
	}

	if up.CallbackQuery != nil {
		return r.handleQuery(ctx, up.CallbackQuery)
	}
	return r.handleMessage(ctx, up.Message)
}

// allow fails open when the limiter itself is unavailable. notify is set only
// for the first rejected update of a window, so a flood costs one alert.
func (r *RealTelegramBotAdapter) allow(ctx context.Context, tgID int64, kind string) (ok, notify bool) {
	if r.rateLimiter == nil {
		return true, false
	}
	n, err := r.rateLimiter.Hit(ctx, red.UserCommandKey(tgID, kind), rateWindow)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true, false
	}
	return n <= updatesPerMinute, n == updatesPerMinute+1
}

func (r *RealTelegramBotAdapter) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || message.Chat == nil {
		return nil
	}
	if message.IsCommand() {
		handler, ok := r.commandRoutes()[message.Command()]
		if !ok {
			return r.reply(ctx, message.Chat.ID, r.facade.HandleHelp())
		}
		return r.handled(ctx, message.Chat.ID, handler(ctx, message))
	}

	accepted, err := r.facade.SellUC.Input(ctx, message.From.ID, message.Text)
	if err != nil {
		return r.handled(ctx, message.Chat.ID, err)
	}
	if accepted {
		metrics.IncSellEvent("input")
		return nil
	}
	return r.reply(ctx, message.Chat.ID, r.facade.HandleMenu())
}

func (r *RealTelegramBotAdapter) reply(ctx context.Context, chatID int64, rep application.Reply) error {
	_, err := r.renderer.Send(ctx, chatID, rep.Text, rep.Rows)
	return err
}

// handled reports err to the customer where that makes sense and logs the rest.
func (r *RealTelegramBotAdapter) handled(ctx context.Context, chatID int64, err error) error {
	if err == nil {
		return nil
	}
	l := logging.With(ctx, r.log)
	switch {
	case errors.Is(err, domain.ErrLocked):
		return r.renderer.Alert(ctx, chatID, r.translator.T("busy"))
	case errors.Is(err, domain.ErrNoSession):
		return r.renderer.Alert(ctx, chatID, r.translator.T("no_session"))
	case errors.Is(err, domain.ErrFatalSession):
		// logged and reported by the executor
		return nil
	case errors.Is(err, domain.ErrInvalidArgument):
		l.Debug().Err(err).Msg("ignored malformed control")
		return nil
	default:
		l.Error().Err(err).Msg("update failed")
		return r.renderer.Alert(ctx, chatID, r.translator.T("error_generic"))
	}
}

func (r *RealTelegramBotAdapter) isAdmin(tgID int64) bool {
	_, ok := r.adminIDsMap[tgID]
	return ok
}

// answer stops the client spinner on a callback button.
func (r *RealTelegramBotAdapter) answer(queryID string) {
	if _, err := r.api.Request(tgbotapi.NewCallback(queryID, "")); err != nil {
		r.log.Debug().Err(err).Msg("callback answer failed")
	}
}

func senderOf(up tgbotapi.Update) *tgbotapi.User {
	switch {
	case up.CallbackQuery != nil:
		return up.CallbackQuery.From
	case up.Message != nil:
		return up.Message.From
	default:
		return nil
	}
}
