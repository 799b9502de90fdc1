package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/adapter"
	"telegram-digital-shop/internal/domain/ports/repository"
	"telegram-digital-shop/internal/infra/i18n"
	"telegram-digital-shop/internal/infra/logging"
)

// Compile-time check
var _ SellUseCase = (*sellUC)(nil)

// RefillPrefix starts the top-up control: refill#<amount>#<region>.
const RefillPrefix = "refill#"

const sellLockTTL = 15 * time.Second

// SellUseCase drives one customer's walk through an item's scenario.
// All calls for a customer are serialized by a lock around the session.
type SellUseCase interface {
	// Enter opens an order and a fresh session on act 0, replacing any
	// previous session. A zero target makes it post a new message.
	Enter(ctx context.Context, customer int64, itemID string, target model.RenderTarget) error
	// Control dispatches MOVE#, SELL# and CANCEL# callback data.
	Control(ctx context.Context, customer int64, data string) error
	// Input feeds free text to a pending data request. It reports false when
	// the customer has no session waiting for text.
	Input(ctx context.Context, customer int64, text string) (bool, error)
}

type sellUC struct {
	scenarios *model.Scenarios
	sessions  repository.SessionRepository
	items     repository.ItemRepository
	users     repository.UserRepository
	orders    OrderUseCase
	renderer  adapter.Renderer
	locker    adapter.Locker
	tr        *i18n.Translator
	log       *zerolog.Logger
}

// NewSellUseCase wires the executor. scenarios is the immutable set loaded at
// startup; locker may be nil when a single process owns all customers.
func NewSellUseCase(
	scenarios *model.Scenarios,
	sessions repository.SessionRepository,
	items repository.ItemRepository,
	users repository.UserRepository,
	orders OrderUseCase,
	renderer adapter.Renderer,
	locker adapter.Locker,
	tr *i18n.Translator,
	logger *zerolog.Logger,
) *sellUC {
	return &sellUC{
		scenarios: scenarios,
		sessions:  sessions,
		items:     items,
		users:     users,
		orders:    orders,
		renderer:  renderer,
		locker:    locker,
		tr:        tr,
		log:       logger,
	}
}

func (u *sellUC) Enter(ctx context.Context, customer int64, itemID string, target model.RenderTarget) error {
	defer logging.TraceDuration(u.log, "SellUC.Enter")()
	return u.locked(ctx, customer, func() error { return u.enter(ctx, customer, itemID, target) })
}

func (u *sellUC) Control(ctx context.Context, customer int64, data string) error {
	defer logging.TraceDuration(u.log, "SellUC.Control")()

	trigger, ok := model.ParseTrigger(data)
	if !ok {
		return fmt.Errorf("%w: control %q", domain.ErrInvalidArgument, data)
	}
	return u.locked(ctx, customer, func() error {
		s, err := u.current(ctx, customer)
		if err != nil {
			return err
		}
		switch trigger.Kind {
		case model.TriggerMove:
			return u.move(ctx, s, int(trigger.Target))
		case model.TriggerSell:
			return u.sell(ctx, s, trigger.Target)
		case model.TriggerCancel:
			return u.cancel(ctx, s, trigger.Target)
		default:
			return fmt.Errorf("%w: control %q", domain.ErrInvalidArgument, data)
		}
	})
}

func (u *sellUC) Input(ctx context.Context, customer int64, text string) (bool, error) {
	defer logging.TraceDuration(u.log, "SellUC.Input")()

	accepted := false
	err := u.locked(ctx, customer, func() error {
		s, err := u.current(ctx, customer)
		if err != nil {
			if errors.Is(err, domain.ErrNoSession) {
				return nil
			}
			return err
		}
		if s.Pending == nil {
			return nil
		}
		accepted = true
		return u.input(ctx, s, text)
	})
	return accepted, err
}

func (u *sellUC) enter(ctx context.Context, customer int64, itemID string, target model.RenderTarget) error {
	user, err := u.users.FindByTelegramID(ctx, repository.NoTX, customer)
	if err != nil {
		return err
	}
	if user.IsBlocked() {
		return domain.ErrUserBlocked
	}
	item, err := u.items.FindByID(ctx, repository.NoTX, itemID)
	if err != nil {
		return err
	}

	// The graph is checked before any order exists.
	sc, ok := u.scenarios.Find(item.Scenario)
	if !ok {
		return u.abortEntry(ctx, customer, item, fmt.Errorf("%w: %q", domain.ErrScenarioNotFound, item.Scenario))
	}
	first, ok := sc.Act(0)
	if !ok {
		return u.abortEntry(ctx, customer, item, fmt.Errorf("%w: %q", domain.ErrEmptyScenario, sc.Name()))
	}

	if prev, err := u.current(ctx, customer); err == nil {
		u.release(ctx, prev)
	}

	order, err := u.orders.Open(ctx, item, customer, user.Region)
	if err != nil {
		return err
	}

	s := &model.Session{
		ID:        ulid.Make().String(),
		Customer:  customer,
		Scenario:  sc.Name(),
		Item:      model.SessionItem{ID: item.ID, Title: item.Title, Price: item.Price, Discount: item.Discount},
		OrderID:   order.OrderID,
		Collected: map[string]string{"item": item.ID},
		Target:    target,
		StartedAt: time.Now(),
	}
	if s.Target.ChatID == 0 {
		s.Target.ChatID = customer
	}

	text := RenderTemplate(first.Content, s.Collected)
	rows := controls(first, order.OrderID)
	if s.Target.MessageID == 0 {
		s.Target, err = u.renderer.Send(ctx, s.Target.ChatID, text, rows)
	} else {
		err = u.renderer.Edit(ctx, s.Target, text, rows)
	}
	if err != nil {
		u.cancelUnstarted(ctx, order.OrderID)
		return fmt.Errorf("render act 0: %w", err)
	}

	s.CurrentStep, s.PreviousStep = 0, 0
	s.Pending = pendingFor(first)
	if err := u.sessions.Store(ctx, s); err != nil {
		u.cancelUnstarted(ctx, order.OrderID)
		// Act 0 is on screen with live controls that no session backs.
		if rerr := u.renderer.Edit(ctx, s.Target, ProtectMarkdown(u.tr.T("error_generic")), BackToMenu(u.tr)); rerr != nil {
			u.logFor(ctx, s).Warn().Err(rerr).Msg("failed to clear act 0 after store failure")
		}
		return fmt.Errorf("store session: %w", err)
	}

	u.logFor(ctx, s).Info().Str("item_id", item.ID).Int64("order_id", order.OrderID).Msg("sell session started")
	return nil
}

func (u *sellUC) move(ctx context.Context, s *model.Session, target int) error {
	sc, cur, err := u.position(s)
	if err != nil {
		return u.abort(ctx, s, err)
	}
	if !cur.Allows(target) {
		// A control from a message that no longer reflects the session.
		u.logFor(ctx, s).Debug().Int("from", s.CurrentStep).Int("to", target).Msg("stale move ignored")
		return nil
	}
	return u.advance(ctx, s, sc, target)
}

func (u *sellUC) input(ctx context.Context, s *model.Session, text string) error {
	sc, cur, err := u.position(s)
	if err != nil {
		return u.abort(ctx, s, err)
	}
	req := *s.Pending
	value, err := req.Type.Accept(text, req.Validate)
	if err != nil {
		// Reprompt in place; the act message stays as it is.
		return u.renderer.Alert(ctx, s.Target.ChatID, u.tr.T("invalid_"+req.Type.Field()))
	}

	if cur.Next == nil {
		return u.abort(ctx, s, fmt.Errorf("%w: act %d of %q", domain.ErrMissingNextPointer, cur.ID, sc.Name()))
	}
	s.Collected[req.Type.Field()] = value
	s.Pending = nil
	return u.advance(ctx, s, sc, *cur.Next)
}

// advance renders act target and makes it current.
func (u *sellUC) advance(ctx context.Context, s *model.Session, sc *model.Scenario, target int) error {
	act, ok := sc.Act(target)
	if !ok {
		return u.abort(ctx, s, fmt.Errorf("%w: act %d of %q", domain.ErrActNotFound, target, sc.Name()))
	}
	text := RenderTemplate(act.Content, s.Collected)
	if err := u.renderer.Edit(ctx, s.Target, text, controls(act, s.OrderID)); err != nil {
		return fmt.Errorf("render act %d: %w", target, err)
	}
	from := s.CurrentStep
	s.PreviousStep, s.CurrentStep = s.CurrentStep, target
	s.Pending = pendingFor(act)
	if err := u.sessions.Store(ctx, s); err != nil {
		u.restoreView(ctx, s, sc, from)
		return fmt.Errorf("store session at act %d: %w", target, err)
	}
	return nil
}

// restoreView puts act back on screen so the message matches the stored session.
func (u *sellUC) restoreView(ctx context.Context, s *model.Session, sc *model.Scenario, step int) {
	act, ok := sc.Act(step)
	if !ok {
		return
	}
	if err := u.renderer.Edit(ctx, s.Target, RenderTemplate(act.Content, s.Collected), controls(act, s.OrderID)); err != nil {
		u.logFor(ctx, s).Warn().Err(err).Int("act", step).Msg("failed to restore act after store failure")
	}
}

func (u *sellUC) cancelUnstarted(ctx context.Context, orderID int64) {
	if _, err := u.orders.Cancel(ctx, orderID); err != nil {
		u.log.Error().Err(err).Int64("order_id", orderID).Msg("failed to cancel order of a session that never started")
	}
}

func (u *sellUC) sell(ctx context.Context, s *model.Session, orderID int64) error {
	if orderID != s.OrderID {
		u.logFor(ctx, s).Debug().Int64("order_id", orderID).Msg("sell for another order ignored")
		return nil
	}

	res, err := u.orders.Finalize(ctx, s.OrderID, s.Customer, s.Collected)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotOpen) || errors.Is(err, domain.ErrNotFound) {
			// Swept or canceled elsewhere; the session has nothing left to sell.
			u.logFor(ctx, s).Warn().Err(err).Int64("order_id", s.OrderID).Msg("order is no longer open")
			u.discard(ctx, s)
			return u.renderer.Edit(ctx, s.Target, ProtectMarkdown(u.tr.T("error_generic")), BackToMenu(u.tr))
		}
		return err
	}

	switch res.Outcome {
	case FinalizeInsufficientBalance:
		short := res.Shortfall
		text := ProtectMarkdown(u.tr.T("insufficient_balance", short.Amount, short.Region.CurrencySign()))
		rows := [][]adapter.InlineButton{{{
			Text: u.tr.T("refill_button"),
			Data: RefillPrefix + strconv.FormatInt(short.Amount, 10) + "#" + string(short.Region),
		}}}
		// The act's own controls stay so the customer can sell again after a top-up.
		_, cur, err := u.position(s)
		if err == nil {
			rows = append(rows, controls(cur, s.OrderID)...)
		}
		return u.renderer.Edit(ctx, s.Target, text, rows)
	case FinalizePaid:
		u.discard(ctx, s)
		u.logFor(ctx, s).Info().
			Int64("order_id", s.OrderID).
			Int64("price", res.Order.Price.Amount).
			Str("region", string(res.Order.Price.Region)).
			Msg("order paid")
		text := ProtectMarkdown(u.tr.T("order_placed", s.OrderID))
		return u.renderer.Edit(ctx, s.Target, text, BackToMenu(u.tr))
	default:
		return fmt.Errorf("unknown finalize outcome %d", res.Outcome)
	}
}

func (u *sellUC) cancel(ctx context.Context, s *model.Session, orderID int64) error {
	if orderID != s.OrderID {
		u.logFor(ctx, s).Debug().Int64("order_id", orderID).Msg("cancel for another order ignored")
		return nil
	}
	u.release(ctx, s)
	text, rows := MainMenu(u.tr)
	return u.renderer.Edit(ctx, s.Target, text, rows)
}

// release cancels the session's open order and drops the session.
func (u *sellUC) release(ctx context.Context, s *model.Session) {
	if _, err := u.orders.Cancel(ctx, s.OrderID); err != nil {
		u.logFor(ctx, s).Error().Err(err).Int64("order_id", s.OrderID).Msg("failed to cancel order")
	}
	u.discard(ctx, s)
}

func (u *sellUC) discard(ctx context.Context, s *model.Session) {
	if err := u.sessions.Discard(ctx, s.Customer); err != nil {
		u.logFor(ctx, s).Error().Err(err).Msg("failed to discard session")
	}
}

// abort ends a session on a fatal scenario error. The order stays in
// processing for the stale-order sweep.
func (u *sellUC) abort(ctx context.Context, s *model.Session, cause error) error {
	u.logFor(ctx, s).Error().Err(cause).
		Str("scenario", s.Scenario).
		Int("act", s.CurrentStep).
		Int64("order_id", s.OrderID).
		Msg("sell session aborted")
	u.discard(ctx, s)
	if err := u.renderer.Alert(ctx, s.Target.ChatID, u.tr.T("error_generic")); err != nil {
		u.logFor(ctx, s).Warn().Err(err).Msg("failed to report aborted session")
	}
	return cause
}

func (u *sellUC) abortEntry(ctx context.Context, customer int64, item *model.Item, cause error) error {
	l := logging.With(ctx, u.log)
	l.Error().Err(cause).Int64("tg_id", customer).Str("item_id", item.ID).Msg("sell session not started")
	if err := u.renderer.Alert(ctx, customer, u.tr.T("error_generic")); err != nil {
		l.Warn().Err(err).Msg("failed to report failed entry")
	}
	return cause
}

// current loads the customer's live session or returns domain.ErrNoSession.
func (u *sellUC) current(ctx context.Context, customer int64) (*model.Session, error) {
	d, err := u.sessions.Load(ctx, customer)
	if err != nil {
		return nil, err
	}
	switch v := d.(type) {
	case model.AwaitingAct:
		if v.Session == nil {
			return nil, domain.ErrNoSession
		}
		if v.Session.Collected == nil {
			v.Session.Collected = map[string]string{}
		}
		return v.Session, nil
	case model.NoSession:
		return nil, domain.ErrNoSession
	default:
		return nil, fmt.Errorf("unexpected dialogue %T", d)
	}
}

// position resolves the session's scenario and current act.
func (u *sellUC) position(s *model.Session) (*model.Scenario, model.Act, error) {
	sc, ok := u.scenarios.Find(s.Scenario)
	if !ok {
		return nil, model.Act{}, fmt.Errorf("%w: %q", domain.ErrScenarioNotFound, s.Scenario)
	}
	cur, ok := sc.Act(s.CurrentStep)
	if !ok {
		return nil, model.Act{}, fmt.Errorf("%w: act %d of %q", domain.ErrActNotFound, s.CurrentStep, s.Scenario)
	}
	return sc, cur, nil
}

func (u *sellUC) locked(ctx context.Context, customer int64, fn func() error) error {
	if u.locker == nil {
		return fn()
	}
	key := "sell_lock:" + strconv.FormatInt(customer, 10)
	token, err := u.locker.TryLock(ctx, key, sellLockTTL)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLocked, err)
	}
	defer func() {
		if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			u.log.Warn().Err(err).Int64("tg_id", customer).Msg("failed to release sell lock")
		}
	}()
	return fn()
}

func (u *sellUC) logFor(ctx context.Context, s *model.Session) *zerolog.Logger {
	return logging.With(logging.WithSessID(logging.WithTgID(ctx, s.Customer), s.ID), u.log)
}

// controls lays out one row per transition, binding SELL and CANCEL to the order.
func controls(act model.Act, orderID int64) [][]adapter.InlineButton {
	rows := make([][]adapter.InlineButton, 0, len(act.Transitions))
	for _, t := range act.Transitions {
		trigger := t.Trigger
		if trigger.Kind == model.TriggerSell || trigger.Kind == model.TriggerCancel {
			trigger.Target = orderID
		}
		rows = append(rows, []adapter.InlineButton{{Text: t.Label, Data: trigger.Data()}})
	}
	return rows
}

func pendingFor(act model.Act) *model.DataRequest {
	if act.Kind != model.ActData {
		return nil
	}
	return &model.DataRequest{Type: act.DataType, Validate: act.Validate}
}
