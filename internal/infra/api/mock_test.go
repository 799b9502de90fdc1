//go:build !integration

package api_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/adapter"
	"telegram-digital-shop/internal/domain/ports/repository"
)

// memLedger keeps payments and balances in memory. Its tx manager runs one
// transaction at a time, which stands in for row locks.
type memLedger struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	payments map[int64]*model.Payment
	balances map[int64]int64
	credits  int
}

func newMemLedger(ps ...*model.Payment) *memLedger {
	l := &memLedger{payments: map[int64]*model.Payment{}, balances: map[int64]int64{}}
	for _, p := range ps {
		l.payments[p.PaymentID] = p
	}
	return l
}

func (l *memLedger) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	l.txMu.Lock()
	defer l.txMu.Unlock()
	return fn(ctx, repository.Tx("mem-tx"))
}

func (l *memLedger) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *p
	l.payments[p.PaymentID] = &cp
	return nil
}

func (l *memLedger) FindByPaymentID(ctx context.Context, tx repository.Tx, id int64) (*model.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *memLedger) FindUnpaid(ctx context.Context, tx repository.Tx, id int64) (*model.Payment, error) {
	p, err := l.FindByPaymentID(ctx, tx, id)
	if err != nil || p.IsPaid() {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (l *memLedger) SetTelegramMessage(ctx context.Context, tx repository.Tx, id int64, messageID int) error {
	return nil
}

func (l *memLedger) Close(ctx context.Context, tx repository.Tx, id int64, txnID *string, paidAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[id]
	if !ok || p.IsPaid() {
		return false, nil
	}
	p.Status = model.PaymentStatusPaid
	p.TransactionID = txnID
	p.PaidAt = &paidAt
	return true, nil
}

// memUsers only supports crediting.
type memUsers struct {
	repository.UserRepository
	ledger *memLedger
}

func (u *memUsers) Credit(ctx context.Context, tx repository.Tx, tgID int64, amount int64) error {
	u.ledger.mu.Lock()
	defer u.ledger.mu.Unlock()
	u.ledger.balances[tgID] += amount
	u.ledger.credits++
	return nil
}

type nopRenderer struct{}

func (nopRenderer) Edit(context.Context, model.RenderTarget, string, [][]adapter.InlineButton) error {
	return nil
}

func (nopRenderer) Send(_ context.Context, chatID int64, _ string, _ [][]adapter.InlineButton) (model.RenderTarget, error) {
	return model.RenderTarget{ChatID: chatID, MessageID: 1}, nil
}

func (nopRenderer) Alert(context.Context, int64, string) error { return nil }
