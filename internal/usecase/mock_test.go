//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/adapter"
	"telegram-digital-shop/internal/domain/ports/repository"
	"telegram-digital-shop/internal/infra/i18n"
)

// =============================
// Adapters
// =============================

// ---- Mock Renderer ----

type rendered struct {
	Kind   string // edit|send|alert
	Target model.RenderTarget
	Text   string
	Rows   [][]adapter.InlineButton
}

type MockRenderer struct {
	mu     sync.Mutex
	Out    []rendered
	nextID int

	EditFunc  func(ctx context.Context, target model.RenderTarget, text string, rows [][]adapter.InlineButton) error
	SendFunc  func(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) (model.RenderTarget, error)
	AlertFunc func(ctx context.Context, chatID int64, text string) error
}

var _ adapter.Renderer = (*MockRenderer)(nil)

func NewMockRenderer() *MockRenderer { return &MockRenderer{nextID: 100} }

func (m *MockRenderer) Edit(ctx context.Context, target model.RenderTarget, text string, rows [][]adapter.InlineButton) error {
	if m.EditFunc != nil {
		return m.EditFunc(ctx, target, text, rows)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Out = append(m.Out, rendered{Kind: "edit", Target: target, Text: text, Rows: rows})
	return nil
}

func (m *MockRenderer) Send(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) (model.RenderTarget, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, chatID, text, rows)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	target := model.RenderTarget{ChatID: chatID, MessageID: m.nextID}
	m.Out = append(m.Out, rendered{Kind: "send", Target: target, Text: text, Rows: rows})
	return target, nil
}

func (m *MockRenderer) Alert(ctx context.Context, chatID int64, text string) error {
	if m.AlertFunc != nil {
		return m.AlertFunc(ctx, chatID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Out = append(m.Out, rendered{Kind: "alert", Target: model.RenderTarget{ChatID: chatID}, Text: text})
	return nil
}

func (m *MockRenderer) Last() rendered {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Out) == 0 {
		return rendered{}
	}
	return m.Out[len(m.Out)-1]
}

func (m *MockRenderer) Count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.Out {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// ---- Mock PaymentProvider ----

type MockPaymentProvider struct {
	VerifyFunc func(cb adapter.Callback) bool
}

var _ adapter.PaymentProvider = (*MockPaymentProvider)(nil)

func (m *MockPaymentProvider) Name() string { return "mock" }

func (m *MockPaymentProvider) PaymentLink(p *model.Payment) string {
	return fmt.Sprintf("https://pay.example/?pay_id=%d&amount=%d.00", p.PaymentID, p.Price.Amount)
}

// VerifyCallback accepts sign == "ok" unless overridden.
func (m *MockPaymentProvider) VerifyCallback(cb adapter.Callback) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(cb)
	}
	return cb.Sign == "ok"
}

// =============================
// Repositories
// =============================

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[int64]*model.User

	FindByTelegramIDFunc func(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error)
	SaveFunc             func(ctx context.Context, tx repository.Tx, u *model.User) error
	CreditFunc           func(ctx context.Context, tx repository.Tx, tgID int64, amount int64) error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo { return &MockUserRepo{users: map[int64]*model.User{}} }

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.TelegramID] = &cp
	return nil
}

func (m *MockUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	if m.FindByTelegramIDFunc != nil {
		return m.FindByTelegramIDFunc(ctx, tx, tgID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) Touch(ctx context.Context, tx repository.Tx, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[tgID]; ok {
		u.LastAction = time.Now()
	}
	return nil
}

func (m *MockUserRepo) Debit(ctx context.Context, tx repository.Tx, tgID int64, amount int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok || u.Balance < amount {
		return false, nil
	}
	u.Balance -= amount
	return true, nil
}

func (m *MockUserRepo) Credit(ctx context.Context, tx repository.Tx, tgID int64, amount int64) error {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, tx, tgID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Balance += amount
	u.Refills++
	return nil
}

func (m *MockUserRepo) Balance(tgID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[tgID]; ok {
		return u.Balance
	}
	return 0
}

// snapshot returns a func restoring every balance to its current value.
func (m *MockUserRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[int64]int64, len(m.users))
	for id, u := range m.users {
		saved[id] = u.Balance
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for id, b := range saved {
			if u, ok := m.users[id]; ok {
				u.Balance = b
			}
		}
	}
}

// ---- Mock ItemRepository ----

type MockItemRepo struct {
	mu    sync.Mutex
	items map[string]*model.Item
}

var _ repository.ItemRepository = (*MockItemRepo)(nil)

func NewMockItemRepo() *MockItemRepo { return &MockItemRepo{items: map[string]*model.Item{}} }

func (m *MockItemRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *MockItemRepo) ListVisible(ctx context.Context, tx repository.Tx, limit int) ([]*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Item
	for _, it := range m.items {
		if !it.Hidden && len(out) < limit {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockItemRepo) Save(ctx context.Context, tx repository.Tx, it *model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *it
	m.items[it.ID] = &cp
	return nil
}

// ---- Mock OrderRepository ----

type MockOrderRepo struct {
	mu     sync.Mutex
	orders map[int64]*model.Order

	CreateFunc   func(ctx context.Context, tx repository.Tx, o *model.Order) error
	MarkPaidFunc func(ctx context.Context, tx repository.Tx, orderID int64, price model.Price, data map[string]string) (bool, error)
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo { return &MockOrderRepo{orders: map[int64]*model.Order{}} }

func (m *MockOrderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.orders[o.OrderID]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *o
	m.orders[o.OrderID] = &cp
	return nil
}

func (m *MockOrderRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepo) MarkPaid(ctx context.Context, tx repository.Tx, orderID int64, price model.Price, data map[string]string) (bool, error) {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, tx, orderID, price, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || !o.IsOpen() {
		return false, nil
	}
	o.Paid = true
	o.Status = model.OrderStatusUntaken
	o.Price = price
	o.Data = data
	return true, nil
}

func (m *MockOrderRepo) CancelIfOpen(ctx context.Context, tx repository.Tx, orderID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || !o.IsOpen() {
		return false, nil
	}
	o.Status = model.OrderStatusCanceled
	return true, nil
}

func (m *MockOrderRepo) CancelStale(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.orders {
		if n >= limit {
			break
		}
		if o.IsOpen() && o.CreatedAt.Before(olderThan) {
			o.Status = model.OrderStatusCanceled
			n++
		}
	}
	return n, nil
}

// All returns copies of every stored order.
func (m *MockOrderRepo) All() []*model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out
}

func (m *MockOrderRepo) Get(orderID int64) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu       sync.Mutex
	payments map[int64]*model.Payment
	closes   int

	FindUnpaidFunc func(ctx context.Context, tx repository.Tx, paymentID int64) (*model.Payment, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{payments: map[int64]*model.Payment{}}
}

func (m *MockPaymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.payments[p.PaymentID]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *p
	m.payments[p.PaymentID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID int64) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) FindUnpaid(ctx context.Context, tx repository.Tx, paymentID int64) (*model.Payment, error) {
	if m.FindUnpaidFunc != nil {
		return m.FindUnpaidFunc(ctx, tx, paymentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.Status == model.PaymentStatusPaid {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) SetTelegramMessage(ctx context.Context, tx repository.Tx, paymentID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return domain.ErrNotFound
	}
	p.TelegramMessage = messageID
	return nil
}

func (m *MockPaymentRepo) Close(ctx context.Context, tx repository.Tx, paymentID int64, transactionID *string, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.Status == model.PaymentStatusPaid {
		return false, nil
	}
	p.Status = model.PaymentStatusPaid
	p.TransactionID = transactionID
	p.PaidAt = &paidAt
	m.closes++
	return true, nil
}

func (m *MockPaymentRepo) Get(paymentID int64) *model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// ---- Mock SessionRepository ----

type MockSessionRepo struct {
	mu       sync.Mutex
	sessions map[int64]model.Session

	StoreFunc func(ctx context.Context, s *model.Session) error
}

var _ repository.SessionRepository = (*MockSessionRepo)(nil)

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{sessions: map[int64]model.Session{}}
}

func (m *MockSessionRepo) Load(ctx context.Context, customer int64) (model.Dialogue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[customer]
	if !ok {
		return model.NoSession{}, nil
	}
	return model.AwaitingAct{Session: cloneSession(s)}, nil
}

func (m *MockSessionRepo) Store(ctx context.Context, s *model.Session) error {
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Customer] = *cloneSession(*s)
	return nil
}

func (m *MockSessionRepo) Discard(ctx context.Context, customer int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, customer)
	return nil
}

// Get returns the stored session or nil.
func (m *MockSessionRepo) Get(customer int64) *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[customer]
	if !ok {
		return nil
	}
	return cloneSession(s)
}

func cloneSession(s model.Session) *model.Session {
	collected := make(map[string]string, len(s.Collected))
	for k, v := range s.Collected {
		collected[k] = v
	}
	s.Collected = collected
	if s.Pending != nil {
		p := *s.Pending
		s.Pending = &p
	}
	return &s
}

// =============================
// Infra helpers for tests
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// rollbackOnError restores user balances when fn fails, like a real rollback.
func rollbackOnError(users *MockUserRepo) *MockTxManager {
	return &MockTxManager{
		WithTxFunc: func(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
			restore := users.snapshot()
			if err := fn(ctx, repository.NoTX); err != nil {
				restore()
				return err
			}
			return nil
		},
	}
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", errors.New("locked")
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Test Translator

func newTestTranslator() *i18n.Translator {
	testFS := fstest.MapFS{
		"locales/ru.yaml": {Data: []byte(`
error_generic: "generic error"
main_menu: "Main menu"
menu_shop: "Shop"
menu_balance: "Balance"
menu_back: "Back"
invalid_email: "bad email"
invalid_phone: "bad phone"
invalid_password: "bad password"
insufficient_balance: "short by %d %s"
refill_button: "Top up"
order_placed: "order %d placed"
refill_created: "invoice %d %s"
refill_card: " card %s"
refill_pay_button: "Pay"
refill_card_paid_button: "Paid"
refill_paid: "paid %d %s"
`)},
	}
	translator, _ := i18n.NewTranslator(testFS, "ru")
	return translator
}
