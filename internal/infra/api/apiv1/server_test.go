//go:build !integration

package apiv1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/config"
	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/infra/api"
	"telegram-digital-shop/internal/infra/api/apiv1"
	"telegram-digital-shop/internal/usecase"
)

//
// ---------------- usecase mocks ----------------
//

type mockOrderUC struct {
	usecase.OrderUseCase
	orders map[int64]*model.Order
}

func (m *mockOrderUC) Get(ctx context.Context, id int64) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderUC) Cancel(ctx context.Context, id int64) (bool, error) {
	o, ok := m.orders[id]
	if !ok || !o.IsOpen() {
		return false, nil
	}
	o.Status = model.OrderStatusCanceled
	return true, nil
}

type mockPaymentUC struct {
	usecase.PaymentUseCase
	payments map[int64]*model.Payment
}

func (m *mockPaymentUC) Get(ctx context.Context, id int64) (*model.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type mockSettlementUC struct {
	usecase.SettlementUseCase
	payments map[int64]*model.Payment
}

func (m *mockSettlementUC) ConfirmManual(ctx context.Context, id int64) (*usecase.Settlement, error) {
	p, ok := m.payments[id]
	if !ok || p.IsPaid() {
		return nil, domain.ErrPaymentNotFound
	}
	if p.Platform != model.PlatformCard {
		return nil, domain.ErrInvalidArgument
	}
	p.Status = model.PaymentStatusPaid
	return &usecase.Settlement{Payment: p, Credited: p.Credit(), Notified: true}, nil
}

//
// -------------------- test helpers --------------------
//

const secret = "0123456789abcdef0123"

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func fixtures() (*mockOrderUC, *mockPaymentUC, *mockSettlementUC) {
	now := time.Now()
	orders := &mockOrderUC{orders: map[int64]*model.Order{
		1234567: {OrderID: 1234567, Client: 42, Item: model.OrderItem{ID: "netflix", Title: "Netflix"},
			Price: model.Price{Amount: 300, Region: model.RegionRU}, Status: model.OrderStatusProcessing, CreatedAt: now},
		7654321: {OrderID: 7654321, Client: 42, Status: model.OrderStatusUntaken, Paid: true, CreatedAt: now},
	}}
	payments := map[int64]*model.Payment{
		1000000001: {PaymentID: 1000000001, User: 42, Price: model.Price{Amount: 100, Region: model.RegionUA},
			Platform: model.PlatformCard, Status: model.PaymentStatusWaiting, CreatedAt: now},
		1000000002: {PaymentID: 1000000002, User: 42, Price: model.Price{Amount: 100, Region: model.RegionRU},
			Platform: model.PlatformAnyPay, Status: model.PaymentStatusWaiting, CreatedAt: now},
	}
	return orders, &mockPaymentUC{payments: payments}, &mockSettlementUC{payments: payments}
}

func newServer(t *testing.T) (http.Handler, string) {
	t.Helper()
	orders, pays, settle := fixtures()
	auth, err := api.NewAuthManager(secret, time.Hour)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	token, err := auth.Mint("ops")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	srv, err := api.NewServer(&config.APIConfig{}, settle, apiv1.NewServer(orders, pays, settle, newLogger()), auth, newLogger())
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return srv.Router(), token
}

func do(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

//
// -------------------- tests --------------------
//

func TestAdminAuth(t *testing.T) {
	h, token := newServer(t)

	t.Run("missing token returns 401", func(t *testing.T) {
		if rec := do(h, http.MethodGet, "/api/v1/orders/1234567", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("token signed with another secret returns 401", func(t *testing.T) {
		other, _ := api.NewAuthManager("another-secret-of-16", time.Hour)
		forged, _ := other.Mint("ops")
		if rec := do(h, http.MethodGet, "/api/v1/orders/1234567", forged); rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("expired token returns 401", func(t *testing.T) {
		short, _ := api.NewAuthManager(secret, time.Nanosecond)
		stale, _ := short.Mint("ops")
		time.Sleep(time.Millisecond)
		if rec := do(h, http.MethodGet, "/api/v1/orders/1234567", stale); rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("valid token passes", func(t *testing.T) {
		if rec := do(h, http.MethodGet, "/api/v1/orders/1234567", token); rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("short secret is refused", func(t *testing.T) {
		if _, err := api.NewAuthManager("short", time.Hour); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestOrders(t *testing.T) {
	t.Run("get returns the order", func(t *testing.T) {
		h, token := newServer(t)
		rec := do(h, http.MethodGet, "/api/v1/orders/1234567", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		var body struct {
			OrderID int64  `json:"order_id"`
			ItemID  string `json:"item_id"`
			Status  string `json:"status"`
			Price   struct {
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
			} `json:"price"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.OrderID != 1234567 || body.ItemID != "netflix" || body.Status != "processing" || body.Price.Amount != 300 {
			t.Errorf("unexpected order %+v", body)
		}
	})

	t.Run("unknown id returns 404, garbage id 400", func(t *testing.T) {
		h, token := newServer(t)
		if rec := do(h, http.MethodGet, "/api/v1/orders/1", token); rec.Code != http.StatusNotFound {
			t.Errorf("want 404, got %d", rec.Code)
		}
		if rec := do(h, http.MethodGet, "/api/v1/orders/abc", token); rec.Code != http.StatusBadRequest {
			t.Errorf("want 400, got %d", rec.Code)
		}
	})

	t.Run("cancel an open order then conflict", func(t *testing.T) {
		h, token := newServer(t)
		if rec := do(h, http.MethodPost, "/api/v1/orders/1234567/cancel", token); rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		if rec := do(h, http.MethodPost, "/api/v1/orders/1234567/cancel", token); rec.Code != http.StatusConflict {
			t.Errorf("second cancel: want 409, got %d", rec.Code)
		}
		if rec := do(h, http.MethodPost, "/api/v1/orders/7654321/cancel", token); rec.Code != http.StatusConflict {
			t.Errorf("paid order: want 409, got %d", rec.Code)
		}
	})
}

func TestPayments(t *testing.T) {
	t.Run("get returns the payment", func(t *testing.T) {
		h, token := newServer(t)
		rec := do(h, http.MethodGet, "/api/v1/payments/1000000002", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		var body struct {
			Platform string `json:"platform"`
			Status   string `json:"status"`
		}
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if body.Platform != "anypay" || body.Status != "waiting" {
			t.Errorf("unexpected payment %+v", body)
		}
	})

	t.Run("confirm credits a card payment once", func(t *testing.T) {
		h, token := newServer(t)
		rec := do(h, http.MethodPost, "/api/v1/payments/1000000001/confirm", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var body struct {
			Credited int64 `json:"credited"`
		}
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if body.Credited != 222 {
			t.Errorf("want credited 222, got %d", body.Credited)
		}
		if rec := do(h, http.MethodPost, "/api/v1/payments/1000000001/confirm", token); rec.Code != http.StatusNotFound {
			t.Errorf("second confirm: want 404, got %d", rec.Code)
		}
	})

	t.Run("confirm refuses provider payments", func(t *testing.T) {
		h, token := newServer(t)
		if rec := do(h, http.MethodPost, "/api/v1/payments/1000000002/confirm", token); rec.Code != http.StatusBadRequest {
			t.Errorf("want 400, got %d", rec.Code)
		}
	})
}
