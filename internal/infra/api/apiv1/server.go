package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/infra/logging"
	"telegram-digital-shop/internal/infra/metrics"
	"telegram-digital-shop/internal/usecase"
)

// Server serves the operator endpoints for orders and payments.
type Server struct {
	orders     usecase.OrderUseCase
	payments   usecase.PaymentUseCase
	settlement usecase.SettlementUseCase
	log        *zerolog.Logger
}

func NewServer(
	orders usecase.OrderUseCase,
	payments usecase.PaymentUseCase,
	settlement usecase.SettlementUseCase,
	logger *zerolog.Logger,
) *Server {
	return &Server{orders: orders, payments: payments, settlement: settlement, log: logger}
}

func (s *Server) Register(r chi.Router) {
	r.Get("/orders/{orderID}", s.getOrder)
	r.Post("/orders/{orderID}/cancel", s.cancelOrder)
	r.Get("/payments/{paymentID}", s.getPayment)
	r.Post("/payments/{paymentID}/confirm", s.confirmPayment)
}

type priceDTO struct {
	Amount   int64  `json:"amount"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
}

type orderDTO struct {
	OrderID   int64             `json:"order_id"`
	Client    int64             `json:"client"`
	ItemID    string            `json:"item_id"`
	ItemTitle string            `json:"item_title"`
	Price     priceDTO          `json:"price"`
	Paid      bool              `json:"paid"`
	Status    string            `json:"status"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
	ClosedAt  *time.Time        `json:"closed_at,omitempty"`
}

type paymentDTO struct {
	PaymentID     int64      `json:"payment_id"`
	User          int64      `json:"user"`
	Price         priceDTO   `json:"price"`
	Platform      string     `json:"platform"`
	Status        string     `json:"status"`
	TransactionID *string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func toPrice(p model.Price) priceDTO {
	return priceDTO{Amount: p.Amount, Region: string(p.Region), Currency: p.Region.CurrencySign()}
}

func toOrderDTO(o *model.Order) orderDTO {
	data := o.Data
	if data == nil {
		data = map[string]string{}
	}
	return orderDTO{
		OrderID:   o.OrderID,
		Client:    o.Client,
		ItemID:    o.Item.ID,
		ItemTitle: o.Item.Title,
		Price:     toPrice(o.Price),
		Paid:      o.Paid,
		Status:    string(o.Status),
		Data:      data,
		CreatedAt: o.CreatedAt,
		ClosedAt:  o.ClosedAt,
	}
}

func toPaymentDTO(p *model.Payment) paymentDTO {
	return paymentDTO{
		PaymentID:     p.PaymentID,
		User:          p.User,
		Price:         toPrice(p.Price),
		Platform:      string(p.Platform),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt,
		PaidAt:        p.PaidAt,
	}
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	const route = "GET /orders/{id}"
	id, ok := s.pathID(w, r, "orderID", route)
	if !ok {
		return
	}
	o, err := s.orders.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, route, err)
		return
	}
	metrics.IncAdminRequest(route, "ok")
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	const route = "POST /orders/{id}/cancel"
	id, ok := s.pathID(w, r, "orderID", route)
	if !ok {
		return
	}
	canceled, err := s.orders.Cancel(r.Context(), id)
	if err != nil {
		s.fail(w, r, route, err)
		return
	}
	if !canceled {
		s.fail(w, r, route, domain.ErrOrderNotOpen)
		return
	}
	metrics.IncAdminRequest(route, "ok")
	writeJSON(w, http.StatusOK, map[string]any{"order_id": id, "status": model.OrderStatusCanceled})
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	const route = "GET /payments/{id}"
	id, ok := s.pathID(w, r, "paymentID", route)
	if !ok {
		return
	}
	p, err := s.payments.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, route, err)
		return
	}
	metrics.IncAdminRequest(route, "ok")
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

// confirmPayment settles a card payment checked by hand.
func (s *Server) confirmPayment(w http.ResponseWriter, r *http.Request) {
	const route = "POST /payments/{id}/confirm"
	id, ok := s.pathID(w, r, "paymentID", route)
	if !ok {
		return
	}
	res, err := s.settlement.ConfirmManual(r.Context(), id)
	if err != nil {
		s.fail(w, r, route, err)
		return
	}
	metrics.IncAdminRequest(route, "ok")
	metrics.AddBalanceCredited(res.Credited)
	writeJSON(w, http.StatusOK, map[string]any{
		"payment":  toPaymentDTO(res.Payment),
		"credited": res.Credited,
		"notified": res.Notified,
	})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request, param, route string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		metrics.IncAdminRequest(route, "bad_request")
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, route string, err error) {
	code, status := http.StatusInternalServerError, "error"
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrPaymentNotFound):
		code, status = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidArgument):
		code, status = http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrOrderNotOpen), errors.Is(err, domain.ErrSettlementRejected):
		code, status = http.StatusConflict, "conflict"
	}
	metrics.IncAdminRequest(route, status)
	if code == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("route", route).Msg("admin request failed")
		writeMessage(w, code, "internal error")
		return
	}
	writeMessage(w, code, err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}
