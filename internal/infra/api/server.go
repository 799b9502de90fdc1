package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/config"
	"telegram-digital-shop/internal/domain"
	"telegram-digital-shop/internal/domain/ports/adapter"
	"telegram-digital-shop/internal/infra/logging"
	"telegram-digital-shop/internal/infra/metrics"
	"telegram-digital-shop/internal/usecase"
)

const callbackTimeout = 10 * time.Second

// AdminRoutes mounts the operator API under /api/v1.
type AdminRoutes interface {
	Register(r chi.Router)
}

// Server is the settlement gateway plus the operator API.
type Server struct {
	settlement usecase.SettlementUseCase
	admin      AdminRoutes
	auth       *AuthManager
	allow      *IPAllowList
	trustProxy bool
	cbPath     string
	cbMethod   string
	addr       string
	log        *zerolog.Logger

	srv *http.Server
}

func NewServer(
	cfg *config.APIConfig,
	settlement usecase.SettlementUseCase,
	admin AdminRoutes,
	auth *AuthManager,
	logger *zerolog.Logger,
) (*Server, error) {
	allow, err := NewIPAllowList(cfg.AllowedIPs)
	if err != nil {
		return nil, fmt.Errorf("api.allowed_ips: %w", err)
	}
	cbPath := cfg.CallbackPath
	if cbPath == "" {
		cbPath = "/payment/callback"
	}
	cbMethod := strings.ToUpper(strings.TrimSpace(cfg.CallbackMethod))
	if cbMethod == "" {
		cbMethod = http.MethodGet
	}
	apiLog := logger.With().Str("component", "api").Logger()
	return &Server{
		settlement: settlement,
		admin:      admin,
		auth:       auth,
		allow:      allow,
		trustProxy: cfg.TrustProxy,
		cbPath:     cbPath,
		cbMethod:   cbMethod,
		addr:       fmt.Sprintf(":%d", cfg.Port),
		log:        &apiLog,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// every verb reaches the handler so a wrong one is a rejection, not a 405
	r.HandleFunc(s.cbPath, s.handleCallback)

	if s.admin != nil && s.auth != nil {
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(Timeout(15*time.Second), s.auth.RequireAdmin)
			s.admin.Register(r)
		})
	}
	return r
}

func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Str("addr", s.addr).Str("callback", s.cbPath).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), callbackTimeout)
	defer cancel()
	l := logging.With(ctx, s.log)

	var (
		res *usecase.Settlement
		err error
	)
	switch ip := ClientIP(r, s.trustProxy); {
	case !s.allow.Allowed(ip):
		l.Warn().Str("ip", ip).Msg("callback from untrusted source")
		err = domain.ErrUntrustedSource
	case r.Method != s.cbMethod:
		err = domain.ErrMethodNotAllowed
	default:
		var cb adapter.Callback
		if cb, err = parseCallback(r); err == nil {
			ctx = logging.WithPayID(ctx, cb.PayID)
			l = logging.With(ctx, s.log)
			res, err = s.settlement.Settle(ctx, cb)
		}
	}

	result, reason := classify(err)
	metrics.SettlementDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	metrics.IncSettlement(result, reason)

	switch result {
	case "ok":
		metrics.AddBalanceCredited(res.Credited)
		if res.Notified {
			metrics.IncSettlementNotify("sent")
		} else {
			metrics.IncSettlementNotify("error")
		}
		l.Info().Int64("payment_id", res.Payment.PaymentID).Int64("credited", res.Credited).Msg("payment settled")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	case "rejected":
		l.Info().Str("reason", reason).Err(err).Msg("callback rejected")
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		// provider retries on 5xx
		l.Error().Err(err).Msg("settlement failed")
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// parseCallback reads the provider fields from the query string and, for
// form posts, the body.
func parseCallback(r *http.Request) (adapter.Callback, error) {
	if err := r.ParseForm(); err != nil {
		return adapter.Callback{}, fmt.Errorf("%w: malformed request", domain.ErrSettlementRejected)
	}
	fields := make(map[string]string, len(r.Form))
	for k, v := range r.Form {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	cb := adapter.Callback{
		PayID:         fields["pay_id"],
		Amount:        fields["amount"],
		Status:        fields["status"],
		TransactionID: fields["transaction_id"],
		Sign:          fields["sign"],
		Fields:        fields,
	}
	if cb.PayID == "" || cb.Sign == "" {
		return adapter.Callback{}, fmt.Errorf("%w: missing pay_id or sign", domain.ErrSettlementRejected)
	}
	return cb, nil
}

// classify maps a settlement outcome onto bounded metric labels.
func classify(err error) (result, reason string) {
	switch {
	case err == nil:
		return "ok", ""
	case errors.Is(err, domain.ErrUntrustedSource):
		return "rejected", "source"
	case errors.Is(err, domain.ErrMethodNotAllowed):
		return "rejected", "method"
	case errors.Is(err, domain.ErrBadSignature):
		return "rejected", "signature"
	case errors.Is(err, domain.ErrPaymentNotPaid):
		return "rejected", "not_paid"
	case errors.Is(err, domain.ErrPaymentNotFound):
		return "rejected", "not_found"
	case errors.Is(err, domain.ErrAlreadySettled):
		return "rejected", "already_settled"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "rejected", "amount"
	case errors.Is(err, domain.ErrSettlementRejected):
		return "rejected", "bad_request"
	default:
		return "error", ""
	}
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
