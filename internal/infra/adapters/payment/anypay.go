package payment

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*AnyPay)(nil)

// AnyPay builds signed checkout links and verifies settlement callbacks.
type AnyPay struct {
	merchantID string
	secret     string
	baseURL    string
	currency   string
}

func NewAnyPay(merchantID, secret, baseURL, currency string) (*AnyPay, error) {
	if merchantID == "" || secret == "" {
		return nil, errors.New("anypay merchant id and secret are required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid anypay base url: %w", err)
	}
	if currency == "" {
		currency = "RUB"
	}
	return &AnyPay{
		merchantID: merchantID,
		secret:     secret,
		baseURL:    strings.TrimRight(baseURL, "?"),
		currency:   strings.ToUpper(currency),
	}, nil
}

func (a *AnyPay) Name() string { return string(model.PlatformAnyPay) }

// PaymentLink signs currency:amount:secret:merchant:pay_id. The URL carries
// the amount with two decimals.
func (a *AnyPay) PaymentLink(p *model.Payment) string {
	payID := strconv.FormatInt(p.PaymentID, 10)
	sign := md5Hex(a.currency, strconv.FormatInt(p.Price.Amount, 10), a.secret, a.merchantID, payID)

	q := url.Values{}
	q.Set("merchant_id", a.merchantID)
	q.Set("pay_id", payID)
	q.Set("amount", fmt.Sprintf("%.2f", float64(p.Price.Amount)))
	q.Set("currency", a.currency)
	q.Set("sign", sign)
	return a.baseURL + "?" + q.Encode()
}

// VerifyCallback recomputes merchant:amount:pay_id:secret over the fields
// exactly as the provider sent them.
func (a *AnyPay) VerifyCallback(cb adapter.Callback) bool {
	if cb.Sign == "" || cb.PayID == "" {
		return false
	}
	want := md5Hex(a.merchantID, cb.Amount, cb.PayID, a.secret)
	got := strings.ToLower(strings.TrimSpace(cb.Sign))
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func md5Hex(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}
