package native

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/certihub/internal/payment/domain"
)

const (
	Provider        = "native"
	SignatureHeader = "X-Signature"
)

type Adapter struct {
	secret string
}

// New returns the adapter for the first-party gateway. An empty secret
// rejects every notification.
func New(secret string) *Adapter {
	return &Adapter{secret: strings.TrimSpace(secret)}
}

func (a *Adapter) Provider() string {
	return Provider
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.secret == "" {
		return domain.ErrInvalidSignature
	}
	signature := strings.ToLower(strings.TrimSpace(headers.Get(SignatureHeader)))
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return domain.ErrInvalidSignature
	}

	expected := Sign(a.secret, payload)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.Notification, error) {
	var body notification
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(body.InvoiceID) == "" {
		return nil, domain.ErrInvalidInvoice
	}

	sum := sha256.Sum256(payload)
	return &domain.Notification{
		Provider:        Provider,
		EventID:         hex.EncodeToString(sum[:]),
		InvoiceID:       strings.TrimSpace(body.InvoiceID),
		Amount:          body.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(body.Currency)),
		Email:           strings.TrimSpace(body.Email),
		State:           domain.State(strings.ToLower(strings.TrimSpace(body.State))),
		UserID:          strings.TrimSpace(body.Metadata.UserID),
		CertificationID: strings.TrimSpace(body.Metadata.CertificationID),
		RawPayload:      payload,
	}, nil
}

// Sign returns the hex HMAC-SHA256 of payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type notification struct {
	InvoiceID string          `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Email     string          `json:"email"`
	State     string          `json:"state"`
	Metadata  struct {
		CertificationID string `json:"certificationId"`
		UserID          string `json:"userId"`
	} `json:"metadata"`
}
