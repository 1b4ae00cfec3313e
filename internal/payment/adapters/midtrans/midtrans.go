package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	gateway "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/certihub/internal/payment/domain"
)

const Provider = "midtrans"

// StatusClient is the subset of the Midtrans core API used for invoice sync.
type StatusClient interface {
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *gateway.Error)
}

type Adapter struct {
	serverKey string
	client    StatusClient
}

func New(serverKey string, production bool) *Adapter {
	env := gateway.Sandbox
	if production {
		env = gateway.Production
	}
	client := &coreapi.Client{}
	client.New(serverKey, env)
	return NewWithClient(serverKey, client)
}

func NewWithClient(serverKey string, client StatusClient) *Adapter {
	return &Adapter{serverKey: strings.TrimSpace(serverKey), client: client}
}

func (a *Adapter) Provider() string {
	return Provider
}

// Verify checks signature_key = SHA512(order_id + status_code + gross_amount + server_key).
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.serverKey == "" {
		return domain.ErrInvalidSignature
	}
	var body notification
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.ErrInvalidPayload
	}
	want := strings.ToLower(strings.TrimSpace(body.SignatureKey))
	if want == "" {
		return domain.ErrInvalidSignature
	}
	got := Signature(body.OrderID, body.StatusCode, body.GrossAmount, a.serverKey)
	if subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.Notification, error) {
	var body notification
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(body.OrderID) == "" {
		return nil, domain.ErrInvalidInvoice
	}
	state, ok := MapStatus(body.TransactionStatus, body.FraudStatus)
	if !ok {
		return nil, domain.ErrEventIgnored
	}

	amount, err := parseAmount(body.GrossAmount)
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	eventID := strings.TrimSpace(body.TransactionID)
	if eventID == "" {
		eventID = body.OrderID
	}
	return &domain.Notification{
		Provider:        Provider,
		EventID:         eventID + ":" + strings.ToLower(body.TransactionStatus),
		InvoiceID:       strings.TrimSpace(body.OrderID),
		Amount:          amount,
		Currency:        strings.ToUpper(strings.TrimSpace(body.Currency)),
		State:           state,
		UserID:          strings.TrimSpace(body.CustomField1),
		CertificationID: strings.TrimSpace(body.CustomField2),
		RawPayload:      payload,
	}, nil
}

func (a *Adapter) CheckStatus(ctx context.Context, invoiceID string) (*domain.Notification, error) {
	if a.client == nil {
		return nil, domain.ErrSyncUnsupported
	}
	resp, merr := a.client.CheckTransaction(invoiceID)
	if merr != nil {
		return nil, fmt.Errorf("midtrans status check: %d %s", merr.StatusCode, merr.Message)
	}
	if resp == nil {
		return nil, fmt.Errorf("midtrans status check: empty response")
	}

	state, ok := MapStatus(resp.TransactionStatus, resp.FraudStatus)
	if !ok {
		return nil, domain.ErrEventIgnored
	}
	amount, err := parseAmount(resp.GrossAmount)
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}
	return &domain.Notification{
		Provider:  Provider,
		EventID:   resp.TransactionID + ":" + strings.ToLower(resp.TransactionStatus),
		InvoiceID: invoiceID,
		Amount:    amount,
		Currency:  strings.ToUpper(strings.TrimSpace(resp.Currency)),
		State:     state,
	}, nil
}

// MapStatus folds Midtrans transaction statuses into payment states. Refund
// statuses are not notifications we act on.
func MapStatus(transactionStatus, fraudStatus string) (domain.State, bool) {
	switch strings.ToLower(strings.TrimSpace(transactionStatus)) {
	case "settlement":
		return domain.StateComplete, true
	case "capture":
		if strings.EqualFold(strings.TrimSpace(fraudStatus), "challenge") {
			return domain.StatePending, true
		}
		return domain.StateComplete, true
	case "pending":
		return domain.StatePending, true
	case "deny", "cancel", "expire", "failure":
		return domain.StateFailed, true
	default:
		return "", false
	}
}

func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

type notification struct {
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	Currency          string `json:"currency"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
	CustomField1      string `json:"custom_field1"`
	CustomField2      string `json:"custom_field2"`
}
