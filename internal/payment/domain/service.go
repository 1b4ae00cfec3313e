package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// UpsertTransaction inserts the row or, when the invoice id exists, moves
	// its status unless the stored row is completed or refunded. A failed row
	// does not go back to pending.
	UpsertTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	InsertTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID string) (*Transaction, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string, page pagination.Pagination) ([]*Transaction, error)
	Refund(ctx context.Context, db *gorm.DB, invoiceID string, at time.Time) (bool, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, eventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}

// Adapter verifies and parses notifications of one gateway.
type Adapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Notification, error)
}

// StatusChecker is implemented by adapters whose gateway can be polled for
// the current state of an invoice.
type StatusChecker interface {
	CheckStatus(ctx context.Context, invoiceID string) (*Notification, error)
}

type InitiatePaymentRequest struct {
	CertificationID string `json:"certification_id" validate:"required"`
	Provider        string `json:"provider" validate:"omitempty,oneof=native midtrans"`
}

type ListTransactionsResponse struct {
	pagination.PageInfo
	Transactions []Transaction `json:"transactions"`
}

type PaymentQuote struct {
	Transaction Transaction     `json:"transaction"`
	Base        decimal.Decimal `json:"base"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

type Service interface {
	// ReconcilePayment is safe to call repeatedly with the same notification.
	ReconcilePayment(ctx context.Context, n Notification) (*Transaction, error)
	InitiatePayment(ctx context.Context, userID, email string, req InitiatePaymentRequest) (*PaymentQuote, error)
	RefundTransaction(ctx context.Context, invoiceID string, actorID string) (*Transaction, error)
	SyncInvoice(ctx context.Context, invoiceID string) (*Transaction, error)
	GetTransaction(ctx context.Context, invoiceID string) (*Transaction, error)
	ListTransactions(ctx context.Context, userID string, page pagination.Pagination) (ListTransactionsResponse, error)
}

type WebhookService interface {
	Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error
}
