package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionRefunded  TransactionStatus = "refunded"
)

// IsFinal reports whether the row no longer accepts gateway updates.
func (s TransactionStatus) IsFinal() bool {
	return s == TransactionCompleted || s == TransactionRefunded
}

// State is the gateway-agnostic payment state carried by a notification.
type State string

const (
	StatePending  State = "pending"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

func (s State) Valid() bool {
	switch s {
	case StatePending, StateComplete, StateFailed:
		return true
	default:
		return false
	}
}

// TransactionStatus maps a notification state onto the stored status.
func (s State) TransactionStatus() TransactionStatus {
	switch s {
	case StateComplete:
		return TransactionCompleted
	case StateFailed:
		return TransactionFailed
	default:
		return TransactionPending
	}
}

type Transaction struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID            string            `gorm:"column:user_id;not null" json:"user_id"`
	CertificationID   snowflake.ID      `gorm:"column:certification_id;not null" json:"certification_id"`
	ExternalInvoiceID string            `gorm:"column:external_invoice_id;not null" json:"external_invoice_id"`
	Provider          string            `gorm:"type:text;not null" json:"provider"`
	BaseAmount        decimal.Decimal   `gorm:"column:base_amount;type:numeric(12,2);not null" json:"base_amount"`
	TaxAmount         decimal.Decimal   `gorm:"column:tax_amount;type:numeric(12,2);not null" json:"tax_amount"`
	TotalAmount       decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	Currency          string            `gorm:"type:text;not null" json:"currency"`
	PayerEmail        string            `gorm:"column:payer_email" json:"payer_email,omitempty"`
	Status            TransactionStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt         time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null" json:"updated_at"`
	CompletedAt       *time.Time        `gorm:"column:completed_at" json:"completed_at,omitempty"`
	RefundedAt        *time.Time        `gorm:"column:refunded_at" json:"refunded_at,omitempty"`
}

func (Transaction) TableName() string { return "transactions" }

// EventRecord is one received gateway notification, deduplicated by
// (provider, event_id).
type EventRecord struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Provider    string       `gorm:"type:text;not null" json:"provider"`
	EventID     string       `gorm:"column:event_id;type:text;not null" json:"event_id"`
	InvoiceID   string       `gorm:"column:invoice_id;type:text;not null" json:"invoice_id"`
	State       State        `gorm:"type:text;not null" json:"state"`
	Payload     string       `gorm:"type:text" json:"payload"`
	ReceivedAt  time.Time    `gorm:"column:received_at;not null" json:"received_at"`
	ProcessedAt *time.Time   `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (EventRecord) TableName() string { return "payment_events" }

// Notification is the canonical payment record produced by gateway adapters
// and consumed by reconciliation.
type Notification struct {
	Provider        string
	EventID         string
	InvoiceID       string
	Amount          decimal.Decimal
	Currency        string
	Email           string
	State           State
	UserID          string
	CertificationID string
	RawPayload      []byte
}
