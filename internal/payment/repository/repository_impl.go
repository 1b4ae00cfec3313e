package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/payment/domain"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UpsertTransaction(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, user_id, certification_id, external_invoice_id, provider,
			base_amount, tax_amount, total_amount, currency, payer_email,
			status, created_at, updated_at, completed_at, refunded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT (external_invoice_id) DO UPDATE SET
			status = excluded.status,
			payer_email = CASE WHEN excluded.payer_email = '' THEN transactions.payer_email ELSE excluded.payer_email END,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
		WHERE transactions.status NOT IN (?, ?)
			AND NOT (transactions.status = ? AND excluded.status = ?)`,
		txn.ID,
		txn.UserID,
		txn.CertificationID,
		txn.ExternalInvoiceID,
		txn.Provider,
		txn.BaseAmount,
		txn.TaxAmount,
		txn.TotalAmount,
		txn.Currency,
		txn.PayerEmail,
		txn.Status,
		txn.CreatedAt,
		txn.UpdatedAt,
		txn.CompletedAt,
		domain.TransactionCompleted,
		domain.TransactionRefunded,
		domain.TransactionFailed,
		domain.TransactionPending,
	).Error
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID string) (*domain.Transaction, error) {
	var txn domain.Transaction
	res := db.WithContext(ctx).
		Where("external_invoice_id = ?", invoiceID).
		Limit(1).
		Find(&txn)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &txn, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string, page pagination.Pagination) ([]*domain.Transaction, error) {
	var items []*domain.Transaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Scopes(pagination.Scope(page)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Refund(ctx context.Context, db *gorm.DB, invoiceID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET status = ?, refunded_at = ?, updated_at = ?
		 WHERE external_invoice_id = ? AND status = ?`,
		domain.TransactionRefunded, at, at, invoiceID, domain.TransactionCompleted,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (
			id, provider, event_id, invoice_id, state, payload, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, event_id) DO NOTHING`,
		event.ID,
		event.Provider,
		event.EventID,
		event.InvoiceID,
		event.State,
		event.Payload,
		event.ReceivedAt,
		event.ProcessedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, provider, eventID string) (*domain.EventRecord, error) {
	var item domain.EventRecord
	res := db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Limit(1).
		Find(&item)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events SET processed_at = ? WHERE id = ?`,
		at, id,
	).Error
}
