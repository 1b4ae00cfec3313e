package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	"github.com/smallbiznis/certihub/internal/billing"
	catalogdomain "github.com/smallbiznis/certihub/internal/catalog/domain"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/config"
	enrollmentdomain "github.com/smallbiznis/certihub/internal/enrollment/domain"
	"github.com/smallbiznis/certihub/internal/observability/metrics"
	"github.com/smallbiznis/certihub/internal/payment/adapters"
	"github.com/smallbiznis/certihub/internal/payment/adapters/native"
	paymentdomain "github.com/smallbiznis/certihub/internal/payment/domain"
	"github.com/smallbiznis/certihub/internal/validator"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Cfg           config.Config
	Repo          paymentdomain.Repository
	Adapters      *adapters.Registry
	CatalogSvc    catalogdomain.Service
	EnrollmentSvc enrollmentdomain.Service
	AuditSvc      auditdomain.Service
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	currency      string
	repo          paymentdomain.Repository
	adapters      *adapters.Registry
	catalogSvc    catalogdomain.Service
	enrollmentSvc enrollmentdomain.Service
	auditSvc      auditdomain.Service
	metrics       *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.Payment.Currency))
	if currency == "" {
		currency = "IDR"
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("payment.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		currency:      currency,
		repo:          p.Repo,
		adapters:      p.Adapters,
		catalogSvc:    p.CatalogSvc,
		enrollmentSvc: p.EnrollmentSvc,
		auditSvc:      p.AuditSvc,
		metrics:       p.Metrics,
	}
}

// ReconcilePayment records the gateway state of an invoice and, once the
// invoice is complete, makes sure the payer is enrolled.
func (s *Service) ReconcilePayment(ctx context.Context, n paymentdomain.Notification) (*paymentdomain.Transaction, error) {
	n.InvoiceID = strings.TrimSpace(n.InvoiceID)
	if n.InvoiceID == "" {
		return nil, paymentdomain.ErrInvalidInvoice
	}
	if !n.State.Valid() {
		return nil, paymentdomain.ErrInvalidState
	}
	provider := strings.ToLower(strings.TrimSpace(n.Provider))
	if provider == "" {
		provider = native.Provider
	}

	stored, err := s.repo.FindByInvoice(ctx, s.db, n.InvoiceID)
	if err != nil {
		return nil, errkind.Upstream(err, "load transaction")
	}

	userID, certID, err := s.resolveParties(n, stored)
	if err != nil {
		return nil, err
	}

	cert, err := s.catalogSvc.GetCertification(ctx, certID)
	if err != nil {
		return nil, err
	}
	breakdown, err := billing.Compute(cert.Price)
	if err != nil {
		return nil, err
	}
	if !n.Amount.IsZero() && !breakdown.MatchesTotal(n.Amount) {
		s.log.Warn("payment amount differs from billed total",
			zap.String("invoice_id", n.InvoiceID),
			zap.String("reported", n.Amount.String()),
			zap.String("expected", breakdown.Total.String()),
		)
	}

	currency := strings.ToUpper(strings.TrimSpace(n.Currency))
	if currency == "" {
		currency = s.currency
	}

	now := s.clock.Now()
	txn := paymentdomain.Transaction{
		ID:                s.genID.Generate(),
		UserID:            userID,
		CertificationID:   certID,
		ExternalInvoiceID: n.InvoiceID,
		Provider:          provider,
		BaseAmount:        breakdown.Base,
		TaxAmount:         breakdown.Tax,
		TotalAmount:       breakdown.Total,
		Currency:          currency,
		PayerEmail:        strings.TrimSpace(n.Email),
		Status:            n.State.TransactionStatus(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if n.State == paymentdomain.StateComplete {
		txn.CompletedAt = &now
	}
	if err := s.repo.UpsertTransaction(ctx, s.db, &txn); err != nil {
		return nil, errkind.Upstream(err, "upsert transaction")
	}

	current, err := s.repo.FindByInvoice(ctx, s.db, n.InvoiceID)
	if err != nil {
		return nil, errkind.Upstream(err, "load transaction")
	}
	if current == nil {
		return nil, paymentdomain.ErrTransactionMissing
	}

	var previous paymentdomain.TransactionStatus
	if stored != nil {
		previous = stored.Status
	}
	if previous != current.Status {
		s.audit(ctx, auditdomain.ActorSystem, auditdomain.ActionPaymentReconciled, *current, map[string]any{
			"provider":        provider,
			"state":           string(n.State),
			"previous_status": string(previous),
			"payer_email":     current.PayerEmail,
		})
	}

	outcome := "recorded"
	switch {
	case n.State == paymentdomain.StateFailed:
		if current.Status != paymentdomain.TransactionFailed {
			outcome = "immutable"
			break
		}
		if err := s.markEnrollmentFailed(ctx, current); err != nil {
			s.metrics.RecordPaymentNotification(provider, string(n.State), "error")
			return nil, err
		}
	case n.State != paymentdomain.StateComplete:
	case current.Status != paymentdomain.TransactionCompleted:
		outcome = "immutable"
		s.log.Info("completed notification ignored for final transaction",
			zap.String("invoice_id", current.ExternalInvoiceID),
			zap.String("status", string(current.Status)),
		)
	default:
		outcome, err = s.ensureEnrollment(ctx, current)
		if err != nil {
			s.metrics.RecordPaymentNotification(provider, string(n.State), "error")
			return nil, err
		}
	}
	s.metrics.RecordPaymentNotification(provider, string(n.State), outcome)
	return current, nil
}

func (s *Service) resolveParties(n paymentdomain.Notification, stored *paymentdomain.Transaction) (string, snowflake.ID, error) {
	userID := strings.TrimSpace(n.UserID)
	if userID == "" && stored != nil {
		userID = stored.UserID
	}

	var certID snowflake.ID
	if raw := strings.TrimSpace(n.CertificationID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return "", 0, err
		}
		certID = id
	} else if stored != nil {
		certID = stored.CertificationID
	}

	if userID == "" || certID == 0 {
		return "", 0, paymentdomain.ErrMissingMetadata
	}
	return userID, certID, nil
}

// ensureEnrollment marks an existing enrollment paid or provisions one. A
// conflicting active enrollment is left for manual follow-up.
func (s *Service) ensureEnrollment(ctx context.Context, txn *paymentdomain.Transaction) (string, error) {
	existing, err := s.enrollmentSvc.FindByUserCertification(ctx, txn.UserID, txn.CertificationID)
	switch {
	case err == nil:
		if err := s.enrollmentSvc.MarkPaid(ctx, existing.ID); err != nil {
			return "", err
		}
		return "already_enrolled", nil
	case !errkind.Is(err, enrollmentdomain.ErrEnrollmentMissing):
		return "", err
	}

	result, err := s.enrollmentSvc.ProvisionFromPayment(ctx, txn.UserID, txn.CertificationID)
	if err != nil {
		if errkind.Is(err, errkind.Conflict) {
			s.log.Warn("paid enrollment needs manual follow-up",
				zap.String("invoice_id", txn.ExternalInvoiceID),
				zap.String("user_id", txn.UserID),
				zap.String("certification_id", txn.CertificationID.String()),
				zap.String("reason", errkind.Hint(err)),
			)
			return "conflict", nil
		}
		return "", err
	}
	if len(result.Warnings) > 0 {
		s.log.Warn("paid enrollment created with warnings",
			zap.String("enrollment_id", result.Enrollment.ID.String()),
			zap.Strings("warnings", result.Warnings),
		)
	}
	return "enrolled", nil
}

// markEnrollmentFailed flags an existing unpaid enrollment; without one a
// failed payment has nothing to update.
func (s *Service) markEnrollmentFailed(ctx context.Context, txn *paymentdomain.Transaction) error {
	existing, err := s.enrollmentSvc.FindByUserCertification(ctx, txn.UserID, txn.CertificationID)
	if err != nil {
		if errkind.Is(err, enrollmentdomain.ErrEnrollmentMissing) {
			return nil
		}
		return err
	}
	return s.enrollmentSvc.MarkPaymentFailed(ctx, existing.ID)
}

func (s *Service) InitiatePayment(ctx context.Context, userID, email string, req paymentdomain.InitiatePaymentRequest) (*paymentdomain.PaymentQuote, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, paymentdomain.ErrInvalidUser
	}
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	certID, err := parseID(req.CertificationID)
	if err != nil {
		return nil, err
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = native.Provider
	}
	if !s.adapters.ProviderExists(provider) {
		return nil, paymentdomain.ErrProviderNotFound
	}

	cert, err := s.catalogSvc.GetPublishedCertification(ctx, certID)
	if err != nil {
		return nil, err
	}
	breakdown, err := billing.Compute(cert.Price)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	txn := paymentdomain.Transaction{
		ID:                s.genID.Generate(),
		UserID:            userID,
		CertificationID:   certID,
		ExternalInvoiceID: "INV-" + ulid.Make().String(),
		Provider:          provider,
		BaseAmount:        breakdown.Base,
		TaxAmount:         breakdown.Tax,
		TotalAmount:       breakdown.Total,
		Currency:          s.currency,
		PayerEmail:        strings.TrimSpace(email),
		Status:            paymentdomain.TransactionPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.InsertTransaction(ctx, s.db, &txn); err != nil {
		return nil, errkind.Upstream(err, "insert transaction")
	}

	return &paymentdomain.PaymentQuote{
		Transaction: txn,
		Base:        breakdown.Base,
		Tax:         breakdown.Tax,
		Total:       breakdown.Total,
	}, nil
}

func (s *Service) RefundTransaction(ctx context.Context, invoiceID string, actorID string) (*paymentdomain.Transaction, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, paymentdomain.ErrInvalidInvoice
	}

	refunded, err := s.repo.Refund(ctx, s.db, invoiceID, s.clock.Now())
	if err != nil {
		return nil, errkind.Upstream(err, "refund transaction")
	}
	txn, err := s.GetTransaction(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !refunded {
		return nil, paymentdomain.ErrNotRefundable
	}

	s.audit(ctx, actorID, auditdomain.ActionPaymentRefunded, *txn, nil)
	return txn, nil
}

func (s *Service) SyncInvoice(ctx context.Context, invoiceID string) (*paymentdomain.Transaction, error) {
	txn, err := s.GetTransaction(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	checker, err := s.adapters.StatusChecker(txn.Provider)
	if err != nil {
		return nil, err
	}

	n, err := checker.CheckStatus(ctx, txn.ExternalInvoiceID)
	if err != nil {
		if errkind.KindOf(err) != nil {
			return nil, err
		}
		return nil, errkind.Upstream(err, "check invoice status")
	}
	n.UserID = txn.UserID
	n.CertificationID = txn.CertificationID.String()
	return s.ReconcilePayment(ctx, *n)
}

func (s *Service) GetTransaction(ctx context.Context, invoiceID string) (*paymentdomain.Transaction, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, paymentdomain.ErrInvalidInvoice
	}
	txn, err := s.repo.FindByInvoice(ctx, s.db, invoiceID)
	if err != nil {
		return nil, errkind.Upstream(err, "load transaction")
	}
	if txn == nil {
		return nil, paymentdomain.ErrTransactionMissing
	}
	return txn, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID string, page pagination.Pagination) (paymentdomain.ListTransactionsResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return paymentdomain.ListTransactionsResponse{}, paymentdomain.ErrInvalidUser
	}
	items, err := s.repo.ListByUser(ctx, s.db, userID, page)
	if err != nil {
		return paymentdomain.ListTransactionsResponse{}, errkind.Upstream(err, "list transactions")
	}
	items, pageInfo := pagination.Trim(items, page, func(t *paymentdomain.Transaction) string {
		return t.ID.String()
	})

	out := make([]paymentdomain.Transaction, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return paymentdomain.ListTransactionsResponse{PageInfo: pageInfo, Transactions: out}, nil
}

func (s *Service) audit(ctx context.Context, actorID, action string, txn paymentdomain.Transaction, extra map[string]any) {
	metadata := map[string]any{
		"invoice_id":       txn.ExternalInvoiceID,
		"user_id":          txn.UserID,
		"certification_id": txn.CertificationID.String(),
		"status":           string(txn.Status),
		"total_amount":     txn.TotalAmount.String(),
	}
	for k, v := range extra {
		metadata[k] = v
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorID:    actorID,
		Action:     action,
		TargetType: auditdomain.TargetTransaction,
		TargetID:   txn.ID.String(),
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Warn("audit payment failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, paymentdomain.ErrInvalidID
	}
	return id, nil
}
