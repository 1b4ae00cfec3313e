package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	admissionrepository "github.com/smallbiznis/certihub/internal/admission/repository"
	admissionservice "github.com/smallbiznis/certihub/internal/admission/service"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	"github.com/smallbiznis/certihub/internal/cache"
	catalogrepository "github.com/smallbiznis/certihub/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/certihub/internal/catalog/service"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/config"
	enrollmentdomain "github.com/smallbiznis/certihub/internal/enrollment/domain"
	enrollmentrepository "github.com/smallbiznis/certihub/internal/enrollment/repository"
	enrollmentservice "github.com/smallbiznis/certihub/internal/enrollment/service"
	"github.com/smallbiznis/certihub/internal/payment/adapters"
	"github.com/smallbiznis/certihub/internal/payment/adapters/native"
	paymentdomain "github.com/smallbiznis/certihub/internal/payment/domain"
	"github.com/smallbiznis/certihub/internal/payment/repository"
	"github.com/smallbiznis/certihub/internal/testutil"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type fakeGateway struct {
	notification *paymentdomain.Notification
	err          error
}

func (g *fakeGateway) Provider() string { return "midtrans" }

func (g *fakeGateway) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return nil
}

func (g *fakeGateway) Parse(ctx context.Context, payload []byte) (*paymentdomain.Notification, error) {
	return nil, paymentdomain.ErrEventIgnored
}

func (g *fakeGateway) CheckStatus(ctx context.Context, invoiceID string) (*paymentdomain.Notification, error) {
	if g.err != nil {
		return nil, g.err
	}
	n := *g.notification
	n.InvoiceID = invoiceID
	return &n, nil
}

type fixture struct {
	svc           *Service
	db            *gorm.DB
	node          *snowflake.Node
	logs          *observer.ObservedLogs
	gateway       *fakeGateway
	enrollmentSvc enrollmentdomain.Service
	certID        snowflake.ID
}

func setup(t *testing.T) fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	auditSvc := testutil.NewAudit(db, node, clk)
	core, logs := observer.New(zap.InfoLevel)

	catalogSvc := catalogservice.NewService(catalogservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     catalogrepository.Provide(),
		Cache:    cache.NewCatalogCache(),
		AuditSvc: auditSvc,
	})
	admissionSvc := admissionservice.NewService(admissionservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Repo:       admissionrepository.Provide(),
		CatalogSvc: catalogSvc,
		AuditSvc:   auditSvc,
	})
	enrollmentSvc := enrollmentservice.NewService(enrollmentservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clk,
		Repo:         enrollmentrepository.Provide(),
		CatalogSvc:   catalogSvc,
		AdmissionSvc: admissionSvc,
		AuditSvc:     auditSvc,
		Policy:       config.NewStaticPolicyHolder(config.DefaultPolicyConfig()),
	})

	gateway := &fakeGateway{notification: &paymentdomain.Notification{
		Provider: "midtrans",
		EventID:  "tx-1:settlement",
		State:    paymentdomain.StateComplete,
	}}
	svc := NewService(Params{
		DB:            db,
		Log:           zap.New(core),
		GenID:         node,
		Clock:         clk,
		Cfg:           config.Config{Payment: config.PaymentConfig{Currency: "idr"}},
		Repo:          repository.Provide(),
		Adapters:      adapters.NewRegistry(native.New("secret"), gateway),
		CatalogSvc:    catalogSvc,
		EnrollmentSvc: enrollmentSvc,
		AuditSvc:      auditSvc,
	}).(*Service)

	certID, _ := testutil.SeedCertification(t, db, node, "go", "200", 3)
	return fixture{
		svc:           svc,
		db:            db,
		node:          node,
		logs:          logs,
		gateway:       gateway,
		enrollmentSvc: enrollmentSvc,
		certID:        certID,
	}
}

func (f fixture) complete(invoiceID, userID string) paymentdomain.Notification {
	return paymentdomain.Notification{
		Provider:        native.Provider,
		InvoiceID:       invoiceID,
		Amount:          decimal.RequireFromString("232"),
		Currency:        "IDR",
		Email:           "payer@example.com",
		State:           paymentdomain.StateComplete,
		UserID:          userID,
		CertificationID: f.certID.String(),
	}
}

func count(db *gorm.DB, model any) int64 {
	var n int64
	db.Model(model).Count(&n)
	return n
}

func TestReconcileCompleteEnrollsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n := f.complete("INV-1", "payer-1")

	txn, err := f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionCompleted, txn.Status)
	assert.True(t, txn.BaseAmount.Equal(decimal.RequireFromString("200")))
	assert.True(t, txn.TaxAmount.Equal(decimal.RequireFromString("32")))
	assert.True(t, txn.TotalAmount.Equal(decimal.RequireFromString("232")))
	assert.Equal(t, "payer@example.com", txn.PayerEmail)
	require.NotNil(t, txn.CompletedAt)

	enrollment, err := f.enrollmentSvc.FindByUserCertification(ctx, "payer-1", f.certID)
	require.NoError(t, err)
	assert.Equal(t, enrollmentdomain.ModeCompletedPayment, enrollment.AuthorizationMode)
	assert.Equal(t, enrollmentdomain.PaymentPaid, enrollment.PaymentStatus)

	again, err := f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, again.ID)
	assert.Equal(t, int64(1), count(f.db, &paymentdomain.Transaction{}))
	assert.Equal(t, int64(1), count(f.db, &enrollmentdomain.Enrollment{}))
	assert.Equal(t, int64(1), testutil.CountAudit(f.db, auditdomain.ActionPaymentReconciled))
}

func TestReconcilePendingThenComplete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n := f.complete("INV-2", "payer-1")
	n.State = paymentdomain.StatePending

	txn, err := f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionPending, txn.Status)
	assert.Nil(t, txn.CompletedAt)
	assert.Zero(t, count(f.db, &enrollmentdomain.Enrollment{}))

	n.State = paymentdomain.StateComplete
	txn, err = f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionCompleted, txn.Status)
	assert.Equal(t, int64(1), count(f.db, &enrollmentdomain.Enrollment{}))
}

func TestCompletedTransactionIsImmutable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n := f.complete("INV-3", "payer-1")

	_, err := f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)

	n.State = paymentdomain.StateFailed
	txn, err := f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionCompleted, txn.Status)
}

func TestReconcileSwallowsActiveEnrollmentConflict(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	otherCert, _ := testutil.SeedCertification(t, f.db, f.node, "rust", "100", 1)

	_, err := f.enrollmentSvc.ProvisionFromPayment(ctx, "payer-1", otherCert)
	require.NoError(t, err)

	txn, err := f.svc.ReconcilePayment(ctx, f.complete("INV-4", "payer-1"))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionCompleted, txn.Status)

	_, err = f.enrollmentSvc.FindByUserCertification(ctx, "payer-1", f.certID)
	assert.ErrorIs(t, err, enrollmentdomain.ErrEnrollmentMissing)
	assert.Equal(t, 1, f.logs.FilterMessage("paid enrollment needs manual follow-up").Len())
}

func TestReconcileMarksExistingEnrollmentPaid(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.SeedApplication(t, f.db, f.node, "user-1", f.certID, "approved")

	created, err := f.enrollmentSvc.CreateEnrollment(ctx, "user-1", enrollmentdomain.CreateEnrollmentRequest{CertificationID: f.certID.String()})
	require.NoError(t, err)
	assert.Equal(t, enrollmentdomain.PaymentPending, created.Enrollment.PaymentStatus)

	_, err = f.svc.ReconcilePayment(ctx, f.complete("INV-5", "user-1"))
	require.NoError(t, err)

	enrollment, err := f.enrollmentSvc.FindByUserCertification(ctx, "user-1", f.certID)
	require.NoError(t, err)
	assert.Equal(t, created.Enrollment.ID, enrollment.ID)
	assert.Equal(t, enrollmentdomain.PaymentPaid, enrollment.PaymentStatus)
}

func TestLatePendingDoesNotReopenFailedTransaction(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n := f.complete("INV-7", "payer-1")

	n.State = paymentdomain.StateFailed
	txn, err := f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionFailed, txn.Status)

	n.State = paymentdomain.StatePending
	txn, err = f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionFailed, txn.Status)
	assert.Zero(t, count(f.db, &enrollmentdomain.Enrollment{}))

	n.State = paymentdomain.StateComplete
	txn, err = f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionCompleted, txn.Status)
	assert.Equal(t, int64(1), count(f.db, &enrollmentdomain.Enrollment{}))
}

func TestReconcileFailedMarksEnrollmentPaymentFailed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.SeedApplication(t, f.db, f.node, "user-1", f.certID, "approved")

	created, err := f.enrollmentSvc.CreateEnrollment(ctx, "user-1", enrollmentdomain.CreateEnrollmentRequest{CertificationID: f.certID.String()})
	require.NoError(t, err)

	failed := f.complete("INV-8", "user-1")
	failed.State = paymentdomain.StateFailed
	_, err = f.svc.ReconcilePayment(ctx, failed)
	require.NoError(t, err)

	enrollment, err := f.enrollmentSvc.FindByUserCertification(ctx, "user-1", f.certID)
	require.NoError(t, err)
	assert.Equal(t, created.Enrollment.ID, enrollment.ID)
	assert.Equal(t, enrollmentdomain.PaymentFailed, enrollment.PaymentStatus)

	_, err = f.svc.ReconcilePayment(ctx, f.complete("INV-9", "user-1"))
	require.NoError(t, err)

	enrollment, err = f.enrollmentSvc.FindByUserCertification(ctx, "user-1", f.certID)
	require.NoError(t, err)
	assert.Equal(t, enrollmentdomain.PaymentPaid, enrollment.PaymentStatus)
}

func TestReconcileFailedWithoutEnrollmentRecordsOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n := f.complete("INV-10", "payer-1")
	n.State = paymentdomain.StateFailed

	txn, err := f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionFailed, txn.Status)
	assert.Zero(t, count(f.db, &enrollmentdomain.Enrollment{}))
}

func TestConcurrentReconcileEnrollsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n := f.complete("INV-11", "payer-1")

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ReconcilePayment(ctx, n)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(1), count(f.db, &paymentdomain.Transaction{}))
	assert.Equal(t, int64(1), count(f.db, &enrollmentdomain.Enrollment{}))

	enrollment, err := f.enrollmentSvc.FindByUserCertification(ctx, "payer-1", f.certID)
	require.NoError(t, err)
	assert.Equal(t, enrollmentdomain.PaymentPaid, enrollment.PaymentStatus)
}

func TestReconcileAmountMismatchOnlyWarns(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n := f.complete("INV-6", "payer-1")
	n.Amount = decimal.RequireFromString("200")

	txn, err := f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.True(t, txn.TotalAmount.Equal(decimal.RequireFromString("232")))
	assert.Equal(t, 1, f.logs.FilterMessage("payment amount differs from billed total").Len())
}

func TestReconcileRejectsBadNotifications(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	n := f.complete(" ", "payer-1")
	_, err := f.svc.ReconcilePayment(ctx, n)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidInvoice)

	n = f.complete("INV-7", "payer-1")
	n.State = "settled"
	_, err = f.svc.ReconcilePayment(ctx, n)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidState)

	n = f.complete("INV-7", "")
	_, err = f.svc.ReconcilePayment(ctx, n)
	assert.ErrorIs(t, err, paymentdomain.ErrMissingMetadata)

	n = f.complete("INV-7", "payer-1")
	n.CertificationID = f.node.Generate().String()
	_, err = f.svc.ReconcilePayment(ctx, n)
	assert.True(t, errkind.Is(err, errkind.NotFound))
}

func TestInitiateRefundLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	quote, err := f.svc.InitiatePayment(ctx, "user-1", "user@example.com", paymentdomain.InitiatePaymentRequest{
		CertificationID: f.certID.String(),
	})
	require.NoError(t, err)
	invoiceID := quote.Transaction.ExternalInvoiceID
	assert.True(t, strings.HasPrefix(invoiceID, "INV-"))
	assert.Equal(t, paymentdomain.TransactionPending, quote.Transaction.Status)
	assert.Equal(t, "IDR", quote.Transaction.Currency)
	assert.True(t, quote.Total.Equal(decimal.RequireFromString("232")))

	_, err = f.svc.RefundTransaction(ctx, invoiceID, "admin-1")
	assert.ErrorIs(t, err, paymentdomain.ErrNotRefundable)

	n := f.complete(invoiceID, "")
	n.CertificationID = ""
	txn, err := f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionCompleted, txn.Status)
	assert.Equal(t, "user-1", txn.UserID)

	refunded, err := f.svc.RefundTransaction(ctx, invoiceID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundedAt)

	_, err = f.svc.RefundTransaction(ctx, invoiceID, "admin-1")
	assert.True(t, errkind.Is(err, errkind.InvalidState))

	txn, err = f.svc.ReconcilePayment(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionRefunded, txn.Status)

	_, err = f.svc.RefundTransaction(ctx, "INV-missing", "admin-1")
	assert.ErrorIs(t, err, paymentdomain.ErrTransactionMissing)
	assert.Equal(t, int64(1), testutil.CountAudit(f.db, auditdomain.ActionPaymentRefunded))
}

func TestInitiatePaymentValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.InitiatePayment(ctx, "", "", paymentdomain.InitiatePaymentRequest{CertificationID: f.certID.String()})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidUser)

	_, err = f.svc.InitiatePayment(ctx, "user-1", "", paymentdomain.InitiatePaymentRequest{})
	assert.True(t, errkind.Is(err, errkind.InvalidInput))

	_, err = f.svc.InitiatePayment(ctx, "user-1", "", paymentdomain.InitiatePaymentRequest{
		CertificationID: f.node.Generate().String(),
	})
	assert.True(t, errkind.Is(err, errkind.NotFound))
}

func TestSyncInvoice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	quote, err := f.svc.InitiatePayment(ctx, "user-1", "", paymentdomain.InitiatePaymentRequest{
		CertificationID: f.certID.String(),
		Provider:        "midtrans",
	})
	require.NoError(t, err)

	txn, err := f.svc.SyncInvoice(ctx, quote.Transaction.ExternalInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.TransactionCompleted, txn.Status)

	_, err = f.enrollmentSvc.FindByUserCertification(ctx, "user-1", f.certID)
	assert.NoError(t, err)
}

func TestSyncInvoiceFailures(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	nativeQuote, err := f.svc.InitiatePayment(ctx, "user-1", "", paymentdomain.InitiatePaymentRequest{CertificationID: f.certID.String()})
	require.NoError(t, err)
	_, err = f.svc.SyncInvoice(ctx, nativeQuote.Transaction.ExternalInvoiceID)
	assert.ErrorIs(t, err, paymentdomain.ErrSyncUnsupported)

	quote, err := f.svc.InitiatePayment(ctx, "user-2", "", paymentdomain.InitiatePaymentRequest{
		CertificationID: f.certID.String(),
		Provider:        "midtrans",
	})
	require.NoError(t, err)
	f.gateway.err = errors.New("gateway timeout")
	_, err = f.svc.SyncInvoice(ctx, quote.Transaction.ExternalInvoiceID)
	assert.True(t, errkind.Is(err, errkind.UpstreamFailure))

	_, err = f.svc.SyncInvoice(ctx, "INV-missing")
	assert.ErrorIs(t, err, paymentdomain.ErrTransactionMissing)
}

func TestListTransactions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.InitiatePayment(ctx, "user-1", "", paymentdomain.InitiatePaymentRequest{CertificationID: f.certID.String()})
		require.NoError(t, err)
	}

	page, err := f.svc.ListTransactions(ctx, "user-1", pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 2)
	assert.True(t, page.HasMore)

	rest, err := f.svc.ListTransactions(ctx, "user-1", pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, rest.Transactions, 1)
	assert.False(t, rest.HasMore)
}
