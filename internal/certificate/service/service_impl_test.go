package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/iotest"
	"time"

	"github.com/bwmarrin/snowflake"
	admissionrepository "github.com/smallbiznis/certihub/internal/admission/repository"
	admissionservice "github.com/smallbiznis/certihub/internal/admission/service"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	"github.com/smallbiznis/certihub/internal/cache"
	catalogrepository "github.com/smallbiznis/certihub/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/certihub/internal/catalog/service"
	"github.com/smallbiznis/certihub/internal/certificate/domain"
	"github.com/smallbiznis/certihub/internal/certificate/repository"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/config"
	enrollmentdomain "github.com/smallbiznis/certihub/internal/enrollment/domain"
	enrollmentrepository "github.com/smallbiznis/certihub/internal/enrollment/repository"
	enrollmentservice "github.com/smallbiznis/certihub/internal/enrollment/service"
	"github.com/smallbiznis/certihub/internal/testutil"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var numberPattern = regexp.MustCompile(`^CERT-\d{6}-[0-9A-Z]+-[A-Z0-9]{2}$`)

type fixture struct {
	svc           *Service
	db            *gorm.DB
	node          *snowflake.Node
	clk           *clock.FakeClock
	enrollmentSvc enrollmentdomain.Service
	certID        snowflake.ID
	moduleIDs     []snowflake.ID
}

func setup(t *testing.T, policy config.PolicyConfig) fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	auditSvc := testutil.NewAudit(db, node, clk)
	holder := config.NewStaticPolicyHolder(policy)

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
		Policy:       holder,
	})

	svc := NewService(Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clk,
		Repo:          repository.Provide(),
		EnrollmentSvc: enrollmentSvc,
		AuditSvc:      auditSvc,
		Policy:        holder,
	}).(*Service)

	certID, moduleIDs := testutil.SeedCertification(t, db, node, "go", "200", 2)
	return fixture{
		svc:           svc,
		db:            db,
		node:          node,
		clk:           clk,
		enrollmentSvc: enrollmentSvc,
		certID:        certID,
		moduleIDs:     moduleIDs,
	}
}

func (f fixture) enroll(t *testing.T, userID string) {
	t.Helper()
	_, err := f.enrollmentSvc.ProvisionFromPayment(context.Background(), userID, f.certID)
	require.NoError(t, err)
}

func (f fixture) issueRequest(userID string) domain.IssueCertificateRequest {
	return domain.IssueCertificateRequest{UserID: userID, CertificationID: f.certID.String()}
}

func TestIssueCertificatePermissive(t *testing.T) {
	f := setup(t, config.DefaultPolicyConfig())
	ctx := context.Background()
	f.enroll(t, "user-1")

	cert, err := f.svc.IssueCertificate(ctx, f.issueRequest("user-1"), "admin-1")
	require.NoError(t, err)
	assert.Regexp(t, numberPattern, cert.CertificateNumber)
	assert.Contains(t, cert.CertificateNumber, "CERT-260401-")
	assert.False(t, cert.IsRevoked)
	assert.Equal(t, f.clk.Now(), cert.IssueDate)
	assert.Nil(t, cert.ExpiryDate)

	enrollment, err := f.enrollmentSvc.FindByUserCertification(ctx, "user-1", f.certID)
	require.NoError(t, err)
	assert.True(t, enrollment.CertificateIssued)
	assert.Equal(t, int64(1), testutil.CountAudit(f.db, auditdomain.ActionCertificateIssued))

	second, err := f.svc.IssueCertificate(ctx, f.issueRequest("user-1"), "admin-1")
	require.NoError(t, err)
	assert.NotEqual(t, cert.CertificateNumber, second.CertificateNumber)
}

func TestIssueCertificateRequiresEnrollment(t *testing.T) {
	f := setup(t, config.DefaultPolicyConfig())

	_, err := f.svc.IssueCertificate(context.Background(), f.issueRequest("nobody"), "admin-1")
	assert.ErrorIs(t, err, enrollmentdomain.ErrEnrollmentMissing)
	assert.True(t, errkind.Is(err, errkind.NotFound))
}

func TestIssueCertificateDates(t *testing.T) {
	f := setup(t, config.DefaultPolicyConfig())
	ctx := context.Background()
	f.enroll(t, "user-1")

	issue := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	before := issue.AddDate(0, 0, -1)
	req := f.issueRequest("user-1")
	req.IssueDate = &issue
	req.ExpiryDate = &before

	_, err := f.svc.IssueCertificate(ctx, req, "admin-1")
	assert.ErrorIs(t, err, domain.ErrInvalidDates)
	assert.True(t, errkind.Is(err, errkind.InvalidInput))

	after := issue.AddDate(1, 0, 0)
	req.ExpiryDate = &after
	cert, err := f.svc.IssueCertificate(ctx, req, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, issue, cert.IssueDate)
	require.NotNil(t, cert.ExpiryDate)
	assert.Equal(t, after, *cert.ExpiryDate)
}

func TestIssueCertificateStrictPolicy(t *testing.T) {
	policy := config.DefaultPolicyConfig()
	policy.RequireCompletedForCertificate = true
	f := setup(t, policy)
	ctx := context.Background()
	f.enroll(t, "user-1")

	_, err := f.svc.IssueCertificate(ctx, f.issueRequest("user-1"), "admin-1")
	assert.ErrorIs(t, err, domain.ErrEnrollmentNotDone)
	assert.True(t, errkind.Is(err, errkind.Forbidden))

	for _, moduleID := range f.moduleIDs {
		_, err := f.enrollmentSvc.CompleteModule(ctx, "user-1", moduleID.String())
		require.NoError(t, err)
	}

	_, err = f.svc.IssueCertificate(ctx, f.issueRequest("user-1"), "admin-1")
	assert.NoError(t, err)
}

func TestRevokeCertificateIsTerminal(t *testing.T) {
	f := setup(t, config.DefaultPolicyConfig())
	ctx := context.Background()
	f.enroll(t, "user-1")

	cert, err := f.svc.IssueCertificate(ctx, f.issueRequest("user-1"), "admin-1")
	require.NoError(t, err)

	_, err = f.svc.RevokeCertificate(ctx, cert.ID.String(), domain.RevokeCertificateRequest{Reason: "  "}, "admin-1")
	assert.ErrorIs(t, err, domain.ErrReasonRequired)

	revoked, err := f.svc.RevokeCertificate(ctx, cert.ID.String(), domain.RevokeCertificateRequest{Reason: "plagiarism"}, "admin-1")
	require.NoError(t, err)
	assert.True(t, revoked.IsRevoked)
	require.NotNil(t, revoked.RevokedReason)
	assert.Equal(t, "plagiarism", *revoked.RevokedReason)
	require.NotNil(t, revoked.RevokedBy)
	assert.Equal(t, "admin-1", *revoked.RevokedBy)
	assert.NotNil(t, revoked.RevokedAt)

	_, err = f.svc.RevokeCertificate(ctx, cert.ID.String(), domain.RevokeCertificateRequest{Reason: "again"}, "admin-2")
	assert.ErrorIs(t, err, domain.ErrAlreadyRevoked)
	assert.True(t, errkind.Is(err, errkind.InvalidState))

	stored, err := f.svc.GetCertificate(ctx, cert.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.IsRevoked)
	assert.Equal(t, "plagiarism", *stored.RevokedReason)

	_, err = f.svc.RevokeCertificate(ctx, f.node.Generate().String(), domain.RevokeCertificateRequest{Reason: "x"}, "admin-1")
	assert.ErrorIs(t, err, domain.ErrCertificateMissing)
}

func TestVerifyCertificate(t *testing.T) {
	f := setup(t, config.DefaultPolicyConfig())
	ctx := context.Background()
	f.enroll(t, "user-1")

	expiry := f.clk.Now().AddDate(0, 0, 30)
	req := f.issueRequest("user-1")
	req.ExpiryDate = &expiry
	cert, err := f.svc.IssueCertificate(ctx, req, "admin-1")
	require.NoError(t, err)

	view, err := f.svc.VerifyCertificate(ctx, cert.CertificateNumber)
	require.NoError(t, err)
	assert.True(t, view.Valid)
	assert.False(t, view.Revoked)
	assert.False(t, view.Expired)

	f.clk.Advance(31 * 24 * time.Hour)
	view, err = f.svc.VerifyCertificate(ctx, cert.CertificateNumber)
	require.NoError(t, err)
	assert.False(t, view.Valid)
	assert.True(t, view.Expired)

	_, err = f.svc.RevokeCertificate(ctx, cert.ID.String(), domain.RevokeCertificateRequest{Reason: "fraud"}, "admin-1")
	require.NoError(t, err)
	view, err = f.svc.VerifyCertificate(ctx, cert.CertificateNumber)
	require.NoError(t, err)
	assert.True(t, view.Revoked)
	assert.False(t, view.Valid)

	_, err = f.svc.VerifyCertificate(ctx, "CERT-000000-X-AA")
	assert.ErrorIs(t, err, domain.ErrCertificateMissing)
}

func TestListCertificates(t *testing.T) {
	f := setup(t, config.DefaultPolicyConfig())
	ctx := context.Background()
	f.enroll(t, "user-1")

	_, err := f.svc.IssueCertificate(ctx, f.issueRequest("user-1"), "admin-1")
	require.NoError(t, err)

	resp, err := f.svc.ListCertificates(ctx, "user-1", pagination.Pagination{})
	require.NoError(t, err)
	assert.Len(t, resp.Certificates, 1)

	_, err = f.svc.ListCertificates(ctx, "", pagination.Pagination{})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestCertificateNumberFormat(t *testing.T) {
	node := testutil.NewNode(t)
	at := time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC)

	number, err := certificateNumber(node.Generate(), at)
	require.NoError(t, err)
	assert.Regexp(t, numberPattern, number)
	assert.Contains(t, number, "CERT-261231-")
}

func failEntropy(t *testing.T) {
	t.Helper()
	prev := entropy
	entropy = iotest.ErrReader(errors.New("entropy unavailable"))
	t.Cleanup(func() { entropy = prev })
}

func TestCertificateNumberSurfacesEntropyFailure(t *testing.T) {
	failEntropy(t)

	number, err := certificateNumber(testutil.NewNode(t).Generate(), time.Now())
	assert.Empty(t, number)
	assert.ErrorContains(t, err, "entropy unavailable")
}

func TestIssueCertificateFailsWithoutEntropy(t *testing.T) {
	f := setup(t, config.DefaultPolicyConfig())
	ctx := context.Background()
	f.enroll(t, "user-1")
	failEntropy(t)

	_, err := f.svc.IssueCertificate(ctx, f.issueRequest("user-1"), "admin-1")
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.UpstreamFailure))
	var rows int64
	require.NoError(t, f.db.Model(&domain.Certificate{}).Count(&rows).Error)
	assert.Zero(t, rows)

	enrollment, err := f.enrollmentSvc.FindByUserCertification(ctx, "user-1", f.certID)
	require.NoError(t, err)
	assert.False(t, enrollment.CertificateIssued)
}
