package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/admission/domain"
	"github.com/smallbiznis/certihub/internal/admission/repository"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	"github.com/smallbiznis/certihub/internal/cache"
	catalogdomain "github.com/smallbiznis/certihub/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/certihub/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/certihub/internal/catalog/service"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/testutil"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc    *Service
	db     *gorm.DB
	node   *snowflake.Node
	certID snowflake.ID
}

func setup(t *testing.T) fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	auditSvc := testutil.NewAudit(db, node, clk)

	catalogSvc := catalogservice.NewService(catalogservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     catalogrepository.Provide(),
		Cache:    cache.NewCatalogCache(),
		AuditSvc: auditSvc,
	})

	svc := NewService(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Repo:       repository.Provide(),
		CatalogSvc: catalogSvc,
		AuditSvc:   auditSvc,
	}).(*Service)

	certID, _ := testutil.SeedCertification(t, db, node, "go", "200", 3)
	return fixture{svc: svc, db: db, node: node, certID: certID}
}

func TestSubmitApplication(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	app, err := f.svc.SubmitApplication(ctx, "user-1", domain.SubmitApplicationRequest{
		CertificationID: f.certID.String(),
		Details:         map[string]any{"motivation": "career"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, app.Status)
	assert.Equal(t, "career", app.Details["motivation"])

	_, err = f.svc.SubmitApplication(ctx, "user-1", domain.SubmitApplicationRequest{CertificationID: f.certID.String()})
	assert.ErrorIs(t, err, domain.ErrPendingExists)
	assert.True(t, errkind.Is(err, errkind.Conflict))

	assert.Equal(t, int64(1), testutil.CountAudit(f.db, auditdomain.ActionApplicationSubmitted))
}

func TestSubmitApplicationRequiresPublishedCertification(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.SubmitApplication(ctx, "user-1", domain.SubmitApplicationRequest{CertificationID: "999"})
	assert.ErrorIs(t, err, catalogdomain.ErrCertificationMissing)

	require.NoError(t, f.db.Exec(`UPDATE certifications SET status = 'draft' WHERE id = ?`, f.certID).Error)
	_, err = f.svc.SubmitApplication(ctx, "user-2", domain.SubmitApplicationRequest{CertificationID: f.certID.String()})
	assert.True(t, errkind.Is(err, errkind.NotFound))

	_, err = f.svc.SubmitApplication(ctx, "", domain.SubmitApplicationRequest{CertificationID: f.certID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestDecideApplicationOnlyFromPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	app, err := f.svc.SubmitApplication(ctx, "user-1", domain.SubmitApplicationRequest{CertificationID: f.certID.String()})
	require.NoError(t, err)

	approved, err := f.svc.DecideApplication(ctx, app.ID.String(), domain.DecideApplicationRequest{Decision: domain.DecisionApprove}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	require.NotNil(t, approved.DecidedBy)
	assert.Equal(t, "admin-1", *approved.DecidedBy)
	assert.NotNil(t, approved.DecidedAt)

	_, err = f.svc.DecideApplication(ctx, app.ID.String(), domain.DecideApplicationRequest{Decision: domain.DecisionReject}, "admin-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
	assert.True(t, errkind.Is(err, errkind.InvalidState))

	ok, err := f.svc.HasApproved(ctx, "user-1", f.certID)
	require.NoError(t, err)
	assert.True(t, ok)

	var enrollments int64
	require.NoError(t, f.db.Table("enrollments").Count(&enrollments).Error)
	assert.Zero(t, enrollments)
}

func TestDecideApplicationErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.DecideApplication(ctx, "12345", domain.DecideApplicationRequest{Decision: domain.DecisionApprove}, "admin")
	assert.ErrorIs(t, err, domain.ErrApplicationMissing)

	_, err = f.svc.DecideApplication(ctx, "12345", domain.DecideApplicationRequest{Decision: "maybe"}, "admin")
	assert.ErrorIs(t, err, domain.ErrInvalidDecision)
}

func TestReapplicationAfterRejection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.SubmitApplication(ctx, "user-1", domain.SubmitApplicationRequest{CertificationID: f.certID.String()})
	require.NoError(t, err)
	_, err = f.svc.DecideApplication(ctx, first.ID.String(), domain.DecideApplicationRequest{Decision: domain.DecisionReject}, "admin")
	require.NoError(t, err)

	second, err := f.svc.SubmitApplication(ctx, "user-1", domain.SubmitApplicationRequest{CertificationID: f.certID.String()})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	ok, err := f.svc.HasApproved(ctx, "user-1", f.certID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListApplications(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	testutil.SeedApplication(t, f.db, f.node, "user-1", f.certID, "approved")
	testutil.SeedApplication(t, f.db, f.node, "user-1", f.certID, "rejected")
	testutil.SeedApplication(t, f.db, f.node, "user-2", f.certID, "pending")

	resp, err := f.svc.ListApplications(ctx, domain.ListApplicationsRequest{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, resp.Applications, 2)

	resp, err = f.svc.ListApplications(ctx, domain.ListApplicationsRequest{Status: "pending", Pagination: pagination.Pagination{PageSize: 1}})
	require.NoError(t, err)
	require.Len(t, resp.Applications, 1)
	assert.Equal(t, "user-2", resp.Applications[0].UserID)
	assert.False(t, resp.HasMore)

	_, err = f.svc.ListApplications(ctx, domain.ListApplicationsRequest{Status: "unknown"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
