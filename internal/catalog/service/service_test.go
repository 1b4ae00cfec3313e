package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/certihub/internal/cache"
	"github.com/smallbiznis/certihub/internal/catalog/domain"
	"github.com/smallbiznis/certihub/internal/catalog/repository"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/testutil"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Cache:    cache.NewCatalogCache(),
		AuditSvc: testutil.NewAudit(db, node, clk),
	}).(*Service)
	return svc, db
}

func TestCreateCertificationDerivesSlug(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	cert, err := svc.CreateCertification(ctx, domain.CreateCertificationRequest{
		Title: "Cloud Native Go",
		Price: "200",
	})
	require.NoError(t, err)
	assert.Equal(t, "cloud-native-go", cert.Slug)
	assert.Equal(t, domain.StatusDraft, cert.Status)
	assert.True(t, decimal.NewFromInt(200).Equal(cert.Price))

	_, err = svc.CreateCertification(ctx, domain.CreateCertificationRequest{Title: "Cloud  Native GO", Price: "10"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
	assert.True(t, errkind.Is(err, errkind.Conflict))
}

func TestCreateCertificationRejectsBadPrice(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.CreateCertification(context.Background(), domain.CreateCertificationRequest{Title: "X", Price: "-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = svc.CreateCertification(context.Background(), domain.CreateCertificationRequest{Title: "X"})
	assert.True(t, errkind.Is(err, errkind.InvalidInput))
}

func TestPublishAndModules(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	cert, err := svc.CreateCertification(ctx, domain.CreateCertificationRequest{Title: "Kubernetes", Price: "150.50"})
	require.NoError(t, err)

	_, err = svc.GetPublishedCertification(ctx, cert.ID)
	assert.ErrorIs(t, err, domain.ErrNotPublished)

	published, err := svc.PublishCertification(ctx, cert.ID.String())
	require.NoError(t, err)
	assert.True(t, published.IsPublished())

	_, err = svc.PublishCertification(ctx, cert.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyPublished)

	m1, err := svc.AddModule(ctx, cert.ID.String(), domain.AddModuleRequest{Title: "Pods"})
	require.NoError(t, err)
	assert.Equal(t, 1, m1.Sequence)

	seq := 5
	_, err = svc.AddModule(ctx, cert.ID.String(), domain.AddModuleRequest{Title: "Operators", Sequence: &seq})
	require.NoError(t, err)

	m3, err := svc.AddModule(ctx, cert.ID.String(), domain.AddModuleRequest{Title: "Services"})
	require.NoError(t, err)
	assert.Equal(t, 6, m3.Sequence)

	_, err = svc.AddModule(ctx, cert.ID.String(), domain.AddModuleRequest{Title: "Dup", Sequence: &seq})
	assert.ErrorIs(t, err, domain.ErrSequenceTaken)

	modules, err := svc.ListModules(ctx, cert.ID)
	require.NoError(t, err)
	require.Len(t, modules, 3)
	assert.Equal(t, []int{1, 5, 6}, []int{modules[0].Sequence, modules[1].Sequence, modules[2].Sequence})
}

func TestPriceLockedAfterEnrollment(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	cert, err := svc.CreateCertification(ctx, domain.CreateCertificationRequest{Title: "Postgres", Price: "100"})
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, db.Exec(`INSERT INTO enrollments
		(id, user_id, certification_id, status, payment_status, progress, started_at, due_at, certificate_issued, authorization_mode, modules_provisioned, created_at, updated_at)
		VALUES (1, 'u1', ?, 'active', 'pending', 0, ?, ?, false, 'approved_application', true, ?, ?)`,
		cert.ID, now, now, now, now).Error)

	newPrice := "120"
	_, err = svc.UpdateCertification(ctx, cert.ID.String(), domain.UpdateCertificationRequest{Price: &newPrice})
	assert.ErrorIs(t, err, domain.ErrLockedByEnrollment)
	assert.True(t, errkind.Is(err, errkind.InvalidState))

	title := "PostgreSQL Internals"
	updated, err := svc.UpdateCertification(ctx, cert.ID.String(), domain.UpdateCertificationRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "postgres", updated.Slug)

	_, err = svc.PublishCertification(ctx, cert.ID.String())
	assert.ErrorIs(t, err, domain.ErrLockedByEnrollment)
}

func TestGetCertificationUsesCache(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	cert, err := svc.CreateCertification(ctx, domain.CreateCertificationRequest{Title: "Redis", Price: "50"})
	require.NoError(t, err)

	_, err = svc.GetCertification(ctx, cert.ID)
	require.NoError(t, err)

	require.NoError(t, db.Exec(`UPDATE certifications SET title = 'changed' WHERE id = ?`, cert.ID).Error)

	cached, err := svc.GetCertification(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, "Redis", cached.Title)

	_, err = svc.GetCertification(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrCertificationMissing)
	assert.True(t, errkind.Is(err, errkind.NotFound))
}

func TestUpdateRejectsInvalidID(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.UpdateCertification(context.Background(), "abc", domain.UpdateCertificationRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
