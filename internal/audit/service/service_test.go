package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	"github.com/smallbiznis/certihub/internal/audit/repository"
	"github.com/smallbiznis/certihub/internal/clock"
	obscontext "github.com/smallbiznis/certihub/internal/observability/context"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var dbCounter int64

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:audit_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		metadata TEXT,
		request_id TEXT,
		created_at DATETIME NOT NULL
	)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, db
}

func TestRecordUsesContextActorAndMasksMetadata(t *testing.T) {
	svc, db := setupService(t)
	ctx := obscontext.WithActor(context.Background(), obscontext.Actor{ID: "admin-1", Role: "admin"})
	ctx = obscontext.WithRequestID(ctx, "req-9")

	err := svc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionPaymentReconciled,
		TargetType: auditdomain.TargetTransaction,
		TargetID:   "inv-1",
		Metadata:   map[string]any{"payer_email": "dana@example.com", "state": "complete"},
	})
	require.NoError(t, err)

	var stored auditdomain.AuditLog
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, "admin-1", stored.ActorID)
	assert.Equal(t, "d****@example.com", stored.Metadata["payer_email"])
	assert.Equal(t, "complete", stored.Metadata["state"])
	if assert.NotNil(t, stored.RequestID) {
		assert.Equal(t, "req-9", *stored.RequestID)
	}
}

func TestRecordDefaultsToSystemActor(t *testing.T) {
	svc, db := setupService(t)

	require.NoError(t, svc.Record(context.Background(), auditdomain.Entry{
		Action:     auditdomain.ActionEnrollmentCreated,
		TargetType: auditdomain.TargetEnrollment,
		TargetID:   "1",
	}))

	var stored auditdomain.AuditLog
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, auditdomain.ActorSystem, stored.ActorID)
}

func TestRecordValidatesInput(t *testing.T) {
	svc, _ := setupService(t)

	err := svc.Record(context.Background(), auditdomain.Entry{TargetType: "x", TargetID: "1"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	err = svc.Record(context.Background(), auditdomain.Entry{Action: "a"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTarget)
}

func TestListPaginates(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, auditdomain.Entry{
			ActorID:    "u1",
			Action:     auditdomain.ActionCertificateIssued,
			TargetType: auditdomain.TargetCertificate,
			TargetID:   fmt.Sprint(i),
		}))
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		ActorID:    "u1",
	})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
		ActorID:    "u1",
	})
	require.NoError(t, err)
	assert.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "0", second.AuditLogs[0].TargetID)
}
