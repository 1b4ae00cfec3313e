package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	"github.com/smallbiznis/certihub/internal/audit/masking"
	"github.com/smallbiznis/certihub/internal/clock"
	obscontext "github.com/smallbiznis/certihub/internal/observability/context"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(entry.TargetType)
	targetID := strings.TrimSpace(entry.TargetID)
	if targetType == "" || targetID == "" {
		return auditdomain.ErrInvalidTarget
	}

	actorID := strings.TrimSpace(entry.ActorID)
	if actorID == "" {
		if actor, ok := obscontext.ActorFromContext(ctx); ok && actor.ID != "" {
			actorID = actor.ID
		} else {
			actorID = auditdomain.ActorSystem
		}
	}

	log := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   datatypes.JSONMap(masking.MaskMetadata(entry.Metadata)),
		CreatedAt:  s.clock.Now(),
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		log.RequestID = &requestID
	}

	if err := s.repo.Insert(ctx, s.db, &log); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return errkind.Upstream(err, "insert audit log")
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		ActorID:    req.ActorID,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
	}, req.Pagination)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, errkind.Upstream(err, "list audit logs")
	}

	items, pageInfo := pagination.Trim(items, req.Pagination, func(item *auditdomain.AuditLog) string {
		return item.ID.String()
	})

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}
	return auditdomain.ListAuditLogResponse{PageInfo: pageInfo, AuditLogs: logs}, nil
}
