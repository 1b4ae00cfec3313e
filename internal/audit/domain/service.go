package domain

import (
	"context"

	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*AuditLog, error)
}

// Entry is one audited action. An empty ActorID is recorded as the system actor.
type Entry struct {
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListAuditLogRequest struct {
	pagination.Pagination
	ActorID    string `form:"actor_id"`
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidAction = errkind.New(errkind.InvalidInput, "invalid_action", "audit action is required")
	ErrInvalidTarget = errkind.New(errkind.InvalidInput, "invalid_target", "audit target is required")
)
