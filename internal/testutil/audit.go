package testutil

import (
	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	auditrepository "github.com/smallbiznis/certihub/internal/audit/repository"
	auditservice "github.com/smallbiznis/certihub/internal/audit/service"
	"github.com/smallbiznis/certihub/internal/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewAudit returns an audit service writing into db.
func NewAudit(db *gorm.DB, node *snowflake.Node, clk clock.Clock) auditdomain.Service {
	return auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  auditrepository.Provide(),
	})
}

// CountAudit counts audit rows for an action.
func CountAudit(db *gorm.DB, action string) int64 {
	var count int64
	db.Model(&auditdomain.AuditLog{}).Where("action = ?", action).Count(&count)
	return count
}
