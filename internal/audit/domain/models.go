package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ActionApplicationSubmitted = "application.submitted"
	ActionApplicationApproved  = "application.approved"
	ActionApplicationRejected  = "application.rejected"
	ActionEnrollmentCreated    = "enrollment.created"
	ActionEnrollmentCompleted  = "enrollment.completed"
	ActionEnrollmentDropped    = "enrollment.dropped"
	ActionPaymentReconciled    = "payment.reconciled"
	ActionPaymentRefunded      = "payment.refunded"
	ActionCertificateIssued    = "certificate.issued"
	ActionCertificateRevoked   = "certificate.revoked"
	ActionCertificationChanged = "certification.changed"
)

const (
	TargetApplication   = "application"
	TargetEnrollment    = "enrollment"
	TargetTransaction   = "transaction"
	TargetCertificate   = "certificate"
	TargetCertification = "certification"
)

// ActorSystem marks entries written by webhooks or the scheduler.
const ActorSystem = "system"

type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID    string            `gorm:"column:actor_id;not null" json:"actor_id"`
	Action     string            `gorm:"not null" json:"action"`
	TargetType string            `gorm:"column:target_type;not null" json:"target_type"`
	TargetID   string            `gorm:"column:target_id;not null" json:"target_id"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	RequestID  *string           `gorm:"column:request_id" json:"request_id,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
}
