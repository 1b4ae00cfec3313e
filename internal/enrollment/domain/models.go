package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type EnrollmentStatus string

const (
	StatusActive    EnrollmentStatus = "active"
	StatusCompleted EnrollmentStatus = "completed"
	StatusDropped   EnrollmentStatus = "dropped"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// AuthorizationMode records what allowed an enrollment to be created.
type AuthorizationMode string

const (
	ModeApprovedApplication AuthorizationMode = "approved_application"
	ModeCompletedPayment    AuthorizationMode = "completed_payment"
)

type Enrollment struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID             string            `gorm:"column:user_id;not null" json:"user_id"`
	CertificationID    snowflake.ID      `gorm:"column:certification_id;not null" json:"certification_id"`
	Status             EnrollmentStatus  `gorm:"type:text;not null" json:"status"`
	PaymentStatus      PaymentStatus     `gorm:"column:payment_status;type:text;not null" json:"payment_status"`
	Progress           int               `gorm:"not null" json:"progress"`
	StartedAt          time.Time         `gorm:"column:started_at;not null" json:"started_at"`
	DueAt              time.Time         `gorm:"column:due_at;not null" json:"due_at"`
	CompletedAt        *time.Time        `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CertificateIssued  bool              `gorm:"column:certificate_issued;not null" json:"certificate_issued"`
	AuthorizationMode  AuthorizationMode `gorm:"column:authorization_mode;type:text;not null" json:"authorization_mode"`
	ModulesProvisioned bool              `gorm:"column:modules_provisioned;not null" json:"modules_provisioned"`
	CreatedAt          time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollments" }

func (e Enrollment) IsActive() bool { return e.Status == StatusActive }

type ModuleProgress struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID       string       `gorm:"column:user_id;not null" json:"user_id"`
	ModuleID     snowflake.ID `gorm:"column:module_id;not null" json:"module_id"`
	EnrollmentID snowflake.ID `gorm:"column:enrollment_id;not null" json:"enrollment_id"`
	IsCompleted  bool         `gorm:"column:is_completed;not null" json:"is_completed"`
	CompletedAt  *time.Time   `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (ModuleProgress) TableName() string { return "module_progress" }

// CreateResult carries a committed enrollment and any non-fatal problems
// raised while provisioning its module progress rows.
type CreateResult struct {
	Enrollment Enrollment `json:"enrollment"`
	Warnings   []string   `json:"warnings,omitempty"`
}

type BackfillResult struct {
	Scanned  int   `json:"scanned"`
	Repaired int   `json:"repaired"`
	Inserted int64 `json:"inserted"`
	Failed   int   `json:"failed"`
}

// ProgressPercent is floor(100 * completed / total); an empty course is 0.
func ProgressPercent(completed, total int64) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return int(completed * 100 / total)
}
