package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusApproved ApplicationStatus = "approved"
	StatusRejected ApplicationStatus = "rejected"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Status returns the terminal status a decision moves an application to.
func (d Decision) Status() (ApplicationStatus, bool) {
	switch d {
	case DecisionApprove:
		return StatusApproved, true
	case DecisionReject:
		return StatusRejected, true
	default:
		return "", false
	}
}

type Application struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID          string            `gorm:"column:user_id;not null" json:"user_id"`
	CertificationID snowflake.ID      `gorm:"column:certification_id;not null" json:"certification_id"`
	Details         datatypes.JSONMap `gorm:"type:jsonb" json:"details"`
	Status          ApplicationStatus `gorm:"type:text;not null" json:"status"`
	DecidedBy       *string           `gorm:"column:decided_by" json:"decided_by,omitempty"`
	DecidedAt       *time.Time        `gorm:"column:decided_at" json:"decided_at,omitempty"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`
}

func (Application) TableName() string { return "applications" }

type ListFilter struct {
	UserID          string
	CertificationID snowflake.ID
	Status          ApplicationStatus
}
