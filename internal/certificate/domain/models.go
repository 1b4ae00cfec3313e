package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Certificate struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	CertificateNumber string       `gorm:"column:certificate_number;not null" json:"certificate_number"`
	EnrollmentID      snowflake.ID `gorm:"column:enrollment_id;not null" json:"enrollment_id"`
	UserID            string       `gorm:"column:user_id;not null" json:"user_id"`
	CertificationID   snowflake.ID `gorm:"column:certification_id;not null" json:"certification_id"`
	IssueDate         time.Time    `gorm:"column:issue_date;not null" json:"issue_date"`
	ExpiryDate        *time.Time   `gorm:"column:expiry_date" json:"expiry_date,omitempty"`
	IsRevoked         bool         `gorm:"column:is_revoked;not null" json:"is_revoked"`
	RevokedReason     *string      `gorm:"column:revoked_reason" json:"revoked_reason,omitempty"`
	RevokedBy         *string      `gorm:"column:revoked_by" json:"revoked_by,omitempty"`
	RevokedAt         *time.Time   `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	DocumentURL       *string      `gorm:"column:document_url" json:"document_url,omitempty"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
}

func (Certificate) TableName() string { return "certificates" }

// Expired reports whether the certificate has passed its expiry date at now.
func (c Certificate) Expired(now time.Time) bool {
	return c.ExpiryDate != nil && !now.Before(*c.ExpiryDate)
}

// Verification is the public view of a certificate number lookup.
type Verification struct {
	CertificateNumber string       `json:"certificate_number"`
	CertificationID   snowflake.ID `json:"certification_id"`
	IssueDate         time.Time    `json:"issue_date"`
	ExpiryDate        *time.Time   `json:"expiry_date,omitempty"`
	Valid             bool         `json:"valid"`
	Revoked           bool         `json:"revoked"`
	Expired           bool         `json:"expired"`
	RevokedAt         *time.Time   `json:"revoked_at,omitempty"`
}
