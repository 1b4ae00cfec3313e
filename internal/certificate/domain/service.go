package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, cert *Certificate) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Certificate, error)
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Certificate, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string, page pagination.Pagination) ([]*Certificate, error)
	// Revoke flips is_revoked only when it is still false.
	Revoke(ctx context.Context, db *gorm.DB, id snowflake.ID, reason, actorID string, at time.Time) (bool, error)
}

type IssueCertificateRequest struct {
	UserID          string     `json:"user_id" validate:"required"`
	CertificationID string     `json:"certification_id" validate:"required"`
	IssueDate       *time.Time `json:"issue_date,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	DocumentURL     *string    `json:"document_url,omitempty" validate:"omitempty,url"`
}

type RevokeCertificateRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type ListCertificatesResponse struct {
	pagination.PageInfo
	Certificates []Certificate `json:"certificates"`
}

type Service interface {
	IssueCertificate(ctx context.Context, req IssueCertificateRequest, actorID string) (*Certificate, error)
	RevokeCertificate(ctx context.Context, id string, req RevokeCertificateRequest, actorID string) (*Certificate, error)
	GetCertificate(ctx context.Context, id string) (*Certificate, error)
	VerifyCertificate(ctx context.Context, number string) (*Verification, error)
	ListCertificates(ctx context.Context, userID string, page pagination.Pagination) (ListCertificatesResponse, error)
}
