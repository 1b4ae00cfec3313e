package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCertification(ctx context.Context, db *gorm.DB, cert *Certification) error
	UpdateCertification(ctx context.Context, db *gorm.DB, cert *Certification) error
	PublishCertification(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	FindCertification(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Certification, error)
	ListCertifications(ctx context.Context, db *gorm.DB, status CertificationStatus) ([]Certification, error)
	CountEnrollments(ctx context.Context, db *gorm.DB, certificationID snowflake.ID) (int64, error)
	InsertModule(ctx context.Context, db *gorm.DB, module *Module) error
	MaxSequence(ctx context.Context, db *gorm.DB, certificationID snowflake.ID) (int, error)
	ListModules(ctx context.Context, db *gorm.DB, certificationID snowflake.ID) ([]Module, error)
	FindModule(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Module, error)
}

type CreateCertificationRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description"`
	Price         string `json:"price" validate:"required"`
	Level         string `json:"level"`
	DurationLabel string `json:"duration_label"`
}

// UpdateCertificationRequest only carries fields that stay editable after
// learners enrolled, plus Price which is rejected in that case.
type UpdateCertificationRequest struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	Level         *string `json:"level,omitempty"`
	DurationLabel *string `json:"duration_label,omitempty"`
	Price         *string `json:"price,omitempty"`
}

type AddModuleRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Sequence *int   `json:"sequence,omitempty"`
}

type Service interface {
	CreateCertification(ctx context.Context, req CreateCertificationRequest) (*Certification, error)
	UpdateCertification(ctx context.Context, id string, req UpdateCertificationRequest) (*Certification, error)
	PublishCertification(ctx context.Context, id string) (*Certification, error)
	GetCertification(ctx context.Context, id snowflake.ID) (*Certification, error)
	GetPublishedCertification(ctx context.Context, id snowflake.ID) (*Certification, error)
	ListCertifications(ctx context.Context, status string) ([]Certification, error)
	AddModule(ctx context.Context, certificationID string, req AddModuleRequest) (*Module, error)
	ListModules(ctx context.Context, certificationID snowflake.ID) ([]Module, error)
	GetModule(ctx context.Context, id snowflake.ID) (*Module, error)
}
