package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, enrollment *Enrollment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Enrollment, error)
	FindActiveByUser(ctx context.Context, db *gorm.DB, userID string) (*Enrollment, error)
	FindByUserCertification(ctx context.Context, db *gorm.DB, userID string, certificationID snowflake.ID) (*Enrollment, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string, page pagination.Pagination) ([]*Enrollment, error)
	ListNeedingModules(ctx context.Context, db *gorm.DB, limit int) ([]Enrollment, error)

	UpdateProgress(ctx context.Context, db *gorm.DB, id snowflake.ID, progress int, at time.Time) error
	Complete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	Drop(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	MarkProvisioned(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	MarkPaymentFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	MarkCertificateIssued(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error

	InsertModuleProgress(ctx context.Context, db *gorm.DB, rows []ModuleProgress) (int64, error)
	ListModuleProgress(ctx context.Context, db *gorm.DB, enrollmentID snowflake.ID) ([]ModuleProgress, error)
	FindProgressByUserModule(ctx context.Context, db *gorm.DB, userID string, moduleID snowflake.ID) (*ModuleProgress, error)
	CompleteModuleProgress(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	CountProgress(ctx context.Context, db *gorm.DB, enrollmentID, certificationID snowflake.ID) (total int64, completed int64, err error)
}

type CreateEnrollmentRequest struct {
	CertificationID string `json:"certification_id" validate:"required"`
}

type ListEnrollmentsResponse struct {
	pagination.PageInfo
	Enrollments []Enrollment `json:"enrollments"`
}

type Service interface {
	CreateEnrollment(ctx context.Context, userID string, req CreateEnrollmentRequest) (*CreateResult, error)
	// ProvisionFromPayment enrolls without an approved application because a
	// completed payment authorizes it.
	ProvisionFromPayment(ctx context.Context, userID string, certificationID snowflake.ID) (*CreateResult, error)
	GetEnrollment(ctx context.Context, id string) (*Enrollment, error)
	ListEnrollments(ctx context.Context, userID string, page pagination.Pagination) (ListEnrollmentsResponse, error)
	ListModuleProgress(ctx context.Context, enrollmentID string) ([]ModuleProgress, error)
	CompleteModule(ctx context.Context, userID string, moduleID string) (*Enrollment, error)
	DropEnrollment(ctx context.Context, enrollmentID string, actorID string) (*Enrollment, error)
	BackfillModules(ctx context.Context, batch int) (BackfillResult, error)

	FindByUserCertification(ctx context.Context, userID string, certificationID snowflake.ID) (*Enrollment, error)
	MarkPaid(ctx context.Context, enrollmentID snowflake.ID) error
	// MarkPaymentFailed only moves a pending payment status; a paid
	// enrollment stays paid.
	MarkPaymentFailed(ctx context.Context, enrollmentID snowflake.ID) error
	// MarkCertificateIssued runs on tx when given so it commits together with
	// the certificate row.
	MarkCertificateIssued(ctx context.Context, tx *gorm.DB, enrollmentID snowflake.ID) error
}
