package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, app *Application) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Application, error)
	Decide(ctx context.Context, db *gorm.DB, id snowflake.ID, status ApplicationStatus, actorID string, at time.Time) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Application, error)
	ExistsWithStatus(ctx context.Context, db *gorm.DB, userID string, certificationID snowflake.ID, status ApplicationStatus) (bool, error)
}

type SubmitApplicationRequest struct {
	CertificationID string         `json:"certification_id" validate:"required"`
	Details         map[string]any `json:"details"`
}

type DecideApplicationRequest struct {
	Decision Decision `json:"decision" validate:"required,oneof=approve reject"`
}

type ListApplicationsRequest struct {
	pagination.Pagination
	UserID          string `form:"user_id"`
	CertificationID string `form:"certification_id"`
	Status          string `form:"status"`
}

type ListApplicationsResponse struct {
	pagination.PageInfo
	Applications []Application `json:"applications"`
}

type Service interface {
	SubmitApplication(ctx context.Context, userID string, req SubmitApplicationRequest) (*Application, error)
	DecideApplication(ctx context.Context, applicationID string, req DecideApplicationRequest, actorID string) (*Application, error)
	GetApplication(ctx context.Context, id string) (*Application, error)
	ListApplications(ctx context.Context, req ListApplicationsRequest) (ListApplicationsResponse, error)
	HasApproved(ctx context.Context, userID string, certificationID snowflake.ID) (bool, error)
}
