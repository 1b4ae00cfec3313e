package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/admission/domain"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, app *domain.Application) error {
	return db.WithContext(ctx).Create(app).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Application, error) {
	var app domain.Application
	res := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&app)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &app, nil
}

// Decide moves a pending application to a terminal status. It reports false
// when the application is missing or was decided concurrently.
func (r *repo) Decide(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.ApplicationStatus, actorID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE applications
		SET status = ?, decided_by = ?, decided_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		status, actorID, at, at, id, domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Application, error) {
	var apps []*domain.Application
	stmt := db.WithContext(ctx).Model(&domain.Application{})
	if filter.UserID != "" {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.CertificationID != 0 {
		stmt = stmt.Where("certification_id = ?", filter.CertificationID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if err := stmt.Scopes(pagination.Scope(page)).Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *repo) ExistsWithStatus(ctx context.Context, db *gorm.DB, userID string, certificationID snowflake.ID, status domain.ApplicationStatus) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("user_id = ? AND certification_id = ? AND status = ?", userID, certificationID, status).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
