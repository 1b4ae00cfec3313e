package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/certificate/domain"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, cert *domain.Certificate) error {
	return db.WithContext(ctx).Create(cert).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Certificate, error) {
	return r.findOne(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Certificate, error) {
	return r.findOne(db.WithContext(ctx).Where("certificate_number = ?", number))
}

func (r *repo) findOne(stmt *gorm.DB) (*domain.Certificate, error) {
	var cert domain.Certificate
	res := stmt.Limit(1).Find(&cert)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &cert, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string, page pagination.Pagination) ([]*domain.Certificate, error) {
	var items []*domain.Certificate
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Scopes(pagination.Scope(page)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Revoke(ctx context.Context, db *gorm.DB, id snowflake.ID, reason, actorID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE certificates
		 SET is_revoked = ?, revoked_reason = ?, revoked_by = ?, revoked_at = ?
		 WHERE id = ? AND is_revoked = ?`,
		true, reason, actorID, at, id, false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
