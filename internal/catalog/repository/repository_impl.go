package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCertification(ctx context.Context, db *gorm.DB, cert *domain.Certification) error {
	return db.WithContext(ctx).Create(cert).Error
}

func (r *repo) UpdateCertification(ctx context.Context, db *gorm.DB, cert *domain.Certification) error {
	return db.WithContext(ctx).
		Model(&domain.Certification{}).
		Where("id = ?", cert.ID).
		Updates(map[string]any{
			"title":          cert.Title,
			"description":    cert.Description,
			"level":          cert.Level,
			"duration_label": cert.DurationLabel,
			"price":          cert.Price,
			"updated_at":     cert.UpdatedAt,
		}).Error
}

// PublishCertification flips draft to published and reports whether a row changed.
func (r *repo) PublishCertification(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE certifications SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.StatusPublished, now, id, domain.StatusDraft,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindCertification(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Certification, error) {
	var cert domain.Certification
	res := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&cert)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &cert, nil
}

func (r *repo) ListCertifications(ctx context.Context, db *gorm.DB, status domain.CertificationStatus) ([]domain.Certification, error) {
	var certs []domain.Certification
	stmt := db.WithContext(ctx).Model(&domain.Certification{})
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if err := stmt.Order("title asc, id asc").Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *repo) CountEnrollments(ctx context.Context, db *gorm.DB, certificationID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM enrollments WHERE certification_id = ?`,
		certificationID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) InsertModule(ctx context.Context, db *gorm.DB, module *domain.Module) error {
	return db.WithContext(ctx).Create(module).Error
}

func (r *repo) MaxSequence(ctx context.Context, db *gorm.DB, certificationID snowflake.ID) (int, error) {
	var max int
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(sequence), 0) FROM modules WHERE certification_id = ?`,
		certificationID,
	).Scan(&max).Error
	return max, err
}

func (r *repo) ListModules(ctx context.Context, db *gorm.DB, certificationID snowflake.ID) ([]domain.Module, error) {
	var modules []domain.Module
	err := db.WithContext(ctx).
		Where("certification_id = ?", certificationID).
		Order("sequence asc").
		Find(&modules).Error
	if err != nil {
		return nil, err
	}
	return modules, nil
}

func (r *repo) FindModule(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Module, error) {
	var module domain.Module
	res := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&module)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &module, nil
}
