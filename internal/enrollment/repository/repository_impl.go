package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/enrollment/domain"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, enrollment *domain.Enrollment) error {
	return db.WithContext(ctx).Create(enrollment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Enrollment, error) {
	return r.findOne(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindActiveByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.Enrollment, error) {
	return r.findOne(db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, domain.StatusActive))
}

func (r *repo) FindByUserCertification(ctx context.Context, db *gorm.DB, userID string, certificationID snowflake.ID) (*domain.Enrollment, error) {
	return r.findOne(db.WithContext(ctx).Where("user_id = ? AND certification_id = ?", userID, certificationID))
}

func (r *repo) findOne(stmt *gorm.DB) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	res := stmt.Limit(1).Find(&enrollment)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &enrollment, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string, page pagination.Pagination) ([]*domain.Enrollment, error) {
	var enrollments []*domain.Enrollment
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Scopes(pagination.Scope(page)).
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

// ListNeedingModules returns non-dropped enrollments that are flagged as not
// provisioned or have fewer progress rows than their certification has modules.
func (r *repo) ListNeedingModules(ctx context.Context, db *gorm.DB, limit int) ([]domain.Enrollment, error) {
	var enrollments []domain.Enrollment
	err := db.WithContext(ctx).Raw(
		`SELECT e.* FROM enrollments e
		WHERE e.status <> ?
		AND (
			e.modules_provisioned = ?
			OR (SELECT COUNT(1) FROM module_progress mp WHERE mp.enrollment_id = e.id)
				< (SELECT COUNT(1) FROM modules m WHERE m.certification_id = e.certification_id)
		)
		ORDER BY e.id ASC
		LIMIT ?`,
		domain.StatusDropped, false, limit,
	).Scan(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *repo) UpdateProgress(ctx context.Context, db *gorm.DB, id snowflake.ID, progress int, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE enrollments SET progress = ?, updated_at = ? WHERE id = ?`,
		progress, at, id,
	).Error
}

// Complete transitions an active enrollment to completed, freeing the
// user's active slot.
func (r *repo) Complete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE enrollments SET status = ?, progress = 100, completed_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.StatusCompleted, at, at, id, domain.StatusActive,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Drop(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE enrollments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.StatusDropped, at, id, domain.StatusActive,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkProvisioned(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE enrollments SET modules_provisioned = ?, updated_at = ? WHERE id = ?`,
		true, at, id,
	).Error
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE enrollments SET payment_status = ?, updated_at = ? WHERE id = ? AND payment_status <> ?`,
		domain.PaymentPaid, at, id, domain.PaymentPaid,
	).Error
}

func (r *repo) MarkPaymentFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE enrollments SET payment_status = ?, updated_at = ? WHERE id = ? AND payment_status = ?`,
		domain.PaymentFailed, at, id, domain.PaymentPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkCertificateIssued(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE enrollments SET certificate_issued = ?, updated_at = ? WHERE id = ?`,
		true, at, id,
	).Error
}

// InsertModuleProgress inserts rows, skipping (user_id, module_id) pairs
// that already exist, and returns how many rows were created.
func (r *repo) InsertModuleProgress(ctx context.Context, db *gorm.DB, rows []domain.ModuleProgress) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ListModuleProgress(ctx context.Context, db *gorm.DB, enrollmentID snowflake.ID) ([]domain.ModuleProgress, error) {
	var rows []domain.ModuleProgress
	err := db.WithContext(ctx).Raw(
		`SELECT mp.* FROM module_progress mp
		JOIN modules m ON m.id = mp.module_id
		WHERE mp.enrollment_id = ?
		ORDER BY m.sequence ASC`,
		enrollmentID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FindProgressByUserModule(ctx context.Context, db *gorm.DB, userID string, moduleID snowflake.ID) (*domain.ModuleProgress, error) {
	var row domain.ModuleProgress
	res := db.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) CompleteModuleProgress(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE module_progress SET is_completed = ?, completed_at = ? WHERE id = ? AND is_completed = ?`,
		true, at, id, false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountProgress counts the certification's modules and the enrollment's
// completed progress rows.
func (r *repo) CountProgress(ctx context.Context, db *gorm.DB, enrollmentID, certificationID snowflake.ID) (int64, int64, error) {
	var out struct {
		Total     int64
		Completed int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			(SELECT COUNT(1) FROM modules WHERE certification_id = ?) AS total,
			(SELECT COUNT(1) FROM module_progress WHERE enrollment_id = ? AND is_completed = ?) AS completed`,
		certificationID, enrollmentID, true,
	).Scan(&out).Error
	if err != nil {
		return 0, 0, err
	}
	return out.Total, out.Completed, nil
}
