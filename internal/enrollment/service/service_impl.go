package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	admissiondomain "github.com/smallbiznis/certihub/internal/admission/domain"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/certihub/internal/catalog/domain"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/config"
	"github.com/smallbiznis/certihub/internal/enrollment/domain"
	"github.com/smallbiznis/certihub/internal/observability/metrics"
	"github.com/smallbiznis/certihub/internal/validator"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CatalogSvc   catalogdomain.Service
	AdmissionSvc admissiondomain.Service
	AuditSvc     auditdomain.Service
	Policy       *config.PolicyConfigHolder `optional:"true"`
	Metrics      *metrics.Metrics           `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	catalogSvc   catalogdomain.Service
	admissionSvc admissiondomain.Service
	auditSvc     auditdomain.Service
	policy       *config.PolicyConfigHolder
	metrics      *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("enrollment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		catalogSvc:   p.CatalogSvc,
		admissionSvc: p.AdmissionSvc,
		auditSvc:     p.AuditSvc,
		policy:       p.Policy,
		metrics:      p.Metrics,
	}
}

func (s *Service) CreateEnrollment(ctx context.Context, userID string, req domain.CreateEnrollmentRequest) (*domain.CreateResult, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	certID, err := parseID(req.CertificationID)
	if err != nil {
		return nil, err
	}
	return s.provision(ctx, userID, certID, domain.ModeApprovedApplication)
}

func (s *Service) ProvisionFromPayment(ctx context.Context, userID string, certificationID snowflake.ID) (*domain.CreateResult, error) {
	return s.provision(ctx, userID, certificationID, domain.ModeCompletedPayment)
}

// provision is the only path that creates enrollments. The active-slot and
// per-certification checks share a transaction with the insert; the unique
// indexes settle any race that slips between them.
func (s *Service) provision(ctx context.Context, userID string, certificationID snowflake.ID, mode domain.AuthorizationMode) (*domain.CreateResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}

	paymentStatus := domain.PaymentPending
	switch mode {
	case domain.ModeApprovedApplication:
		approved, err := s.admissionSvc.HasApproved(ctx, userID, certificationID)
		if err != nil {
			return nil, err
		}
		if !approved {
			s.metrics.RecordEnrollment(string(mode), "forbidden")
			return nil, domain.ErrNoApprovedApplication
		}
	case domain.ModeCompletedPayment:
		paymentStatus = domain.PaymentPaid
	default:
		return nil, domain.ErrInvalidMode
	}

	if _, err := s.catalogSvc.GetCertification(ctx, certificationID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	enrollment := domain.Enrollment{
		ID:                s.genID.Generate(),
		UserID:            userID,
		CertificationID:   certificationID,
		Status:            domain.StatusActive,
		PaymentStatus:     paymentStatus,
		Progress:          0,
		StartedAt:         now,
		DueAt:             now.Add(s.policy.Get().EnrollmentWindow()),
		AuthorizationMode: mode,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := s.repo.FindActiveByUser(ctx, tx, userID)
		if err != nil {
			return errkind.Upstream(err, "load active enrollment")
		}
		if active != nil {
			return domain.ErrActiveEnrollmentExists
		}

		existing, err := s.repo.FindByUserCertification(ctx, tx, userID, certificationID)
		if err != nil {
			return errkind.Upstream(err, "load enrollment")
		}
		if existing != nil {
			return domain.ErrAlreadyEnrolled
		}

		if err := s.repo.Insert(ctx, tx, &enrollment); err != nil {
			if isDuplicateKey(err) {
				return errDuplicate
			}
			return errkind.Upstream(err, "insert enrollment")
		}
		return nil
	})
	if err == errDuplicate {
		err = s.classifyConflict(ctx, userID, certificationID)
	}
	if err != nil {
		if errkind.Is(err, errkind.Conflict) {
			s.metrics.RecordEnrollment(string(mode), "conflict")
		}
		return nil, err
	}

	result := &domain.CreateResult{}
	if inserted, err := s.provisionModules(ctx, enrollment); err != nil {
		s.log.Warn("module progress provisioning failed",
			zap.String("enrollment_id", enrollment.ID.String()),
			zap.Error(err),
		)
		result.Warnings = append(result.Warnings, domain.WarningModulesPending)
	} else {
		enrollment.ModulesProvisioned = true
		s.log.Debug("module progress provisioned",
			zap.String("enrollment_id", enrollment.ID.String()),
			zap.Int64("rows", inserted),
		)
	}
	result.Enrollment = enrollment

	s.metrics.RecordEnrollment(string(mode), "created")
	s.audit(ctx, userID, auditdomain.ActionEnrollmentCreated, enrollment, map[string]any{
		"authorization_mode": string(mode),
		"warnings":           len(result.Warnings),
	})
	return result, nil
}

// classifyConflict turns a unique index violation into the precise conflict
// by re-reading the rows that won the race.
func (s *Service) classifyConflict(ctx context.Context, userID string, certificationID snowflake.ID) error {
	existing, err := s.repo.FindByUserCertification(ctx, s.db, userID, certificationID)
	if err != nil {
		return errkind.Upstream(err, "classify enrollment conflict")
	}
	if existing != nil && !existing.IsActive() {
		return domain.ErrAlreadyEnrolled
	}
	active, err := s.repo.FindActiveByUser(ctx, s.db, userID)
	if err != nil {
		return errkind.Upstream(err, "classify enrollment conflict")
	}
	if active != nil {
		return domain.ErrActiveEnrollmentExists
	}
	return domain.ErrAlreadyEnrolled
}

// provisionModules creates one progress row per certification module and
// marks the enrollment provisioned. Existing rows are left untouched.
func (s *Service) provisionModules(ctx context.Context, enrollment domain.Enrollment) (int64, error) {
	modules, err := s.catalogSvc.ListModules(ctx, enrollment.CertificationID)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	rows := make([]domain.ModuleProgress, 0, len(modules))
	for _, module := range modules {
		rows = append(rows, domain.ModuleProgress{
			ID:           s.genID.Generate(),
			UserID:       enrollment.UserID,
			ModuleID:     module.ID,
			EnrollmentID: enrollment.ID,
			CreatedAt:    now,
		})
	}

	var inserted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.InsertModuleProgress(ctx, tx, rows)
		if err != nil {
			return err
		}
		inserted = n
		return s.repo.MarkProvisioned(ctx, tx, enrollment.ID, now)
	})
	if err != nil {
		return 0, errkind.Upstream(err, "insert module progress")
	}
	return inserted, nil
}

func (s *Service) GetEnrollment(ctx context.Context, id string) (*domain.Enrollment, error) {
	enrollmentID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, enrollmentID)
}

func (s *Service) ListEnrollments(ctx context.Context, userID string, page pagination.Pagination) (domain.ListEnrollmentsResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ListEnrollmentsResponse{}, domain.ErrInvalidUser
	}
	items, err := s.repo.ListByUser(ctx, s.db, userID, page)
	if err != nil {
		return domain.ListEnrollmentsResponse{}, errkind.Upstream(err, "list enrollments")
	}
	items, pageInfo := pagination.Trim(items, page, func(e *domain.Enrollment) string {
		return e.ID.String()
	})

	enrollments := make([]domain.Enrollment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		enrollments = append(enrollments, *item)
	}
	return domain.ListEnrollmentsResponse{PageInfo: pageInfo, Enrollments: enrollments}, nil
}

func (s *Service) ListModuleProgress(ctx context.Context, enrollmentID string) ([]domain.ModuleProgress, error) {
	id, err := parseID(enrollmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListModuleProgress(ctx, s.db, id)
	if err != nil {
		return nil, errkind.Upstream(err, "list module progress")
	}
	return rows, nil
}

// CompleteModule marks the user's progress row for the module completed and
// recomputes the enrollment progress. Completing an already completed module
// is a no-op.
func (s *Service) CompleteModule(ctx context.Context, userID string, moduleID string) (*domain.Enrollment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	modID, err := parseID(moduleID)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.FindProgressByUserModule(ctx, s.db, userID, modID)
	if err != nil {
		return nil, errkind.Upstream(err, "load module progress")
	}
	if row == nil {
		return nil, domain.ErrProgressMissing
	}

	enrollment, err := s.load(ctx, row.EnrollmentID)
	if err != nil {
		return nil, err
	}
	switch enrollment.Status {
	case domain.StatusCompleted:
		return enrollment, nil
	case domain.StatusDropped:
		return nil, domain.ErrEnrollmentNotActive
	}

	now := s.clock.Now()
	completed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.CompleteModuleProgress(ctx, tx, row.ID, now); err != nil {
			return err
		}
		total, done, err := s.repo.CountProgress(ctx, tx, enrollment.ID, enrollment.CertificationID)
		if err != nil {
			return err
		}
		progress := domain.ProgressPercent(done, total)
		if progress == 100 {
			completed, err = s.repo.Complete(ctx, tx, enrollment.ID, now)
			return err
		}
		return s.repo.UpdateProgress(ctx, tx, enrollment.ID, progress, now)
	})
	if err != nil {
		return nil, errkind.Upstream(err, "complete module")
	}

	updated, err := s.load(ctx, enrollment.ID)
	if err != nil {
		return nil, err
	}
	if completed {
		s.audit(ctx, userID, auditdomain.ActionEnrollmentCompleted, *updated, nil)
	}
	return updated, nil
}

func (s *Service) DropEnrollment(ctx context.Context, enrollmentID string, actorID string) (*domain.Enrollment, error) {
	id, err := parseID(enrollmentID)
	if err != nil {
		return nil, err
	}

	changed, err := s.repo.Drop(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return nil, errkind.Upstream(err, "drop enrollment")
	}
	enrollment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, domain.ErrEnrollmentNotActive
	}

	s.audit(ctx, actorID, auditdomain.ActionEnrollmentDropped, *enrollment, nil)
	return enrollment, nil
}

// BackfillModules repairs enrollments whose module progress rows are missing,
// either because post-commit provisioning failed or modules were added later.
func (s *Service) BackfillModules(ctx context.Context, batch int) (domain.BackfillResult, error) {
	if batch <= 0 {
		batch = s.policy.Get().BackfillBatchSize
	}

	candidates, err := s.repo.ListNeedingModules(ctx, s.db, batch)
	if err != nil {
		return domain.BackfillResult{}, errkind.Upstream(err, "list enrollments needing modules")
	}

	result := domain.BackfillResult{Scanned: len(candidates)}
	for _, enrollment := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		inserted, err := s.provisionModules(ctx, enrollment)
		if err != nil {
			result.Failed++
			s.log.Warn("backfill module progress failed",
				zap.String("enrollment_id", enrollment.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Repaired++
		result.Inserted += inserted
	}

	if result.Scanned > 0 {
		s.log.Info("module progress backfill finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("repaired", result.Repaired),
			zap.Int64("inserted", result.Inserted),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

func (s *Service) FindByUserCertification(ctx context.Context, userID string, certificationID snowflake.ID) (*domain.Enrollment, error) {
	enrollment, err := s.repo.FindByUserCertification(ctx, s.db, strings.TrimSpace(userID), certificationID)
	if err != nil {
		return nil, errkind.Upstream(err, "load enrollment")
	}
	if enrollment == nil {
		return nil, domain.ErrEnrollmentMissing
	}
	return enrollment, nil
}

func (s *Service) MarkPaid(ctx context.Context, enrollmentID snowflake.ID) error {
	if err := s.repo.MarkPaid(ctx, s.db, enrollmentID, s.clock.Now()); err != nil {
		return errkind.Upstream(err, "mark enrollment paid")
	}
	return nil
}

func (s *Service) MarkPaymentFailed(ctx context.Context, enrollmentID snowflake.ID) error {
	changed, err := s.repo.MarkPaymentFailed(ctx, s.db, enrollmentID, s.clock.Now())
	if err != nil {
		return errkind.Upstream(err, "mark enrollment payment failed")
	}
	if changed {
		s.log.Info("enrollment payment failed", zap.String("enrollment_id", enrollmentID.String()))
	}
	return nil
}

func (s *Service) MarkCertificateIssued(ctx context.Context, tx *gorm.DB, enrollmentID snowflake.ID) error {
	if tx == nil {
		tx = s.db
	}
	if err := s.repo.MarkCertificateIssued(ctx, tx, enrollmentID, s.clock.Now()); err != nil {
		return errkind.Upstream(err, "mark certificate issued")
	}
	return nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, errkind.Upstream(err, "load enrollment")
	}
	if enrollment == nil {
		return nil, domain.ErrEnrollmentMissing
	}
	return enrollment, nil
}

func (s *Service) audit(ctx context.Context, actorID, action string, enrollment domain.Enrollment, extra map[string]any) {
	metadata := map[string]any{
		"user_id":          enrollment.UserID,
		"certification_id": enrollment.CertificationID.String(),
		"status":           string(enrollment.Status),
	}
	for k, v := range extra {
		metadata[k] = v
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorID:    actorID,
		Action:     action,
		TargetType: auditdomain.TargetEnrollment,
		TargetID:   enrollment.ID.String(),
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Warn("audit enrollment failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
