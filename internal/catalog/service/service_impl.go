package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	"github.com/smallbiznis/certihub/internal/billing"
	"github.com/smallbiznis/certihub/internal/cache"
	"github.com/smallbiznis/certihub/internal/catalog/domain"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/validator"
	"github.com/smallbiznis/certihub/pkg/db"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Cache    cache.CatalogCache
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	cache    cache.CatalogCache
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	c := p.Cache
	if c == nil {
		c = cache.NewCatalogCache()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		cache:    c,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) CreateCertification(ctx context.Context, req domain.CreateCertificationRequest) (*domain.Certification, error) {
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cert := domain.Certification{
		ID:            s.genID.Generate(),
		Slug:          slug.Make(title),
		Title:         title,
		Description:   strings.TrimSpace(req.Description),
		Price:         price,
		Level:         strings.TrimSpace(req.Level),
		DurationLabel: strings.TrimSpace(req.DurationLabel),
		Status:        domain.StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if cert.Slug == "" {
		cert.Slug = cert.ID.Base36()
	}

	if err := s.repo.InsertCertification(ctx, s.db, &cert); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, errkind.Upstream(err, "insert certification")
	}

	s.audit(ctx, cert.ID, "created")
	return &cert, nil
}

func (s *Service) UpdateCertification(ctx context.Context, id string, req domain.UpdateCertificationRequest) (*domain.Certification, error) {
	certID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	cert, err := s.load(ctx, certID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		cert.Title = title
	}
	if req.Description != nil {
		cert.Description = strings.TrimSpace(*req.Description)
	}
	if req.Level != nil {
		cert.Level = strings.TrimSpace(*req.Level)
	}
	if req.DurationLabel != nil {
		cert.DurationLabel = strings.TrimSpace(*req.DurationLabel)
	}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			return nil, err
		}
		if !price.Equal(cert.Price) {
			locked, err := s.isLocked(ctx, certID)
			if err != nil {
				return nil, err
			}
			if locked {
				return nil, domain.ErrLockedByEnrollment
			}
			cert.Price = price
		}
	}
	cert.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateCertification(ctx, s.db, cert); err != nil {
		return nil, errkind.Upstream(err, "update certification")
	}
	s.cache.Invalidate(certID)

	s.audit(ctx, certID, "updated")
	return cert, nil
}

func (s *Service) PublishCertification(ctx context.Context, id string) (*domain.Certification, error) {
	certID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	cert, err := s.load(ctx, certID)
	if err != nil {
		return nil, err
	}
	if cert.IsPublished() {
		return nil, domain.ErrAlreadyPublished
	}
	locked, err := s.isLocked(ctx, certID)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, domain.ErrLockedByEnrollment
	}

	changed, err := s.repo.PublishCertification(ctx, s.db, certID, s.clock.Now())
	if err != nil {
		return nil, errkind.Upstream(err, "publish certification")
	}
	if !changed {
		return nil, domain.ErrAlreadyPublished
	}
	s.cache.Invalidate(certID)

	s.audit(ctx, certID, "published")
	return s.GetCertification(ctx, certID)
}

func (s *Service) GetCertification(ctx context.Context, id snowflake.ID) (*domain.Certification, error) {
	if cert, ok := s.cache.GetCertification(id); ok {
		return &cert, nil
	}
	cert, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetCertification(*cert)
	return cert, nil
}

// GetPublishedCertification hides drafts from learners behind NotFound.
func (s *Service) GetPublishedCertification(ctx context.Context, id snowflake.ID) (*domain.Certification, error) {
	cert, err := s.GetCertification(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cert.IsPublished() {
		return nil, domain.ErrNotPublished
	}
	return cert, nil
}

func (s *Service) ListCertifications(ctx context.Context, status string) ([]domain.Certification, error) {
	filter := domain.CertificationStatus(strings.ToLower(strings.TrimSpace(status)))
	switch filter {
	case "", domain.StatusDraft, domain.StatusPublished:
	default:
		return nil, errkind.New(errkind.InvalidInput, "invalid_status", "status must be draft or published")
	}
	certs, err := s.repo.ListCertifications(ctx, s.db, filter)
	if err != nil {
		return nil, errkind.Upstream(err, "list certifications")
	}
	return certs, nil
}

func (s *Service) AddModule(ctx context.Context, certificationID string, req domain.AddModuleRequest) (*domain.Module, error) {
	certID, err := parseID(certificationID)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if _, err := s.load(ctx, certID); err != nil {
		return nil, err
	}

	sequence := 0
	if req.Sequence != nil {
		sequence = *req.Sequence
		if sequence <= 0 {
			return nil, domain.ErrInvalidSequence
		}
	} else {
		max, err := s.repo.MaxSequence(ctx, s.db, certID)
		if err != nil {
			return nil, errkind.Upstream(err, "load module sequence")
		}
		sequence = max + 1
	}

	module := domain.Module{
		ID:              s.genID.Generate(),
		CertificationID: certID,
		Title:           title,
		Sequence:        sequence,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.repo.InsertModule(ctx, s.db, &module); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSequenceTaken
		}
		return nil, errkind.Upstream(err, "insert module")
	}
	s.cache.Invalidate(certID)

	return &module, nil
}

// ListModules returns the modules of a certification ordered by sequence.
func (s *Service) ListModules(ctx context.Context, certificationID snowflake.ID) ([]domain.Module, error) {
	if modules, ok := s.cache.GetModules(certificationID); ok {
		return modules, nil
	}
	modules, err := s.repo.ListModules(ctx, s.db, certificationID)
	if err != nil {
		return nil, errkind.Upstream(err, "list modules")
	}
	s.cache.SetModules(certificationID, modules)
	return modules, nil
}

func (s *Service) GetModule(ctx context.Context, id snowflake.ID) (*domain.Module, error) {
	module, err := s.repo.FindModule(ctx, s.db, id)
	if err != nil {
		return nil, errkind.Upstream(err, "load module")
	}
	if module == nil {
		return nil, errkind.New(errkind.NotFound, "module_not_found", "module not found")
	}
	return module, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Certification, error) {
	cert, err := s.repo.FindCertification(ctx, s.db, id)
	if err != nil {
		return nil, errkind.Upstream(err, "load certification")
	}
	if cert == nil {
		return nil, domain.ErrCertificationMissing
	}
	return cert, nil
}

func (s *Service) isLocked(ctx context.Context, id snowflake.ID) (bool, error) {
	count, err := s.repo.CountEnrollments(ctx, s.db, id)
	if err != nil {
		return false, errkind.Upstream(err, "count enrollments")
	}
	return count > 0, nil
}

func (s *Service) audit(ctx context.Context, id snowflake.ID, change string) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCertificationChanged,
		TargetType: auditdomain.TargetCertification,
		TargetID:   id.String(),
		Metadata:   map[string]any{"change": change},
	})
	if err != nil {
		s.log.Warn("audit certification change failed", zap.String("certification_id", id.String()), zap.Error(err))
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	amount, err := billing.ParseAmount(raw)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, domain.ErrInvalidPrice
	}
	return amount.Round(2), nil
}
