package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/admission/domain"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/certihub/internal/catalog/domain"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/validator"
	"github.com/smallbiznis/certihub/pkg/db"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	CatalogSvc catalogdomain.Service
	AuditSvc   auditdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	catalogSvc catalogdomain.Service
	auditSvc   auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("admission.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		catalogSvc: p.CatalogSvc,
		auditSvc:   p.AuditSvc,
	}
}

func (s *Service) SubmitApplication(ctx context.Context, userID string, req domain.SubmitApplicationRequest) (*domain.Application, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	certID, err := parseID(req.CertificationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.catalogSvc.GetPublishedCertification(ctx, certID); err != nil {
		return nil, err
	}

	details := req.Details
	if details == nil {
		details = map[string]any{}
	}

	now := s.clock.Now()
	app := domain.Application{
		ID:              s.genID.Generate(),
		UserID:          userID,
		CertificationID: certID,
		Details:         datatypes.JSONMap(details),
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, s.db, &app); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrPendingExists
		}
		return nil, errkind.Upstream(err, "insert application")
	}

	s.audit(ctx, userID, auditdomain.ActionApplicationSubmitted, app)
	return &app, nil
}

func (s *Service) DecideApplication(ctx context.Context, applicationID string, req domain.DecideApplicationRequest, actorID string) (*domain.Application, error) {
	id, err := parseID(applicationID)
	if err != nil {
		return nil, err
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, domain.ErrInvalidUser
	}
	status, ok := req.Decision.Status()
	if !ok {
		return nil, domain.ErrInvalidDecision
	}

	changed, err := s.repo.Decide(ctx, s.db, id, status, actorID, s.clock.Now())
	if err != nil {
		return nil, errkind.Upstream(err, "decide application")
	}

	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, domain.ErrAlreadyDecided
	}

	action := auditdomain.ActionApplicationApproved
	if status == domain.StatusRejected {
		action = auditdomain.ActionApplicationRejected
	}
	s.audit(ctx, actorID, action, *app)
	return app, nil
}

func (s *Service) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	appID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, appID)
}

func (s *Service) ListApplications(ctx context.Context, req domain.ListApplicationsRequest) (domain.ListApplicationsResponse, error) {
	filter := domain.ListFilter{UserID: strings.TrimSpace(req.UserID)}
	if raw := strings.TrimSpace(req.CertificationID); raw != "" {
		certID, err := parseID(raw)
		if err != nil {
			return domain.ListApplicationsResponse{}, err
		}
		filter.CertificationID = certID
	}
	switch status := domain.ApplicationStatus(strings.ToLower(strings.TrimSpace(req.Status))); status {
	case "", domain.StatusPending, domain.StatusApproved, domain.StatusRejected:
		filter.Status = status
	default:
		return domain.ListApplicationsResponse{}, domain.ErrInvalidStatus
	}

	items, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return domain.ListApplicationsResponse{}, errkind.Upstream(err, "list applications")
	}
	items, pageInfo := pagination.Trim(items, req.Pagination, func(app *domain.Application) string {
		return app.ID.String()
	})

	apps := make([]domain.Application, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		apps = append(apps, *item)
	}
	return domain.ListApplicationsResponse{PageInfo: pageInfo, Applications: apps}, nil
}

// HasApproved reports whether any application of the user for the
// certification was approved.
func (s *Service) HasApproved(ctx context.Context, userID string, certificationID snowflake.ID) (bool, error) {
	ok, err := s.repo.ExistsWithStatus(ctx, s.db, strings.TrimSpace(userID), certificationID, domain.StatusApproved)
	if err != nil {
		return false, errkind.Upstream(err, "check approved application")
	}
	return ok, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Application, error) {
	app, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, errkind.Upstream(err, "load application")
	}
	if app == nil {
		return nil, domain.ErrApplicationMissing
	}
	return app, nil
}

func (s *Service) audit(ctx context.Context, actorID, action string, app domain.Application) {
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorID:    actorID,
		Action:     action,
		TargetType: auditdomain.TargetApplication,
		TargetID:   app.ID.String(),
		Metadata: map[string]any{
			"user_id":          app.UserID,
			"certification_id": app.CertificationID.String(),
			"status":           string(app.Status),
		},
	})
	if err != nil {
		s.log.Warn("audit application failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
