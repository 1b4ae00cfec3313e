package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	"github.com/smallbiznis/certihub/internal/certificate/domain"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/config"
	enrollmentdomain "github.com/smallbiznis/certihub/internal/enrollment/domain"
	"github.com/smallbiznis/certihub/internal/observability/metrics"
	"github.com/smallbiznis/certihub/internal/validator"
	"github.com/smallbiznis/certihub/pkg/db"
	"github.com/smallbiznis/certihub/pkg/db/pagination"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const numberAttempts = 3

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	EnrollmentSvc enrollmentdomain.Service
	AuditSvc      auditdomain.Service
	Policy        *config.PolicyConfigHolder `optional:"true"`
	Metrics       *metrics.Metrics           `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	enrollmentSvc enrollmentdomain.Service
	auditSvc      auditdomain.Service
	policy        *config.PolicyConfigHolder
	metrics       *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("certificate.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		enrollmentSvc: p.EnrollmentSvc,
		auditSvc:      p.AuditSvc,
		policy:        p.Policy,
		metrics:       p.Metrics,
	}
}

func (s *Service) IssueCertificate(ctx context.Context, req domain.IssueCertificateRequest, actorID string) (*domain.Certificate, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}
	certificationID, err := parseID(req.CertificationID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	issueDate := now
	if req.IssueDate != nil {
		issueDate = req.IssueDate.UTC()
	}
	var expiryDate *time.Time
	if req.ExpiryDate != nil {
		expiry := req.ExpiryDate.UTC()
		if expiry.Before(issueDate) {
			return nil, domain.ErrInvalidDates
		}
		expiryDate = &expiry
	}

	enrollment, err := s.enrollmentSvc.FindByUserCertification(ctx, req.UserID, certificationID)
	if err != nil {
		return nil, err
	}
	if s.policy.Get().RequireCompletedForCertificate && enrollment.Status != enrollmentdomain.StatusCompleted {
		return nil, domain.ErrEnrollmentNotDone
	}

	var cert domain.Certificate
	for attempt := 1; ; attempt++ {
		id := s.genID.Generate()
		number, err := certificateNumber(id, now)
		if err != nil {
			return nil, errkind.Upstream(err, "generate certificate number")
		}
		cert = domain.Certificate{
			ID:                id,
			CertificateNumber: number,
			EnrollmentID:      enrollment.ID,
			UserID:            req.UserID,
			CertificationID:   certificationID,
			IssueDate:         issueDate,
			ExpiryDate:        expiryDate,
			DocumentURL:       req.DocumentURL,
			CreatedAt:         now,
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.Insert(ctx, tx, &cert); err != nil {
				return err
			}
			return s.enrollmentSvc.MarkCertificateIssued(ctx, tx, enrollment.ID)
		})
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			return nil, errkind.Upstream(err, "insert certificate")
		}
		if attempt == numberAttempts {
			return nil, domain.ErrNumberExhausted
		}
		s.log.Warn("certificate number collision, retrying", zap.Int("attempt", attempt))
	}

	s.metrics.RecordCertificate("issued")
	s.audit(ctx, actorID, auditdomain.ActionCertificateIssued, cert, map[string]any{
		"enrollment_id":     enrollment.ID.String(),
		"enrollment_status": string(enrollment.Status),
	})
	return &cert, nil
}

// RevokeCertificate is terminal. A second revocation is reported as an error
// so callers see that nothing changed.
func (s *Service) RevokeCertificate(ctx context.Context, id string, req domain.RevokeCertificateRequest, actorID string) (*domain.Certificate, error) {
	certID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, domain.ErrReasonRequired
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		actorID = auditdomain.ActorSystem
	}

	revoked, err := s.repo.Revoke(ctx, s.db, certID, req.Reason, actorID, s.clock.Now())
	if err != nil {
		return nil, errkind.Upstream(err, "revoke certificate")
	}
	cert, err := s.load(ctx, certID)
	if err != nil {
		return nil, err
	}
	if !revoked {
		return nil, domain.ErrAlreadyRevoked
	}

	s.metrics.RecordCertificate("revoked")
	s.audit(ctx, actorID, auditdomain.ActionCertificateRevoked, *cert, map[string]any{
		"reason": req.Reason,
	})
	return cert, nil
}

func (s *Service) GetCertificate(ctx context.Context, id string) (*domain.Certificate, error) {
	certID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, certID)
}

func (s *Service) VerifyCertificate(ctx context.Context, number string) (*domain.Verification, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, domain.ErrInvalidNumber
	}
	cert, err := s.repo.FindByNumber(ctx, s.db, number)
	if err != nil {
		return nil, errkind.Upstream(err, "load certificate")
	}
	if cert == nil {
		return nil, domain.ErrCertificateMissing
	}

	expired := cert.Expired(s.clock.Now())
	return &domain.Verification{
		CertificateNumber: cert.CertificateNumber,
		CertificationID:   cert.CertificationID,
		IssueDate:         cert.IssueDate,
		ExpiryDate:        cert.ExpiryDate,
		Valid:             !cert.IsRevoked && !expired,
		Revoked:           cert.IsRevoked,
		Expired:           expired,
		RevokedAt:         cert.RevokedAt,
	}, nil
}

func (s *Service) ListCertificates(ctx context.Context, userID string, page pagination.Pagination) (domain.ListCertificatesResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ListCertificatesResponse{}, domain.ErrInvalidUser
	}
	items, err := s.repo.ListByUser(ctx, s.db, userID, page)
	if err != nil {
		return domain.ListCertificatesResponse{}, errkind.Upstream(err, "list certificates")
	}
	items, pageInfo := pagination.Trim(items, page, func(c *domain.Certificate) string {
		return c.ID.String()
	})

	out := make([]domain.Certificate, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return domain.ListCertificatesResponse{PageInfo: pageInfo, Certificates: out}, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Certificate, error) {
	cert, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, errkind.Upstream(err, "load certificate")
	}
	if cert == nil {
		return nil, domain.ErrCertificateMissing
	}
	return cert, nil
}

func (s *Service) audit(ctx context.Context, actorID, action string, cert domain.Certificate, extra map[string]any) {
	metadata := map[string]any{
		"certificate_number": cert.CertificateNumber,
		"user_id":            cert.UserID,
		"certification_id":   cert.CertificationID.String(),
	}
	for k, v := range extra {
		metadata[k] = v
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorID:    actorID,
		Action:     action,
		TargetType: auditdomain.TargetCertificate,
		TargetID:   cert.ID.String(),
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Warn("audit certificate failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
