package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	admissiondomain "github.com/smallbiznis/certihub/internal/admission/domain"
	auditdomain "github.com/smallbiznis/certihub/internal/audit/domain"
	"github.com/smallbiznis/certihub/internal/authorization"
	catalogdomain "github.com/smallbiznis/certihub/internal/catalog/domain"
	certificatedomain "github.com/smallbiznis/certihub/internal/certificate/domain"
	"github.com/smallbiznis/certihub/internal/config"
	enrollmentdomain "github.com/smallbiznis/certihub/internal/enrollment/domain"
	obslogger "github.com/smallbiznis/certihub/internal/observability/logger"
	"github.com/smallbiznis/certihub/internal/observability/metrics"
	obstracing "github.com/smallbiznis/certihub/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/certihub/internal/payment/domain"
	"github.com/smallbiznis/certihub/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           cfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(m.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", m.Handler())

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	log           *zap.Logger
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	catalogSvc    catalogdomain.Service
	admissionSvc  admissiondomain.Service
	enrollmentSvc enrollmentdomain.Service
	paymentSvc    paymentdomain.Service
	webhookSvc    paymentdomain.WebhookService
	certSvc       certificatedomain.Service
	publicLimiter ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Log           *zap.Logger
	AuthzSvc      authorization.Service
	AuditSvc      auditdomain.Service
	CatalogSvc    catalogdomain.Service
	AdmissionSvc  admissiondomain.Service
	EnrollmentSvc enrollmentdomain.Service
	PaymentSvc    paymentdomain.Service
	WebhookSvc    paymentdomain.WebhookService
	CertSvc       certificatedomain.Service
	PublicLimiter ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		log:           p.Log.Named("http.server"),
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		catalogSvc:    p.CatalogSvc,
		admissionSvc:  p.AdmissionSvc,
		enrollmentSvc: p.EnrollmentSvc,
		paymentSvc:    p.PaymentSvc,
		webhookSvc:    p.WebhookSvc,
		certSvc:       p.CertSvc,
		publicLimiter: p.PublicLimiter,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments/:provider", s.HandlePaymentWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1", Identity(), s.Authorize())

	// -------- Catalog --------
	api.GET("/certifications", s.ListCertifications)
	api.POST("/certifications", s.CreateCertification)
	api.GET("/certifications/:id", s.GetCertification)
	api.PATCH("/certifications/:id", s.UpdateCertification)
	api.POST("/certifications/:id/publish", s.PublishCertification)
	api.GET("/certifications/:id/modules", s.ListModules)
	api.POST("/certifications/:id/modules", s.AddModule)

	// -------- Billing --------
	api.GET("/billing/preview", s.PublicRateLimit(), s.PreviewBilling)

	// -------- Applications --------
	api.POST("/applications", s.SubmitApplication)
	api.GET("/applications", s.ListApplications)
	api.GET("/applications/:id", s.GetApplication)
	api.POST("/applications/:id/decision", s.DecideApplication)

	// -------- Enrollments --------
	api.POST("/enrollments", s.CreateEnrollment)
	api.GET("/enrollments", s.ListEnrollments)
	api.POST("/enrollments/backfill", s.BackfillModules)
	api.GET("/enrollments/:id", s.GetEnrollment)
	api.GET("/enrollments/:id/modules", s.ListModuleProgress)
	api.POST("/enrollments/:id/drop", s.DropEnrollment)
	api.POST("/modules/:id/complete", s.CompleteModule)

	// -------- Payments --------
	api.POST("/payments", s.InitiatePayment)
	api.GET("/payments", s.ListTransactions)
	api.GET("/payments/:invoice_id", s.GetTransaction)
	api.POST("/payments/:invoice_id/refund", s.RefundTransaction)
	api.POST("/payments/:invoice_id/sync", s.SyncInvoice)

	// -------- Certificates --------
	api.POST("/certificates", s.IssueCertificate)
	api.GET("/certificates", s.ListCertificates)
	api.GET("/certificates/verify/:number", s.PublicRateLimit(), s.VerifyCertificate)
	api.GET("/certificates/:id", s.GetCertificate)
	api.POST("/certificates/:id/revoke", s.RevokeCertificate)

	// -------- Audit --------
	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
