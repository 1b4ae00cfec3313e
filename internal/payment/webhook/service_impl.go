package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/certihub/internal/payment/domain"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       paymentdomain.Repository
	PaymentSvc paymentdomain.Service
	Adapters   *adapters.Registry
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       paymentdomain.Repository
	paymentSvc paymentdomain.Service
	adapters   *adapters.Registry
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		paymentSvc: p.PaymentSvc,
		adapters:   p.Adapters,
	}
}

// Ingest verifies, deduplicates and reconciles one gateway notification. An
// event is marked processed only after reconciliation succeeds, so a failed
// delivery is retried on the next attempt.
func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	adapter, err := s.adapters.Adapter(provider)
	if err != nil {
		return err
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}
	if err := adapter.Verify(ctx, payload, headers); err != nil {
		return err
	}

	notification, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errkind.Is(err, paymentdomain.ErrEventIgnored) {
			s.log.Debug("payment webhook ignored", zap.String("provider", provider))
			return nil
		}
		return err
	}

	now := s.clock.Now()
	record := paymentdomain.EventRecord{
		ID:         s.genID.Generate(),
		Provider:   provider,
		EventID:    notification.EventID,
		InvoiceID:  notification.InvoiceID,
		State:      notification.State,
		Payload:    string(payload),
		ReceivedAt: now,
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, &record)
	if err != nil {
		return errkind.Upstream(err, "insert payment event")
	}
	if !inserted {
		stored, err := s.repo.FindEvent(ctx, s.db, provider, notification.EventID)
		if err != nil {
			return errkind.Upstream(err, "load payment event")
		}
		if stored == nil {
			return paymentdomain.ErrInvalidPayload
		}
		if stored.ProcessedAt != nil {
			s.log.Info("payment webhook already processed",
				zap.String("provider", provider),
				zap.String("event_id", stored.EventID),
			)
			return nil
		}
		record = *stored
	}

	if _, err := s.paymentSvc.ReconcilePayment(ctx, *notification); err != nil {
		return err
	}
	if err := s.repo.MarkProcessed(ctx, s.db, record.ID, s.clock.Now()); err != nil {
		return errkind.Upstream(err, "mark payment event processed")
	}
	return nil
}
