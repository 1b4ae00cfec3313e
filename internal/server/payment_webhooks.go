package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/certihub/internal/observability/logger"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// HandlePaymentWebhook always acknowledges with 200. Failures are logged and
// the event stays unprocessed, so a redelivery or an admin sync recovers it.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	log := obslogger.WithContext(c.Request.Context(), s.log).With(zap.String("provider", provider))

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Warn("payment webhook body unreadable", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if err := s.webhookSvc.Ingest(c.Request.Context(), provider, payload, c.Request.Header); err != nil {
		log.Error("payment webhook failed",
			zap.String("error_type", errkind.Code(err)),
			zap.Bool("retryable", errkind.Retryable(err)),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
