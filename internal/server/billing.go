package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/certihub/internal/billing"
)

// PreviewBilling shows the tax split for an arbitrary base amount.
func (s *Server) PreviewBilling(c *gin.Context) {
	amount, err := billing.ParseAmount(c.Query("amount"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	breakdown, err := billing.Compute(amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"base":  breakdown.Base.StringFixed(2),
		"tax":   breakdown.Tax.StringFixed(2),
		"total": breakdown.Total.StringFixed(2),
	})
}
