package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/certihub/internal/payment/domain"
)

func (s *Server) InitiatePayment(c *gin.Context) {
	var req paymentdomain.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	actor := actorFrom(c)
	resp, err := s.paymentSvc.InitiatePayment(c.Request.Context(), actor.ID, actor.Email, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetTransaction(c *gin.Context) {
	resp, err := s.paymentSvc.GetTransaction(c.Request.Context(), c.Param("invoice_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !canSee(actorFrom(c), resp.UserID) {
		AbortWithError(c, paymentdomain.ErrTransactionMissing)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTransactions(c *gin.Context) {
	var query struct {
		pageQuery
		UserID string `form:"user_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	actor := actorFrom(c)
	userID := actor.ID
	if isAdmin(actor) && query.UserID != "" {
		userID = query.UserID
	}

	resp, err := s.paymentSvc.ListTransactions(c.Request.Context(), userID, query.pagination())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RefundTransaction(c *gin.Context) {
	resp, err := s.paymentSvc.RefundTransaction(c.Request.Context(), c.Param("invoice_id"), actorFrom(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SyncInvoice pulls the current status from the gateway and reconciles it.
func (s *Server) SyncInvoice(c *gin.Context) {
	resp, err := s.paymentSvc.SyncInvoice(c.Request.Context(), c.Param("invoice_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
