package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	certificatedomain "github.com/smallbiznis/certihub/internal/certificate/domain"
)

type issueCertificateRequest struct {
	UserID          string  `json:"user_id"`
	CertificationID string  `json:"certification_id"`
	IssueDate       string  `json:"issue_date"`
	ExpiryDate      string  `json:"expiry_date"`
	DocumentURL     *string `json:"document_url"`
}

func (s *Server) IssueCertificate(c *gin.Context) {
	var req issueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	issueDate, err := parseOptionalTime(req.IssueDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	expiryDate, err := parseOptionalTime(req.ExpiryDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.certSvc.IssueCertificate(c.Request.Context(), certificatedomain.IssueCertificateRequest{
		UserID:          strings.TrimSpace(req.UserID),
		CertificationID: strings.TrimSpace(req.CertificationID),
		IssueDate:       issueDate,
		ExpiryDate:      expiryDate,
		DocumentURL:     req.DocumentURL,
	}, actorFrom(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RevokeCertificate(c *gin.Context) {
	var req certificatedomain.RevokeCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.certSvc.RevokeCertificate(c.Request.Context(), c.Param("id"), req, actorFrom(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCertificate(c *gin.Context) {
	resp, err := s.certSvc.GetCertificate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !canSee(actorFrom(c), resp.UserID) {
		AbortWithError(c, certificatedomain.ErrCertificateMissing)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCertificates(c *gin.Context) {
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

	resp, err := s.certSvc.ListCertificates(c.Request.Context(), userID, query.pagination())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// VerifyCertificate is public and only exposes the fields a third party
// needs to validate a certificate.
func (s *Server) VerifyCertificate(c *gin.Context) {
	resp, err := s.certSvc.VerifyCertificate(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
