package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	admissiondomain "github.com/smallbiznis/certihub/internal/admission/domain"
)

func (s *Server) SubmitApplication(c *gin.Context) {
	var req admissiondomain.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.admissionSvc.SubmitApplication(c.Request.Context(), actorFrom(c).ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetApplication(c *gin.Context) {
	resp, err := s.admissionSvc.GetApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !canSee(actorFrom(c), resp.UserID) {
		AbortWithError(c, admissiondomain.ErrApplicationMissing)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListApplications scopes learners to their own applications. Admins may
// filter by user.
func (s *Server) ListApplications(c *gin.Context) {
	var req admissiondomain.ListApplicationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	actor := actorFrom(c)
	if !isAdmin(actor) {
		req.UserID = actor.ID
	}
	req.UserID = strings.TrimSpace(req.UserID)

	resp, err := s.admissionSvc.ListApplications(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DecideApplication(c *gin.Context) {
	var req admissiondomain.DecideApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.admissionSvc.DecideApplication(c.Request.Context(), c.Param("id"), req, actorFrom(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
