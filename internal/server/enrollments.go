package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	enrollmentdomain "github.com/smallbiznis/certihub/internal/enrollment/domain"
)

func (s *Server) CreateEnrollment(c *gin.Context) {
	var req enrollmentdomain.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.enrollmentSvc.CreateEnrollment(c.Request.Context(), actorFrom(c).ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp.Enrollment, "warnings": resp.Warnings})
}

func (s *Server) GetEnrollment(c *gin.Context) {
	resp, err := s.enrollmentSvc.GetEnrollment(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !canSee(actorFrom(c), resp.UserID) {
		AbortWithError(c, enrollmentdomain.ErrEnrollmentMissing)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListEnrollments(c *gin.Context) {
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

	resp, err := s.enrollmentSvc.ListEnrollments(c.Request.Context(), userID, query.pagination())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListModuleProgress(c *gin.Context) {
	ctx := c.Request.Context()
	enrollment, err := s.enrollmentSvc.GetEnrollment(ctx, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !canSee(actorFrom(c), enrollment.UserID) {
		AbortWithError(c, enrollmentdomain.ErrEnrollmentMissing)
		return
	}

	rows, err := s.enrollmentSvc.ListModuleProgress(ctx, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) CompleteModule(c *gin.Context) {
	resp, err := s.enrollmentSvc.CompleteModule(c.Request.Context(), actorFrom(c).ID, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DropEnrollment(c *gin.Context) {
	resp, err := s.enrollmentSvc.DropEnrollment(c.Request.Context(), c.Param("id"), actorFrom(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// BackfillModules runs one repair batch on demand, outside the scheduler.
func (s *Server) BackfillModules(c *gin.Context) {
	var query struct {
		Batch int `form:"batch"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.enrollmentSvc.BackfillModules(c.Request.Context(), query.Batch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
