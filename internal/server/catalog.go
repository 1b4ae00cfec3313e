package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/certihub/internal/catalog/domain"
)

func parseCertificationID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, catalogdomain.ErrInvalidID
	}
	return id, nil
}

func (s *Server) ListCertifications(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	status := strings.TrimSpace(query.Status)
	if !isAdmin(actorFrom(c)) {
		status = string(catalogdomain.StatusPublished)
	}

	items, err := s.catalogSvc.ListCertifications(c.Request.Context(), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) CreateCertification(c *gin.Context) {
	var req catalogdomain.CreateCertificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.catalogSvc.CreateCertification(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// GetCertification hides unpublished certifications from everyone but admins.
func (s *Server) GetCertification(c *gin.Context) {
	id, err := parseCertificationID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var resp *catalogdomain.Certification
	if isAdmin(actorFrom(c)) {
		resp, err = s.catalogSvc.GetCertification(c.Request.Context(), id)
	} else {
		resp, err = s.catalogSvc.GetPublishedCertification(c.Request.Context(), id)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCertification(c *gin.Context) {
	var req catalogdomain.UpdateCertificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.catalogSvc.UpdateCertification(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PublishCertification(c *gin.Context) {
	resp, err := s.catalogSvc.PublishCertification(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListModules(c *gin.Context) {
	id, err := parseCertificationID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if !isAdmin(actorFrom(c)) {
		if _, err := s.catalogSvc.GetPublishedCertification(ctx, id); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	modules, err := s.catalogSvc.ListModules(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": modules})
}

func (s *Server) AddModule(c *gin.Context) {
	var req catalogdomain.AddModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.catalogSvc.AddModule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
