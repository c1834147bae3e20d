package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hyzmat-tm/portfolio/internal/models"
	"github.com/hyzmat-tm/portfolio/internal/store"
)

// listProjects handles GET /api/projects
func (s *Server) listProjects(c *gin.Context) {
	category, err := models.ParseCategory(c.Query("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}
	c.JSON(http.StatusOK, s.deps.Projects.ListByCategory(category))
}

// getProject handles GET /api/projects/:id
func (s *Server) getProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	project, err := s.deps.Projects.Get(id)
	if err != nil {
		s.projectError(c, err, "Failed to fetch project")
		return
	}
	c.JSON(http.StatusOK, project)
}

// createProject handles POST /api/projects
func (s *Server) createProject(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	// Client ids are ignored, so they are dropped before decoding
	in, err := models.MergeJSON(models.Project{}, body)
	if err != nil {
		s.logger.Debug("rejected project body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	project, err := s.deps.Projects.Create(in)
	if err != nil {
		s.projectError(c, err, "Failed to create project")
		return
	}
	c.JSON(http.StatusCreated, project)
}

// updateProject handles PUT /api/projects/:id
func (s *Server) updateProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	patch, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	project, err := s.deps.Projects.Update(id, patch)
	if err != nil {
		s.projectError(c, err, "Failed to update project")
		return
	}
	c.JSON(http.StatusOK, project)
}

// deleteProject handles DELETE /api/projects/:id
func (s *Server) deleteProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	if err := s.deps.Projects.Delete(id); err != nil {
		s.projectError(c, err, "Failed to delete project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// projectError maps store errors onto status codes. fallback is the message
// returned for persistence failures.
func (s *Server) projectError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
	case errors.Is(err, store.ErrMalformed):
		s.logger.Debug("rejected project body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
	case errors.Is(err, store.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.Error(err)
		s.logger.Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func projectID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return 0, false
	}
	return id, true
}
