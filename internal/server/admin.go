package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hyzmat-tm/portfolio/internal/auth"
	"github.com/hyzmat-tm/portfolio/internal/metrics"
	"github.com/hyzmat-tm/portfolio/internal/upload"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password is required"})
		return
	}

	session, err := s.deps.Auth.Login(c.Request.Context(), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			s.logger.Warn("failed admin login", zap.String("client_ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, session.Token, int(s.deps.Auth.TTL().Seconds()), "/api", "", !s.config.Development, true)
	c.JSON(http.StatusOK, session)
}

func (s *Server) logout(c *gin.Context) {
	if token := auth.TokenFromRequest(c); token != "" {
		if err := s.deps.Auth.Logout(c.Request.Context(), token); err != nil {
			s.logger.Error("failed to delete session", zap.Error(err))
		}
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, "", -1, "/api", "", !s.config.Development, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.deps.Tracker.Stats(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// uploadImage handles POST /api/upload-image. The image is sent as the
// "image" field of a multipart form.
func (s *Server) uploadImage(c *gin.Context) {
	// Leave room for the multipart envelope around the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.deps.Uploads.MaxBytes()+1<<20)

	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.UploadsTotal.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": upload.ErrTooLarge.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}

	f, err := header.Open()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image"})
		return
	}
	defer f.Close()

	name, err := s.deps.Uploads.Save(f)
	switch {
	case errors.Is(err, upload.ErrNotImage), errors.Is(err, upload.ErrTooLarge):
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image"})
		return
	}

	metrics.UploadsTotal.WithLabelValues("stored").Inc()
	c.JSON(http.StatusCreated, gin.H{"url": "/uploads/" + name})
}
