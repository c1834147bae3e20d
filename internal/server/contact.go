package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hyzmat-tm/portfolio/internal/mail"
	"github.com/hyzmat-tm/portfolio/internal/metrics"
)

// sendEmail relays a contact form submission to the site owner.
func (s *Server) sendEmail(c *gin.Context) {
	var contact mail.Contact
	if err := c.ShouldBindJSON(&contact); err != nil {
		metrics.EmailsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required"})
		return
	}

	if err := s.deps.Mailer.Send(c.Request.Context(), contact); err != nil {
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		c.Error(err)
		s.logger.Error("failed to send contact email", zap.Error(err))

		body := gin.H{"error": "Failed to send email"}
		if s.config.Development {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	metrics.EmailsTotal.WithLabelValues("sent").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully!"})
}
