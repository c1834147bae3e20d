package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CookieName is the admin session cookie.
const CookieName = "admin_session"

// TokenFromRequest returns the session token from the Authorization bearer
// header or, failing that, the session cookie.
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	token, err := c.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return token
}

// Middleware aborts with 401 unless the request carries a live session.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.Validate(c.Request.Context(), TokenFromRequest(c))
		if err == nil {
			c.Next()
			return
		}
		if !errors.Is(err, ErrInvalidSession) {
			s.logger.Error("session lookup failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}
