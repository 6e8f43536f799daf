// README: Firebase ID-token auth middleware.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fixgo/internal/infra"
)

const (
	// Context keys set for downstream handlers.
	KeyUID  = "auth_uid"
	KeyRole = "auth_role"
)

// Auth verifies the Bearer token on every request and stores the caller's
// uid and marketplace role ("client" or "provider") in the request context.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(KeyUID, token.UID)
		if role, ok := token.Claims["role"].(string); ok {
			c.Set(KeyRole, role)
		}
		c.Next()
	}
}

// UID returns the verified caller id, empty when unauthenticated.
func UID(c *gin.Context) string {
	return c.GetString(KeyUID)
}

// HasRole reports whether the verified token carries the role claim.
func HasRole(c *gin.Context, role string) bool {
	return c.GetString(KeyRole) == role
}
