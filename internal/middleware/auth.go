package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vidvault/backend/internal/auth"
	"github.com/vidvault/backend/pkg/response"
)

const (
	// ContextUserEmail is the key for the verified owner email in gin context.
	ContextUserEmail = "user_email"
	// ContextUsername is the key for the verified username in gin context.
	ContextUsername = "username"
)

// Auth returns a middleware that validates the bearer token and sets the
// caller identity in context.
func Auth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		ident, err := verifier.Verify(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserEmail, ident.Email)
		c.Set(ContextUsername, ident.Username)
		c.Next()
	}
}
