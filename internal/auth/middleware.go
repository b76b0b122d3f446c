package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperrors"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userID"

type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Middleware validates the Authorization header and stores the caller's id.
func Middleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, "missing authorization")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abort(c, "invalid authorization header")
			return
		}

		userID, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abort(c, "invalid token")
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": apperrors.CodeUnauthenticated})
}
