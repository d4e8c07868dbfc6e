package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/auth"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// RequireAuth accepts a bearer access token and stores the caller in the context.
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(raw) == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		token, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				unauthorized(c, "token expired")
				return
			}
			unauthorized(c, "invalid token")
			return
		}

		switch t := token.(type) {
		case auth.AccessToken:
			c.Set(ContextUserID, t.Subject)
			c.Set(ContextUserRole, t.Role)
			c.Next()
		case auth.RefreshToken:
			unauthorized(c, "refresh tokens cannot authorize requests")
		default:
			unauthorized(c, "unsupported token")
		}
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(ContextUserRole)
		current, _ := role.(models.UserRole)
		for _, allowed := range roles {
			if current == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: "requires role " + joinRoles(roles),
			Code:    CodeForbidden,
		})
	}
}

// RequestTimeout bounds the request context; store calls observe it through WithContext.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func unauthorized(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Message: "User not authenticated",
		Details: reason,
		Code:    CodeUnauthorized,
	})
}

func joinRoles(roles []models.UserRole) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
