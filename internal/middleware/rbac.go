package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edulearn/report-gateway/internal/models"
	appErrors "github.com/edulearn/report-gateway/pkg/errors"
	"github.com/edulearn/report-gateway/pkg/response"
)

// RequireRoles allows only callers whose validated token carries one of the
// given roles. It must run after JWT, which puts the claims on the context.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
