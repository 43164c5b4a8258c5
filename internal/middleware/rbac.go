package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
	"github.com/noah-isme/heritage-api/pkg/response"
)

// RequireRoles admits only users holding one of roles. An empty list admits any authenticated user.
// A missing user is an authentication failure; a disallowed role is an authorization failure.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if len(allowed) == 0 {
			c.Next()
			return
		}
		if _, ok := allowed[user.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role for this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}
