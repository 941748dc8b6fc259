package middleware

import (
	"net/http"

	"copro-smart-go/internal/model"

	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through only when the authenticated user
// has role. It must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ContextUserKey)
		if !exists {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		user, ok := v.(*model.User)
		if !ok {
			abort(c, http.StatusInternalServerError, "unexpected user type in context")
			return
		}
		if user.Role != role {
			abort(c, http.StatusForbidden, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// AdminAuthMiddleware is RequireRole(model.RoleAdmin).
func AdminAuthMiddleware() gin.HandlerFunc {
	return RequireRole(model.RoleAdmin)
}
