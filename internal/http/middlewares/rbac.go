package middlewares

import (
	"net/http"
	"slices"

	"github.com/geocoder89/salesdesk/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(allowed ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)
		if !ok || role == "" {
			abortUnauthorized(c, "Missing credentials")
			return
		}

		if !slices.Contains(allowed, role) {
			abort(c, http.StatusForbidden, "forbidden", "Forbidden")
			return
		}
		c.Next()
	}
}
