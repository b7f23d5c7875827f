package middleware

import (
	"net/http"

	"github.com/debdutta777/noobwriter-sub000/internal/domain"
	"github.com/debdutta777/noobwriter-sub000/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RequireAdmin gates a route on the caller's profile role. Requires JWT to
// run first. Failures are a uniform "access denied" regardless of whether
// the resource exists.
func RequireAdmin(db *pgxpool.Pool) gin.HandlerFunc {
	profiles := repository.NewProfileRepository(db)

	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		userID, ok := userIDVal.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		role, err := profiles.GetRole(c.Request.Context(), userID)
		if err != nil || role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		c.Next()
	}
}
