package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/checks_backend/models"
	"bitbucket.org/mmdatafocus/checks_backend/utils"
	"github.com/gin-gonic/gin"
)

// RequireStaff gates the internal console and reconcile endpoints. It accepts
// either auth path: a JWT that already put a role in the context, or a redis
// session resolved to a staff user.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if role, ok := utils.GetRoleFromContext(ctx); ok {
			if !models.UserRole(role).IsStaff() {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				c.Abort()
				return
			}
			c.Next()
			return
		}

		user, err := models.SessionUser(ctx)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if !user.Role.IsStaff() {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			c.Abort()
			return
		}

		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetRoleInContext(ctx, string(user.Role))
		ctx = utils.SetUserNameInContext(ctx, user.Name)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin builds on RequireStaff's context: only full admins may resolve
// review-queue entries destructively or manage users.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		role, ok := utils.GetRoleFromContext(ctx)
		if !ok {
			user, err := models.SessionUser(ctx)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				c.Abort()
				return
			}
			role = string(user.Role)
		}
		if models.UserRole(role) != models.UserRoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}
