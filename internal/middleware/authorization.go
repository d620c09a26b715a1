package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Authorizer decides whether any of a user's roles may perform act on obj
type Authorizer interface {
	EnforceAny(roles []string, obj, act string) (bool, error)
}

// RequireRole checks the authenticated user's roles against the policy for
// the request path and method. It must run after AuthMiddleware.
func RequireRole(authorizer Authorizer, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errNoCredentials.Error()})
			return
		}

		allowed, err := authorizer.EnforceAny(user.Roles(), c.Request.URL.Path, c.Request.Method)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("authorization check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you do not have permission to perform this action"})
			return
		}

		c.Next()
	}
}
