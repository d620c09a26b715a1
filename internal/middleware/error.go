package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorHandler logs errors handlers attached with c.Error and, when nothing
// was written yet, answers with a generic 500. Panics are recovered the same way.
func ErrorHandler(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(logrus.Fields{
					"panic":  rec,
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
				}).Error("recovered from panic")
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
				} else {
					c.Abort()
				}
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		for _, err := range c.Errors {
			log.WithError(err.Err).WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Error("request failed")
		}
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
	}
}
