package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"
)

// StatusFor maps an error to its HTTP status by kind
func StatusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errors.NotValid), errors.Is(err, errors.BadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errors.Unauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errors.Forbidden):
		return http.StatusForbidden
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.AlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errors.QuotaLimitExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler writes the last error attached to the context as
// {"message": ..., "stack": ...}. Stacks and internal messages are only
// exposed in development.
func ErrorHandler(development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := StatusFor(err)

		body := gin.H{"message": err.Error()}
		if status == http.StatusInternalServerError {
			log.Printf("❌ %s %s: %s", c.Request.Method, c.Request.URL.Path, errors.ErrorStack(err))
			if !development {
				body["message"] = "internal server error"
			}
		}
		if development {
			body["stack"] = errors.ErrorStack(err)
		}
		c.JSON(status, body)
	}
}

// Recovery turns a panic into a 500 written by ErrorHandler, so it must be
// registered after it.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		c.Error(errors.Errorf("panic: %v", recovered))
		c.Abort()
	})
}

// NoRoute answers unknown paths with the usual JSON error body
func NoRoute(c *gin.Context) {
	c.Error(errors.NotFoundf("route %s %s", c.Request.Method, c.Request.URL.Path))
	c.Abort()
}
