package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kythia/questapi/internal/errors"
)

// ErrorHandler renders the last error pushed with c.Error as
// {"error": message, "status": code}.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := apperrors.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"path", c.Request.URL.Path,
				"code", apperrors.Code(err),
				"request_id", GetRequestID(c),
				"error", err,
			)
		}
		c.JSON(status, gin.H{"error": apperrors.Message(err), "status": status})
	}
}

// NotFound answers routes that do not exist.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "The requested endpoint does not exist",
			"status":  http.StatusNotFound,
		})
	}
}
