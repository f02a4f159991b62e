package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "spendcycle/internal/errors"
	"spendcycle/internal/logger"
)

// abortWithError writes the API error envelope and stops the chain. The
// request ID is echoed so callers can quote it when reporting a failure.
func abortWithError(c *gin.Context, status int, code, message string) {
	body := gin.H{"code": code, "message": message}
	if id := c.GetString(requestIDKey); id != "" {
		body["request_id"] = id
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// requestLogger scopes the global logger to the request.
func requestLogger(c *gin.Context) *zap.SugaredLogger {
	log := logger.Get().With("path", c.Request.URL.Path, "method", c.Request.Method)
	if id := c.GetString(requestIDKey); id != "" {
		log = log.With("request_id", id)
	}
	if owner := c.GetString("userID"); owner != "" {
		log = log.With("owner", owner)
	}
	return log
}

// ErrorHandler turns errors attached with c.Error into the JSON error
// envelope. Only the last error is reported. An AppError keeps its status
// and code; anything else becomes INTERNAL_ERROR with the cause logged only.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// handlers that already wrote a response own it
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			requestLogger(c).Errorw("unexpected error", "error", err)
			appErr = apperrors.ErrInternalServer
		} else if appErr.Internal != nil {
			requestLogger(c).Errorw("request failed",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
			)
		}

		abortWithError(c, appErr.StatusCode, appErr.Code, appErr.Message)
	}
}
