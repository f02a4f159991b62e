package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PipelineAuthMiddleware creates a Gin middleware that validates the X-API-Key
// header against the configured pipeline API keys. More than one key may be
// active while a key is being rotated.
func PipelineAuthMiddleware(apiKeys []string) gin.HandlerFunc {
	configured := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			configured = append(configured, []byte(k))
		}
	}

	return func(c *gin.Context) {
		if len(configured) == 0 {
			abortWithError(c, http.StatusServiceUnavailable, "PIPELINE_NOT_CONFIGURED", "Pipeline endpoints are not configured")
			return
		}
		key := []byte(c.GetHeader("X-API-Key"))
		// every candidate is compared so timing does not reveal which key matched
		match := 0
		for _, want := range configured {
			match |= subtle.ConstantTimeCompare(key, want)
		}
		if match != 1 {
			abortWithError(c, http.StatusUnauthorized, "INVALID_API_KEY", "Invalid or missing API key")
			return
		}
		c.Set(callerKey, "pipeline")
		c.Next()
	}
}
