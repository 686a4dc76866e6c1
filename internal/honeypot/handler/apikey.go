package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIKeyHeader is the header carrying the shared secret. The name is matched
// case-insensitively.
const APIKeyHeader = "x-api-key"

// unauthorizedBody is the fixed 401 payload.
var unauthorizedBody = gin.H{"status": "fail", "message": "Unauthorized"}

// apiKeyFromRequest returns the value of the first header whose name equals
// APIKeyHeader ignoring case.
func apiKeyFromRequest(r *http.Request) (string, bool) {
	if v := r.Header.Get(APIKeyHeader); v != "" {
		return v, true
	}
	for k, vs := range r.Header {
		if strings.EqualFold(k, APIKeyHeader) && len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

// RequireAPIKey returns a Gin middleware that rejects requests whose
// x-api-key header does not equal apiKey.
func RequireAPIKey(apiKey string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, present := apiKeyFromRequest(c.Request)
		match := present && got == apiKey

		logger.Debug("api key check",
			zap.String("path", c.Request.URL.Path),
			zap.Bool("key_present", present),
			zap.Bool("key_match", match),
		)

		if !match {
			RecordAuthFailure(c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
			return
		}
		c.Next()
	}
}
