package middleware

import (
	"bytes"
	"io"
	"net/http"
	"regexp"

	"github.com/collabflow/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

const auditBodyLimit = 2000

var sensitiveJSON = regexp.MustCompile(`(?i)("(?:password|token|secret)"\s*:\s*)"[^"]*"`)

// AuditLog writes one audit entry per mutating request (POST, PUT, PATCH,
// DELETE) after the handler ran. Credential values in the body are masked.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			body = maskSensitiveFields(truncate(string(raw), auditBodyLimit))
		}

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= http.StatusBadRequest {
			event = logger.Warn()
		}
		if userID := GetUserID(c); userID > 0 {
			event = event.Uint("user_id", userID).Str("email", GetEmail(c))
		}
		event.
			Bool("audit", true).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("ip", c.ClientIP()).
			Str("body", body).
			Msg("audit")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...[truncated]"
}

// maskSensitiveFields replaces credential string values in a JSON body.
func maskSensitiveFields(body string) string {
	return sensitiveJSON.ReplaceAllString(body, `$1"***"`)
}
