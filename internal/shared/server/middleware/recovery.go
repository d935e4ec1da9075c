package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"readiness-backend/internal/shared/metrics"
	"readiness-backend/internal/shared/server/respond"
	"readiness-backend/internal/shared/telemetry"
)

// Recovery turns handler panics into a 500 error envelope. A panic caused
// by the client hanging up is logged without a response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
				"session_id": c.GetString(SessionIDKey),
				"step":       c.GetString(StepKey),
			}
			if brokenPipe(rec) {
				telemetry.Warn("request.client_gone", fields)
				c.Abort()
				return
			}
			metrics.IncHTTPPanic()
			fields["stack"] = string(debug.Stack())
			telemetry.Error("panic", fields)
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}

func brokenPipe(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var syscallErr *os.SyscallError
	if !errors.As(opErr, &syscallErr) {
		return false
	}
	msg := strings.ToLower(syscallErr.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
