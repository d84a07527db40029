package respond

import (
	"github.com/gin-gonic/gin"

	"jobtracker-backend/internal/shared/telemetry"
)

// ErrorCodeKey is the gin context key Error records the code under, so the
// request log line can carry it.
const ErrorCodeKey = "errorCode"

// ErrorBody is the error envelope every endpoint returns.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts the request with status and the error envelope. 5xx are logged
// at error level, everything else at warn.
func Error(c *gin.Context, status int, code, message string, details any) {
	reqID := c.GetString("requestId")
	c.Set(ErrorCodeKey, code)

	fields := map[string]any{
		"status":     status,
		"code":       code,
		"route":      c.FullPath(),
		"method":     c.Request.Method,
		"request_id": reqID,
	}
	if owner := c.GetString("userId"); owner != "" {
		fields["user_id"] = owner
	}
	if status >= 500 {
		fields["message"] = message
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: reqID,
	}})
}
