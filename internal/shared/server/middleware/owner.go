package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobtracker-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	ownerHeader  = "X-User-Id"
	maxOwnerSize = 128
)

// Owner reads the owner id placed on the request by the upstream
// authentication layer. Requests without one are rejected.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		ownerID := strings.TrimSpace(c.GetHeader(ownerHeader))
		if ownerID == "" || len(ownerID) > maxOwnerSize {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(userIDKey, ownerID)
		c.Next()
	}
}

// UserIDFromContext fetches the owner id set by Owner.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
