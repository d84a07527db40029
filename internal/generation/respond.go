package generation

import (
	"github.com/gin-gonic/gin"

	"jobtracker-backend/internal/shared/server/respond"
)

// RespondError writes err as a standardized error response.
func RespondError(c *gin.Context, err error) {
	ge := Translate(err)
	details := gin.H{"retryable": ge.Retryable}
	if ge.Bound != "" {
		details["bound"] = ge.Bound
	}
	respond.Error(c, ge.HTTPStatus(), string(ge.Code), ge.Message, details)
}
