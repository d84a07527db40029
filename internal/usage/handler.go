package usage

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobtracker-backend/internal/shared/server/middleware"
	"jobtracker-backend/internal/shared/server/respond"
)

// Handler exposes an owner's provider usage summary.
type Handler struct {
	Store Store
}

// NewHandler constructs a usage handler.
func NewHandler(store Store) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes wires usage routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/usage", h.summary)
}

func (h *Handler) summary(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	s, err := h.Store.Summary(c.Request.Context(), ownerID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to load usage", nil)
		return
	}
	respond.JSON(c, http.StatusOK, s)
}
