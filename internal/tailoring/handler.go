package tailoring

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobtracker-backend/internal/generation"
	"jobtracker-backend/internal/prompts"
	"jobtracker-backend/internal/shared/server/middleware"
	"jobtracker-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches resume version routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes/:id/tailor", h.tailor)
	rg.GET("/resumes/:id/versions", h.list)
	rg.GET("/resume-versions/:id", h.get)
	rg.DELETE("/resume-versions/:id", h.delete)
}

func (h *Handler) tailor(c *gin.Context) {
	c.Set(middleware.LogKeyTaskType, string(prompts.TaskResumeTailor))
	var req TailorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, string(generation.CodeInvalidInput), "invalid request body", nil)
		return
	}
	req.MasterResumeID = c.Param("id")

	rv, err := h.Svc.Tailor(c.Request.Context(), middleware.UserIDFromContext(c), req)
	if err != nil {
		generation.RespondError(c, err)
		return
	}
	c.Set(middleware.LogKeyVersionID, rv.ID)
	respond.Created(c, rv)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		generation.RespondError(c, err)
		return
	}
	respond.List(c, list)
}

func (h *Handler) get(c *gin.Context) {
	rv, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		generation.RespondError(c, err)
		return
	}
	respond.OK(c, rv)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		generation.RespondError(c, err)
		return
	}
	respond.NoContent(c)
}
