package coverletters

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

// RegisterRoutes attaches cover letter routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/applications/:id/cover-letters")
	g.POST("", h.generate)
	g.GET("", h.list)
	g.GET("/active", h.active)
	g.POST("/:versionId/activate", h.activate)
	g.DELETE("/:versionId", h.delete)
}

func (h *Handler) generate(c *gin.Context) {
	c.Set(middleware.LogKeyTaskType, string(prompts.TaskCoverLetter))
	var req GenerateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, string(generation.CodeInvalidInput), "invalid request body", nil)
			return
		}
	}

	v, err := h.Svc.Generate(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req)
	if err != nil {
		generation.RespondError(c, err)
		return
	}
	c.Set(middleware.LogKeyVersionID, v.ID)
	respond.Created(c, v)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		generation.RespondError(c, err)
		return
	}
	respond.List(c, list)
}

func (h *Handler) active(c *gin.Context) {
	v, err := h.Svc.GetActive(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		generation.RespondError(c, err)
		return
	}
	respond.OK(c, v)
}

func (h *Handler) activate(c *gin.Context) {
	c.Set(middleware.LogKeyVersionID, c.Param("versionId"))
	v, err := h.Svc.Activate(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), c.Param("versionId"))
	if err != nil {
		generation.RespondError(c, err)
		return
	}
	respond.OK(c, v)
}

func (h *Handler) delete(c *gin.Context) {
	c.Set(middleware.LogKeyVersionID, c.Param("versionId"))
	promoted, err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), c.Param("versionId"))
	if err != nil {
		generation.RespondError(c, err)
		return
	}
	respond.OK(c, gin.H{"promoted": promoted})
}
