package lookup

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/telehealth-api/internal/service/lookup"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

type Handler struct {
	service *lookup.Service
}

func NewHandler(service *lookup.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/increments", h.ListIncrements)
	r.GET("/locations", h.ListLocations)
}

func (h *Handler) ListIncrements(c *gin.Context) {
	increments, err := h.service.Increments(c.Request.Context())
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, increments)
}

func (h *Handler) ListLocations(c *gin.Context) {
	locations, err := h.service.Locations(c.Request.Context())
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, locations)
}
