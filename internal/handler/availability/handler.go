package availability

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/availability"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

type Handler struct {
	service *availability.Service
}

func NewHandler(service *availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	settings := r.Group("/settings")
	{
		settings.GET("/staff-availability/:staff_user_id", h.GetAvailability)
		settings.POST("/staff-availability/:staff_user_id", h.SetAvailability)
	}
}

func (h *Handler) GetAvailability(c *gin.Context) {
	staffUserID, err := uuid.Parse(c.Param("staff_user_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid staff user ID")
		return
	}

	ranges, err := h.service.GetAvailability(c.Request.Context(), staffUserID)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	if len(ranges) == 0 {
		httputil.NoContent(c)
		return
	}
	httputil.Success(c, model.AvailabilityResponse{Availability: ranges})
}

func (h *Handler) SetAvailability(c *gin.Context) {
	staffUserID, err := uuid.Parse(c.Param("staff_user_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid staff user ID")
		return
	}

	var req model.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	if err := h.service.SetAvailability(c.Request.Context(), staffUserID, &req); err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Created(c, nil)
}
