package booking

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/booking"
	"github.com/jwalitptl/telehealth-api/internal/service/scheduler"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

type Handler struct {
	service   *booking.Service
	scheduler *scheduler.Service
}

func NewHandler(service *booking.Service, schedulerSvc *scheduler.Service) *Handler {
	return &Handler{service: service, scheduler: schedulerSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/client/time-select/:client_user_id", h.TimeSelect)

	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.PUT("/:booking_id", h.UpdateBooking)
		bookings.DELETE("", h.DeleteBooking)
		bookings.GET("/:booking_id/access-token", h.AccessToken)
	}

	r.GET("/chat-room/access-token", h.ChatToken)
}

// TimeSelect offers bookable windows for the client's queued request.
func (h *Handler) TimeSelect(c *gin.Context) {
	clientUserID, err := uuid.Parse(c.Param("client_user_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid client user ID")
		return
	}

	callerID, ok := middleware.UserIDFromContext(c)
	if !ok {
		httputil.BadRequest(c, "missing authentication context")
		return
	}
	if callerID != clientUserID && !middleware.IsStaffContext(c) {
		httputil.Error(c, errors.Forbidden("clients may only request their own time selection", nil))
		return
	}

	resp, err := h.scheduler.TimeSelect(c.Request.Context(), clientUserID)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, resp)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	clientUserID, err := uuid.Parse(c.Query("client_user_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid client user ID")
		return
	}
	staffUserID, err := uuid.Parse(c.Query("staff_user_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid staff user ID")
		return
	}

	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	callerID, ok := middleware.UserIDFromContext(c)
	if !ok {
		httputil.BadRequest(c, "missing authentication context")
		return
	}

	resp, err := h.service.CreateBooking(c.Request.Context(), callerID, clientUserID, staffUserID, &req)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Created(c, resp)
}

func (h *Handler) ListBookings(c *gin.Context) {
	callerID, ok := middleware.UserIDFromContext(c)
	if !ok {
		httputil.BadRequest(c, "missing authentication context")
		return
	}

	var clientUserID, staffUserID *uuid.UUID
	if raw := c.Query("client_user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.BadRequest(c, "invalid client user ID")
			return
		}
		clientUserID = &id
	}
	if raw := c.Query("staff_user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.BadRequest(c, "invalid staff user ID")
			return
		}
		staffUserID = &id
	}

	resp, err := h.service.ListBookings(c.Request.Context(), callerID, clientUserID, staffUserID)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, resp)
}

func (h *Handler) UpdateBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid booking ID")
		return
	}

	var req model.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	callerID, ok := middleware.UserIDFromContext(c)
	if !ok {
		httputil.BadRequest(c, "missing authentication context")
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), callerID, bookingID, req.Status)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, updated)
}

func (h *Handler) DeleteBooking(c *gin.Context) {
	var req model.DeleteBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	callerID, ok := middleware.UserIDFromContext(c)
	if !ok {
		httputil.BadRequest(c, "missing authentication context")
		return
	}

	if err := h.service.DeleteBooking(c.Request.Context(), callerID, &req); err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.NoContent(c)
}

// AccessToken re-mints the video/chat token for a booking participant.
func (h *Handler) AccessToken(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid booking ID")
		return
	}

	callerID, ok := middleware.UserIDFromContext(c)
	if !ok {
		httputil.BadRequest(c, "missing authentication context")
		return
	}

	token, err := h.service.AccessToken(c.Request.Context(), callerID, bookingID)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, gin.H{"access_token": token})
}

// ChatToken grants chat access to the conversation between a client and
// a staff member, independent of any booking.
func (h *Handler) ChatToken(c *gin.Context) {
	clientUserID, err := uuid.Parse(c.Query("client_user_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid client user ID")
		return
	}
	staffUserID, err := uuid.Parse(c.Query("staff_user_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid staff user ID")
		return
	}

	callerID, ok := middleware.UserIDFromContext(c)
	if !ok {
		httputil.BadRequest(c, "missing authentication context")
		return
	}

	token, err := h.service.ChatToken(c.Request.Context(), callerID, clientUserID, staffUserID)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, gin.H{"access_token": token})
}
