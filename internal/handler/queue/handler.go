package queue

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/queue"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

var errForbiddenQueueAccess = errors.Forbidden("clients may only manage their own queue entry", nil)

type Handler struct {
	service *queue.Service
	authMw  *middleware.AuthMiddleware
}

func NewHandler(service *queue.Service, authMw *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, authMw: authMw}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	pool := r.Group("/queue/client-pool")
	{
		pool.GET("", h.authMw.RequireUserType(model.UserTypeStaff), h.ListPool)
		pool.GET("/:client_user_id", h.ListForClient)
		pool.POST("/:client_user_id", h.Enqueue)
		pool.DELETE("/:client_user_id", h.Delete)
	}
}

// ListPool returns the full pool in match order; staff only.
func (h *Handler) ListPool(c *gin.Context) {
	resp, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, resp)
}

func (h *Handler) ListForClient(c *gin.Context) {
	clientUserID, ok := h.clientFromPath(c)
	if !ok {
		return
	}

	resp, err := h.service.ListForClient(c.Request.Context(), clientUserID)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, resp)
}

func (h *Handler) Enqueue(c *gin.Context) {
	clientUserID, ok := h.clientFromPath(c)
	if !ok {
		return
	}

	var req model.QueueEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	entry, err := h.service.Enqueue(c.Request.Context(), clientUserID, &req)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Created(c, entry)
}

func (h *Handler) Delete(c *gin.Context) {
	clientUserID, ok := h.clientFromPath(c)
	if !ok {
		return
	}

	var req model.QueueEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	if err := h.service.Delete(c.Request.Context(), clientUserID, req.TargetDate, req.ProfessionType); err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.NoContent(c)
}

// clientFromPath parses the path id and checks the caller may act on it:
// clients only on themselves, staff on anyone.
func (h *Handler) clientFromPath(c *gin.Context) (uuid.UUID, bool) {
	clientUserID, err := uuid.Parse(c.Param("client_user_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid client user ID")
		return uuid.Nil, false
	}

	callerID, ok := middleware.UserIDFromContext(c)
	if !ok {
		httputil.BadRequest(c, "missing authentication context")
		return uuid.Nil, false
	}
	if callerID != clientUserID && !middleware.IsStaffContext(c) {
		httputil.Error(c, errForbiddenQueueAccess)
		return uuid.Nil, false
	}
	return clientUserID, true
}
