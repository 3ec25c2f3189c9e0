package bookingdetail

import (
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/bookingdetail"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

type Handler struct {
	service *bookingdetail.Service
}

func NewHandler(service *bookingdetail.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	details := r.Group("/bookings/:booking_id/details")
	{
		details.POST("", h.Create)
		details.GET("", h.Get)
		details.PUT("", h.Update)
		details.DELETE("", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	bookingID, callerID, ok := h.requestIDs(c)
	if !ok {
		return
	}
	upload, ok := h.parseForm(c)
	if !ok {
		return
	}

	detail, err := h.service.Create(c.Request.Context(), callerID, bookingID, upload)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Created(c, detail)
}

func (h *Handler) Get(c *gin.Context) {
	bookingID, callerID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	resp, err := h.service.Get(c.Request.Context(), callerID, bookingID)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, resp)
}

func (h *Handler) Update(c *gin.Context) {
	bookingID, callerID, ok := h.requestIDs(c)
	if !ok {
		return
	}
	upload, ok := h.parseForm(c)
	if !ok {
		return
	}

	detail, err := h.service.Update(c.Request.Context(), callerID, bookingID, upload)
	if err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.Success(c, detail)
}

func (h *Handler) Delete(c *gin.Context) {
	bookingID, callerID, ok := h.requestIDs(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), callerID, bookingID); err != nil {
		httputil.Error(c, err)
		return
	}
	httputil.NoContent(c)
}

func (h *Handler) requestIDs(c *gin.Context) (bookingID, callerID uuid.UUID, ok bool) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		httputil.BadRequest(c, "invalid booking ID")
		return uuid.Nil, uuid.Nil, false
	}
	callerID, found := middleware.UserIDFromContext(c)
	if !found {
		httputil.BadRequest(c, "missing authentication context")
		return uuid.Nil, uuid.Nil, false
	}
	return bookingID, callerID, true
}

// parseForm turns the multipart form into an upload. A text field that
// is present but empty records an explicit clear; an absent field
// leaves the stored value alone.
func (h *Handler) parseForm(c *gin.Context) (*model.BookingDetailUpload, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		httputil.BadRequest(c, "expected multipart form data")
		return nil, false
	}

	upload := &model.BookingDetailUpload{}

	if values, ok := form.Value["details"]; ok && len(values) > 0 {
		upload.Details = &values[0]
	}
	if values, ok := form.Value["location_id"]; ok && len(values) > 0 {
		id, err := strconv.Atoi(values[0])
		if err != nil {
			httputil.BadRequest(c, "invalid location ID")
			return nil, false
		}
		upload.LocationID = &id
	}

	upload.Images, upload.ClearImages = mediaField(form, "images")
	voices, clearVoice := mediaField(form, "voice")
	upload.ClearVoice = clearVoice
	if len(voices) > model.MaxDetailVoice {
		httputil.BadRequest(c, "at most one voice recording may be attached")
		return nil, false
	}
	if len(voices) == 1 {
		upload.Voice = voices[0]
	}
	return upload, true
}

// mediaField returns the files for a form field and whether the field
// was sent explicitly empty. Clients clear stored media by sending the
// field name with no file attached.
func mediaField(form *multipart.Form, name string) ([]*multipart.FileHeader, bool) {
	files, filesPresent := form.File[name]
	_, valuePresent := form.Value[name]
	if len(files) > 0 {
		return files, false
	}
	return nil, filesPresent || valuePresent
}
