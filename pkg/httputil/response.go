package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/telehealth-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a 200 response with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Status: "success", Data: data})
}

// Created sends a 201 response with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Status: "success", Data: data})
}

// NoContent sends an empty 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error maps an application error onto its HTTP status. Unknown error
// types surface as 500 without leaking internals.
func Error(c *gin.Context, err error) {
	if appErr, ok := errors.As(err); ok {
		c.JSON(appErr.HTTPStatus(), Response{Status: "error", Message: appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{Status: "error", Message: "internal server error"})
}

// BadRequest sends a 400 with the given message, for binding failures.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Status: "error", Message: message})
}
