package handler

import (
	"errors"
	"net/http"

	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps service errors onto the response envelope. Denials
// stay opaque; validation failures carry their field messages.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var serr *service.StockError

	switch {
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied"))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Not found"))
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, response.ValidationError(http.StatusBadRequest, verr.Fields))
	case errors.As(err, &serr):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, serr.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}

// pathID parses the :id path parameter; a malformed id responds 400 and
// reports false.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid id"))
		return uuid.Nil, false
	}
	return id, true
}
