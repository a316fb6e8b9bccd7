package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/fieldservice/internal/inventory"
	"example.com/backstage/services/fieldservice/internal/repository"
	"example.com/backstage/services/fieldservice/internal/service"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// respondError maps service errors to HTTP status codes and writes the
// response
func respondError(c *gin.Context, err error) {
	var (
		validation   *service.ValidationError
		precondition *service.PreconditionError
		capacity     *service.CapacityError
		conflict     *service.ConflictError
	)

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "resource not found", Code: "NOT_FOUND"})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: validation.Error(), Code: "VALIDATION_ERROR"})
	case errors.As(err, &precondition):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: precondition.Error(), Code: "INVALID_STATE"})
	case errors.As(err, &capacity):
		c.JSON(http.StatusConflict, ErrorResponse{Message: capacity.Error(), Code: "NO_CAPACITY"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: conflict.Error(), Code: "CONFLICT"})
	case errors.Is(err, inventory.ErrInsufficientStock):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "insufficient stock", Code: "INSUFFICIENT_STOCK"})
	default:
		log.Error().Err(err).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal server error", Code: "INTERNAL_ERROR"})
	}
}
