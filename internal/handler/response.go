package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zologic/city-ride/internal/repository"
	"github.com/zologic/city-ride/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var minOrder *service.MinOrderError
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrRideNotFound),
		errors.Is(err, service.ErrDriverNotFound),
		errors.Is(err, service.ErrDiscountNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrMissingAddress),
		errors.Is(err, service.ErrMissingPassenger),
		errors.Is(err, service.ErrMissingPaymentReference),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidDriver),
		errors.Is(err, service.ErrInvalidDriverStatus),
		errors.Is(err, service.ErrInvalidDiscount),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrMalformedReport):
		return http.StatusBadRequest

	// Discount rejections surface as unprocessable rather than not-found so
	// the booking form can show the precise reason.
	case errors.Is(err, service.ErrDiscountNotYetValid),
		errors.Is(err, service.ErrDiscountExpired),
		errors.Is(err, service.ErrDiscountExhausted),
		errors.As(err, &minOrder):
		return http.StatusUnprocessableEntity

	// Conflict errors
	case errors.Is(err, service.ErrRideTerminal),
		errors.Is(err, service.ErrDuplicateVehicle),
		errors.Is(err, service.ErrDuplicateCode),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict

	// Signature failures on inbound webhooks
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
