package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"ccstock-backend/internal/placement"
	"ccstock-backend/internal/scan"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, scan.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, placement.ErrInvalidMachineID),
		errors.Is(err, placement.ErrInvalidLocationID):
		return http.StatusBadRequest, placement.Code(err)
	case errors.Is(err, placement.ErrUnknownLocation):
		return http.StatusUnprocessableEntity, placement.Code(err)
	case errors.Is(err, placement.ErrUnknownMachine):
		return http.StatusNotFound, placement.Code(err)
	case errors.Is(err, placement.ErrDuplicateID):
		return http.StatusConflict, placement.Code(err)
	case errors.Is(err, placement.ErrPartialDelivery):
		return http.StatusInternalServerError, placement.Code(err)
	case errors.Is(err, placement.ErrStore):
		return http.StatusServiceUnavailable, placement.Code(err)
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// respondError writes err as {"error", "code"} plus any extra fields.
func respondError(c *gin.Context, err error, extra gin.H) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Str("code", code).Msg("request failed")
	}
	_ = c.Error(err)

	body := gin.H{"error": err.Error(), "code": code}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_request"})
}
