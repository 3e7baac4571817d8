package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"scan2cal/calendar-app/internal/extraction"
	"scan2cal/calendar-app/internal/logging"
	"scan2cal/calendar-app/internal/service"
)

// respondError is the single place service errors become HTTP responses.
// Anything unclassified is logged and reported as an opaque 500.
func respondError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		abortWithError(c, http.StatusUnauthorized, "unauthorized")
	case errors.As(err, &vErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": vErr.FieldErrors})
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrConflict):
		abortWithError(c, http.StatusConflict, service.ErrConflict.Error())
	case extraction.IsInvalidModelOutput(err):
		abortWithError(c, http.StatusBadGateway, "language model returned invalid output")
	default:
		ctx := c.Request.Context()
		logging.FromContextOr(ctx, nil).Error(ctx, "request failed", "kind", service.ErrorKind(err), "error", err)
		abortWithError(c, http.StatusInternalServerError, "internal error")
	}
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	abortWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
}
