package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fragmentado/catalog/internal/spotify"
	"github.com/fragmentado/catalog/internal/store"
)

// statusFor maps the core error taxonomy onto HTTP statuses:
// validation 400, conflicts 409, missing entities 404, provider rate
// limits 429, other provider failures 502, storage failures 500.
func statusFor(err error) int {
	var validationErr *store.ValidationError
	var conflictErr *store.ConflictError
	var rateErr *spotify.RateLimitedError
	var upstreamErr *spotify.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests
	case errors.As(err, &upstreamErr), errors.Is(err, spotify.ErrInvalidPageSize):
		return http.StatusBadGateway
	case errors.Is(err, spotify.ErrNotConfigured):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusNotFound {
		c.JSON(status, gin.H{"error": "not found"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
