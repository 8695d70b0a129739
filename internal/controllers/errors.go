package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shortlink-be/internal/service"
)

// respondError maps service errors to HTTP responses. Unknown errors are
// attached to the context for the request logger and reported as 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this resource"})
	case errors.Is(err, service.ErrMalformedURL):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Stored destination is not a valid URL"})
	case errors.Is(err, service.ErrGenerationExhausted):
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not allocate a short code, please retry"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"details": err.Error(),
	})
}
