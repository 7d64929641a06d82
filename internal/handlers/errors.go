package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timesheets/internal/middleware"
	"timesheets/internal/models"
	"timesheets/internal/security"
	"timesheets/internal/service"
	"timesheets/internal/workorder"
)

// respondError maps service errors onto the API's error classes. Anything
// unrecognized is logged and reported as a bare 500.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var validation *service.ValidationError
	var transition *workorder.TransitionError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": validation.Fields})
	case errors.Is(err, workorder.ErrInvalidRange),
		errors.Is(err, workorder.ErrInvalidTime),
		errors.Is(err, workorder.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": gin.H{}, "message": err.Error()})

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrRefreshTokenNotFound),
		errors.Is(err, service.ErrRefreshTokenExpired),
		errors.Is(err, service.ErrResetTokenInvalid),
		errors.Is(err, service.ErrIdentityNotFound),
		errors.Is(err, security.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})

	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_transition", "status": transition.Status})
	case errors.Is(err, workorder.ErrLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_transition", "status": models.WorkOrderStatusApproved})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})

	case errors.Is(err, service.ErrWorkOrderNotFound),
		errors.Is(err, service.ErrExpenseNotFound),
		errors.Is(err, service.ErrWorkerNotFound),
		errors.Is(err, service.ErrSiteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})

	case errors.Is(err, service.ErrReceiptsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "receipts_unavailable"})

	default:
		h.log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("request_id", middleware.RequestIDFrom(c)).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
}
