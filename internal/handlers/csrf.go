package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CSRFToken issues a token bound to the caller's address and user agent,
// replacing any earlier one.
func (h HandlerSet) CSRFToken(c *gin.Context) {
	token, err := h.guard.Issue(h.guard.Fingerprint(c.ClientIP(), c.Request.UserAgent()))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"csrfToken": token})
}
