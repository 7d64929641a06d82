package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timesheets/internal/csrf"
)

const CSRFHeader = "X-CSRF-Token"

// CSRF requires a token issued to the caller's fingerprint on every
// state-changing request. Anything that fails to validate is refused.
func CSRF(guard *csrf.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		fingerprint := guard.Fingerprint(c.ClientIP(), c.Request.UserAgent())
		if !guard.Validate(fingerprint, c.GetHeader(CSRFHeader)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid_csrf_token"})
			return
		}

		c.Next()
	}
}
