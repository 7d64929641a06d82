package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"timesheets/internal/security"
)

const identityKey = "identity"

// TokenVerifier is satisfied by *security.TokenIssuer.
type TokenVerifier interface {
	Verify(token string) (security.Identity, error)
}

// Auth rejects requests without a valid bearer access token and stores the
// verified identity on the context. Every failure gets the same body as a
// failed login.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c)
			return
		}

		identity, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
}

func CurrentIdentity(c *gin.Context) (security.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return security.Identity{}, false
	}
	identity, ok := value.(security.Identity)
	return identity, ok
}
