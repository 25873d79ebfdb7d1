package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"concord-gateway/internal/auth"
)

// WSAuth authenticates WebSocket upgrade requests. Browsers cannot set
// headers on WebSocket connections, so the token travels as a query
// parameter instead.
func WSAuth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
			return
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(identityKey, identity)
		c.Set("user_id", identity.UserID)
		c.Next()
	}
}
