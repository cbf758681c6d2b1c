package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/widgetml/gatekeeper/core"
	"github.com/widgetml/gatekeeper/service"
)

const identityContextKey = "identity"

// AuthMiddleware creates middleware that gates requests on a session
// capability via the auth gate. Internal rejection reasons stay in the
// server log; the client only sees unauthenticated or forbidden.
func AuthMiddleware(gate *service.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")

		identity, err := gate.Authorize(c.Request.Context(), token, core.CapabilitySession)
		if err != nil {
			if err == core.ErrForbidden {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
			}
			return
		}

		c.Set(identityContextKey, identity)

		c.Next()
	}
}

// identityFromContext reads the identity stored by AuthMiddleware.
func identityFromContext(c *gin.Context) (core.Identity, bool) {
	v, exists := c.Get(identityContextKey)
	if !exists {
		return 0, false
	}
	identity, ok := v.(core.Identity)
	return identity, ok
}
