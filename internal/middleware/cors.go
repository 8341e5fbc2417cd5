package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS sets Cross-Origin Resource Sharing headers for the allowed origins.
// "*" allows any origin. Preflight OPTIONS requests end here with 204.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	anyOrigin := false
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		originSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		c.Writer.Header().Add("Vary", "Origin")

		_, allowed := originSet[origin]
		if origin != "" && (allowed || anyOrigin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "X-API-Key, Content-Type")
			c.Header("Access-Control-Expose-Headers", "X-Icon-URL, X-Icon-Size")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
