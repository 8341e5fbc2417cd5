// Package middleware contains the gin middleware used by the API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextKeyAPIKey is the gin context key holding the caller's validated key.
const ContextKeyAPIKey = "api_key"

// APIKeyAuth accepts requests carrying one of validKeys in the X-API-Key header
// or the api_key query parameter (for <img src> usage). An empty key list
// disables the check.
func APIKeyAuth(validKeys []string) gin.HandlerFunc {
	return keyAuth(validKeys, http.StatusUnauthorized, "API key")
}

// AdminKeyAuth is APIKeyAuth for admin routes. A wrong key is 403 rather than 401.
func AdminKeyAuth(adminKeys []string) gin.HandlerFunc {
	return keyAuth(adminKeys, http.StatusForbidden, "admin API key")
}

func keyAuth(keys []string, invalidStatus int, label string) gin.HandlerFunc {
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}

	return func(c *gin.Context) {
		key := requestKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + label})
			return
		}
		if _, ok := keySet[key]; !ok {
			c.AbortWithStatusJSON(invalidStatus, gin.H{"error": "invalid " + label})
			return
		}

		c.Set(ContextKeyAPIKey, key)
		c.Next()
	}
}

func requestKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	return c.Query("api_key")
}
