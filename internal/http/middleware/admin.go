package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKey guards routes that start batch runs. The key is read from
// X-Admin-Key or an "Authorization: Bearer" header. With no key configured
// the routes are closed.
func AdminKey(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required == "" {
			abortAdmin(c, http.StatusForbidden, "ADMIN_DISABLED", "Batch runs over HTTP need ADMIN_KEY to be set")
			return
		}
		if subtle.ConstantTimeCompare([]byte(presentedKey(c)), []byte(required)) != 1 {
			abortAdmin(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid admin key")
			return
		}
		c.Next()
	}
}

func presentedKey(c *gin.Context) string {
	if key := c.GetHeader(AdminKeyHeader); key != "" {
		return key
	}
	auth := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func abortAdmin(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": nil,
		},
	})
}
