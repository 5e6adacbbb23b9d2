package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserAuth validates user JWT tokens and injects the opaque identity into
// the context. Token issuance belongs to the external auth provider; user
// ids are plain strings here.
func UserAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearerClaims(c, secret)
		if !ok {
			return
		}

		userID, ok := claims["userId"].(string)
		if !ok || strings.TrimSpace(userID) == "" {
			log.Println("[AUTH] [ERROR] userId claim missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		email, _ := claims["email"].(string)
		name, _ := claims["name"].(string)

		c.Set("userId", userID)
		c.Set("userEmail", email)
		c.Set("userName", name)
		c.Next()
	}
}
