package middleware

import (
	"log"
	"strings"
	"topper-backend/utils"

	"github.com/gin-gonic/gin"
)

// AuthRequired accepts "Authorization: Bearer <jwt>" and stores the organiser
// ID under "organiser_id".
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		organiserID, err := utils.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Println("⚠️  Rejected token:", err)
			utils.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("organiser_id", organiserID)
		c.Next()
	}
}
