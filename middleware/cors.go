package middleware

import (
	"strings"
	"time"
	"topper-backend/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func CORSMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Invitation-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// Local development talks to the API from any port.
	if config.AppConfig == nil || strings.Contains(config.AppConfig.AppURL, "localhost") {
		cfg.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		cfg.AllowOrigins = []string{strings.TrimRight(config.AppConfig.AppURL, "/")}
	}

	return cors.New(cfg)
}
