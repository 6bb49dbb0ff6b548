package database

import (
	"context"
	"log"
	"strings"
	"topper-backend/config"

	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client

// ConnectRedis leaves Redis nil when the server is unreachable; callers treat
// a nil client as "no cache".
func ConnectRedis() *redis.Client {
	opts := &redis.Options{Addr: config.AppConfig.RedisURL}
	if strings.HasPrefix(config.AppConfig.RedisURL, "redis://") || strings.HasPrefix(config.AppConfig.RedisURL, "rediss://") {
		parsed, err := redis.ParseURL(config.AppConfig.RedisURL)
		if err != nil {
			log.Println("⚠️  Invalid REDIS_URL, running without cache:", err)
			return nil
		}
		opts = parsed
	}

	Redis = redis.NewClient(opts)

	_, err := Redis.Ping(context.Background()).Result()
	if err != nil {
		log.Println("⚠️  Redis not available, running without cache:", err)
		Redis.Close()
		Redis = nil
		return nil
	}

	log.Println("✅ Redis connected successfully")
	return Redis
}
