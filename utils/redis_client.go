package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/connectbuzz/connectbuzz/config"
)

var redisClient *redis.Client

// InitRedis creates the shared client when a Redis host is configured. With no host the
// cache is disabled and the token blacklist and OAuth state fall back to process memory.
func InitRedis(cfg config.AppConfig) *redis.Client {
	if !cfg.RedisEnabled() {
		redisClient = nil
		return nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil && Sugar != nil {
		// keep the client; go-redis reconnects on demand
		Sugar.Warnf("redis ping failed addr=%s err=%v", rc.Options().Addr, err)
	}
	redisClient = rc
	return rc
}

// SetRedis replaces the shared client; nil disables Redis.
func SetRedis(rc *redis.Client) {
	redisClient = rc
}

// GetRedis returns the shared client or nil when Redis is disabled.
func GetRedis() *redis.Client {
	return redisClient
}

func redisCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, 2*time.Second)
}
