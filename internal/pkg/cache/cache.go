package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/fieldpass/fieldpass/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache connects to the Redis cache on DB 0. Sessions and the oauth
// store use their own DBs, see internal/pkg/session and internal/pkg/oauth.
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "",
		DB:       0,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Warnf("[Cache] Could not connect to Redis at %s:%s: %v", host, port, err)
	} else {
		log.Infof("[Cache] Connected to Redis at %s:%s", host, port)
	}
}

// GetClient returns the shared Redis client, connecting lazily if needed.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value under key with the given expiration.
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a string value by key. A miss returns redis.Nil.
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// SetJSON marshals a value and stores it under the given key.
func SetJSON(key string, value any, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Set(key, raw, expiration)
}

// GetJSON loads a key and unmarshals it into out. A cache miss returns
// redis.Nil, which callers treat as "fetch from the database".
func GetJSON(key string, out any) error {
	raw, err := Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}
