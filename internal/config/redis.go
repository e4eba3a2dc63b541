package config

// This file defines the Redis client constructor for the application.
// Redis backs three concerns: distributed rate limiting on hold
// opening, HTTP response caching on availability reads, and the asynq
// task broker. Connection parameters come from environment variables.
// If the connection fails during startup the constructor returns nil
// and callers degrade gracefully by disabling caching and rate
// limiting; the task broker, by contrast, is mandatory and its caller
// fails loudly.

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAddr resolves the Redis endpoint from the environment.
// REDIS_HOST/REDIS_PORT take precedence over REDIS_ADDR; the default
// is a local server.
func RedisAddr() string {
	host := os.Getenv("REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	addr := os.Getenv("REDIS_ADDR")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	return addr
}

// RedisPassword returns the optional Redis password.
func RedisPassword() string { return os.Getenv("REDIS_PASSWORD") }

// RedisDB returns the Redis database number, defaulting to 0.
func RedisDB() int {
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if n, err := strconv.Atoi(dbStr); err == nil {
			return n
		}
	}
	return 0
}

// NewRedisClient instantiates a Redis client using environment variables.
// Supported variables are:
//
//	REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//	REDIS_ADDR – host:port shorthand (host/port take precedence when both set)
//	REDIS_PASSWORD – optional password
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS when "true" or "1"
//
// The returned client may be nil if a connection cannot be established.
func NewRedisClient() *redis.Client {
	var tlsConf *tls.Config
	if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      RedisAddr(),
		Password:  RedisPassword(),
		DB:        RedisDB(),
		TLSConfig: tlsConf,
	})
	// Ping the server with a short timeout. Return nil on failure.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
