// Package redis provides connection helpers for the go-redis client:
// Connect with startup retry and a health check probe.
//
// Configuration comes from the Config struct, populated from environment
// variables:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    panic(err)
//	}
//	defer client.Close()
//
// The returned client backs the Redis-based idempotency guard and the
// shared rate limit store.
package redis
