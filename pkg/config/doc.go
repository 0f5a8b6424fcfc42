// Package config provides a type-safe, cached loader for environment-based
// configuration.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: the
// default .env file is read once per process, then structs annotated with
// `env:` tags are populated from the environment. Each configuration type is
// parsed at most once and cached, so packages can declare and load their own
// Config structs independently.
//
//	type PaddleConfig struct {
//	    WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
//	}
//
//	var cfg PaddleConfig
//	config.MustLoad(&cfg)
//
// Use ResetCache in tests that mutate the process environment between loads.
package config
