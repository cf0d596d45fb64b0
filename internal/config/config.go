package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, loaded from the environment.
type Config struct {
	Port         string        `env:"HEARTH_PORT" envDefault:"8080"`
	DBPath       string        `env:"HEARTH_DB_PATH" envDefault:"hearth.db"`
	LogLevel     string        `env:"HEARTH_LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"HEARTH_LOG_FORMAT" envDefault:"text"`
	FeedInterval time.Duration `env:"HEARTH_FEED_INTERVAL" envDefault:"2s"`

	S3Endpoint  string `env:"HEARTH_S3_ENDPOINT"`
	S3Bucket    string `env:"HEARTH_S3_BUCKET"`
	S3Region    string `env:"HEARTH_S3_REGION" envDefault:"auto"`
	S3AccessKey string `env:"HEARTH_S3_ACCESS_KEY"`
	S3SecretKey string `env:"HEARTH_S3_SECRET_KEY"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
