// Package config loads runtime configuration from AGRITRACK_* environment
// variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Storage selects the persistence backend for products and stages.
type Storage struct {
	Driver      string `env:"AGRITRACK_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"AGRITRACK_SQLITE_PATH" envDefault:"agritrack.db"`
	PostgresDSN string `env:"AGRITRACK_POSTGRES_DSN"`
}

// Blob selects the artifact store used by trace exports.
type Blob struct {
	Driver            string `env:"AGRITRACK_BLOB_DRIVER" envDefault:"fs"`
	FSRoot            string `env:"AGRITRACK_BLOB_FS_ROOT" envDefault:"blobdata"`
	S3Region          string `env:"AGRITRACK_BLOB_S3_REGION"`
	S3Bucket          string `env:"AGRITRACK_BLOB_S3_BUCKET"`
	S3Endpoint        string `env:"AGRITRACK_BLOB_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"AGRITRACK_BLOB_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AGRITRACK_BLOB_S3_SECRET_ACCESS_KEY"`
	S3SessionToken    string `env:"AGRITRACK_BLOB_S3_SESSION_TOKEN"`
	S3PathStyle       bool   `env:"AGRITRACK_BLOB_S3_PATH_STYLE"`
}

// Config is the full process configuration.
type Config struct {
	ListenAddr string `env:"AGRITRACK_LISTEN_ADDR" envDefault:":8080"`
	AuthToken  string `env:"AGRITRACK_AUTH_TOKEN"`
	SeedDemo   bool   `env:"AGRITRACK_SEED_DEMO" envDefault:"true"`
	TraceLog   bool   `env:"AGRITRACK_TRACE_LOG"`
	Debug      bool   `env:"AGRITRACK_DEBUG"`

	Storage Storage
	Blob    Blob
}

// Load parses configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
