package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the SwarmPAL processing service
type Config struct {
	// Server configuration
	Port        string `env:"PORT,default=8990"`
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogFormat   string `env:"LOG_FORMAT,default=text"`

	// VirES data server
	ViresURL          string `env:"VIRES_URL,default=https://vires.services/ows"`
	FetchTimeoutSec   int    `env:"FETCH_TIMEOUT_SEC,default=300"`
	FetchRetryCount   int    `env:"FETCH_RETRY_COUNT,default=3"`
	FetchRetryWaitSec int    `env:"FETCH_RETRY_WAIT_SEC,default=5"`

	// Space weather bulletins shown on the index page
	BulletinURL string `env:"BULLETIN_URL,default=https://www.sidc.be/products/meu"`

	// Storage backend for cached dashboard state: local, gcs, s3 or redis
	StorageBackend string `env:"STORAGE_BACKEND,default=local"`
	LocalDataDir   string `env:"LOCAL_DATA_DIR,default=./data"`

	// GCP configuration (gcs backend)
	GCPProjectID string `env:"GCP_PROJECT_ID"`
	GCSBucket    string `env:"GCS_BUCKET"`

	// S3-compatible object store (s3 backend)
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3UseSSL    bool   `env:"S3_USE_SSL,default=false"`

	// Redis (redis backend)
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	// Uploaded product files are staged here before reading
	UploadDir string `env:"UPLOAD_DIR,default=./uploads"`

	// Dashboard behaviour
	PrecacheOnStart     bool `env:"PRECACHE_ON_START,default=true"`
	AnimationIntervalMS int  `env:"ANIMATION_INTERVAL_MS,default=1200"`
	ActivityLogSize     int  `env:"ACTIVITY_LOG_SIZE,default=200"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}
