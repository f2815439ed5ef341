// Package config loads global configuration.
//
// Every field declares its environment mapping via struct tags:
//
//	`env:"VAR_NAME" default:"value" min:"0"`
//
// Load() fills the struct by reflection, no per-field assignment needed.
package config

import (
	"github.com/multi-agent/chatstream/pkg/util"
)

// Config is the application configuration; field names map 1:1 onto .env vars.
type Config struct {
	// Agent backend stream
	BackendWSURL        string `env:"BACKEND_WS_URL" default:"ws://127.0.0.1:4500/stream"`
	StreamMaxRetries    int    `env:"STREAM_MAX_RETRIES" default:"10" min:"1"`
	StreamQueueSize     int    `env:"STREAM_QUEUE_SIZE" default:"1024" min:"16"`
	StreamReadIdleSec   int    `env:"STREAM_READ_IDLE_SEC" default:"90" min:"10"`
	StreamPingSec       int    `env:"STREAM_PING_SEC" default:"20" min:"1"`

	// Session registry (lifecycle collaborator)
	RegistryBaseURL        string `env:"REGISTRY_BASE_URL" default:"http://127.0.0.1:4600"`
	RegistryPollSec        int    `env:"REGISTRY_POLL_SEC" default:"15" min:"1"`
	RegistryTimeoutSec     int    `env:"REGISTRY_TIMEOUT_SEC" default:"10" min:"1"`
	SessionIdleCleanupMin  int    `env:"SESSION_IDLE_CLEANUP_MIN" default:"60" min:"1"`
	SnapshotUploadSec      int    `env:"SNAPSHOT_UPLOAD_SEC" default:"30" min:"5"`
	SessionCleanupEnabled  bool   `env:"SESSION_CLEANUP_ENABLED" default:"true"`

	// PostgreSQL (message history)
	PostgresConnStr     string `env:"POSTGRES_CONNECTION_STRING"`
	PostgresPoolMinSize int    `env:"POSTGRES_POOL_MIN_SIZE" default:"1" min:"1"`
	PostgresPoolMaxSize int    `env:"POSTGRES_POOL_MAX_SIZE" default:"10" min:"1"`

	// HTTP API
	HTTPListenAddr string `env:"HTTP_LISTEN_ADDR" default:"127.0.0.1:4700"`

	// Logging
	AppEnv string `env:"APP_ENV" default:"production"`
}

// Load reads configuration from environment variables via struct tags.
func Load() *Config {
	var cfg Config
	util.LoadFromEnv(&cfg)
	return &cfg
}
