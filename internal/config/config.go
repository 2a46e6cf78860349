// Package config loads the sync daemon's settings from the environment.
// Call LoadEnvFile(".env") before Load() to use a .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds provider credentials plus daemon settings.
type Config struct {
	// Provider (Xtream panel)
	ProviderBaseURL string // e.g. http://provider:8080
	ProviderUser    string
	ProviderPass    string
	DisplayName     string // account label; defaults to the username

	// Paths
	DatabasePath string // sqlite catalog cache, e.g. /var/lib/xtreamsync/catalog.db

	// Sync behavior
	RequestTimeout time.Duration // per provider request (default 20s)
	ResyncInterval time.Duration // 0 = sync once and exit
	SyncOnStart    bool

	// Observability
	HTTPAddr string // serves /metrics and /healthz when set, e.g. :9184
	LogLevel string // logrus level name (default "info")
	LogJSON  bool
}

// Load reads config from environment with defaults suitable for a first run.
func Load() *Config {
	return &Config{
		ProviderBaseURL: os.Getenv("XTREAM_SYNC_PROVIDER_URL"),
		ProviderUser:    os.Getenv("XTREAM_SYNC_PROVIDER_USER"),
		ProviderPass:    os.Getenv("XTREAM_SYNC_PROVIDER_PASS"),
		DisplayName:     os.Getenv("XTREAM_SYNC_DISPLAY_NAME"),
		DatabasePath:    getEnv("XTREAM_SYNC_DB", "./catalog.db"),
		RequestTimeout:  getEnvDuration("XTREAM_SYNC_REQUEST_TIMEOUT", 20*time.Second),
		ResyncInterval:  getEnvDuration("XTREAM_SYNC_RESYNC_INTERVAL", 0),
		SyncOnStart:     getEnvBool("XTREAM_SYNC_SYNC_ON_START", true),
		HTTPAddr:        os.Getenv("XTREAM_SYNC_HTTP_ADDR"),
		LogLevel:        getEnv("XTREAM_SYNC_LOG_LEVEL", "info"),
		LogJSON:         getEnvBool("XTREAM_SYNC_LOG_JSON", true),
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers mean seconds, for operators who skip the unit.
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultVal
}
