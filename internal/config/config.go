package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func init() {
	// Missing .env is not an error; environment variables take precedence.
	_ = godotenv.Load()
}

// Config holds settings for the terminal daemon.
type Config struct {
	Port                  string
	AllowedOrigin         string
	DataDir               string
	SyncBaseURL           string
	SyncDebounceMillis    int
	AuthSecret            string
	AccessTokenTTLMinutes int
}

func Load() Config {
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	debounce, err := strconv.Atoi(getEnv("SYNC_DEBOUNCE_MS", "400"))
	if err != nil || debounce < 1 {
		debounce = 400
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DataDir:               getEnv("DATA_DIR", "data"),
		SyncBaseURL:           strings.TrimRight(strings.TrimSpace(os.Getenv("SYNC_BASE_URL")), "/"),
		SyncDebounceMillis:    debounce,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// DatabasePath is the sqlite file inside the data directory.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "pos.db")
}

// FallbackPath is the plain JSON document used when sqlite cannot open.
func (c Config) FallbackPath() string {
	return filepath.Join(c.DataDir, "pos-state.json")
}

// AuthorityConfig holds settings for the central authority daemon.
type AuthorityConfig struct {
	Port               string
	AllowedOrigin      string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	SnapshotTTLSeconds int
	DefaultLicenseKey  string
	DefaultMaxDevices  int
}

func LoadAuthority() AuthorityConfig {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("SNAPSHOT_TTL_SECONDS", "5"))
	if err != nil || ttl < 1 {
		ttl = 5
	}
	maxDevices, err := strconv.Atoi(getEnv("DEFAULT_MAX_DEVICES", "9"))
	if err != nil || maxDevices < 1 {
		maxDevices = 9
	}

	return AuthorityConfig{
		Port:               getEnv("PORT", "8090"),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "*"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            redisDB,
		SnapshotTTLSeconds: ttl,
		DefaultLicenseKey:  strings.TrimSpace(os.Getenv("DEFAULT_LICENSE_KEY")),
		DefaultMaxDevices:  maxDevices,
	}
}

func (c AuthorityConfig) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
