package config

import (
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultAPIURL = "http://127.0.0.1:8000/api"

type Config struct {
	APIURL        string
	WSURL         string
	Token         string
	Email         string
	Timeout       time.Duration
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	LogLevel      string
}

// Load reads configuration from an optional .env file and the environment.
func Load(files ...string) *Config {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("no .env file found, using system environment variables")
	}

	cfg := &Config{
		APIURL:        strings.TrimRight(getEnv("CARDTRACK_API_URL", DefaultAPIURL), "/"),
		WSURL:         getEnv("CARDTRACK_WS_URL", ""),
		Token:         getEnv("CARDTRACK_TOKEN", ""),
		Email:         getEnv("CARDTRACK_EMAIL", ""),
		Timeout:       time.Duration(getEnvInt("CARDTRACK_TIMEOUT_SECONDS", 15)) * time.Second,
		ReconnectBase: time.Duration(getEnvInt("CARDTRACK_RECONNECT_BASE_MS", 500)) * time.Millisecond,
		ReconnectMax:  time.Duration(getEnvInt("CARDTRACK_RECONNECT_MAX_MS", 30000)) * time.Millisecond,
		LogLevel:      getEnv("CARDTRACK_LOG_LEVEL", "info"),
	}
	if cfg.WSURL == "" {
		cfg.WSURL = DeriveWSURL(cfg.APIURL)
	}
	return cfg
}

// DeriveWSURL turns an API root such as https://host/api into the push
// channel root wss://host.
func DeriveWSURL(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api")
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/")
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultVal
	}
	return n
}
