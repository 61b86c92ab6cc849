package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort         = "8080"
	DefaultLimit        = 50
	DefaultCacheTTL     = 5 * time.Minute
	DefaultPollInterval = 5 * time.Second
)

type Config struct {
	Repo         string
	Port         string
	Limit        int
	All          bool
	CacheTTL     time.Duration
	PollInterval time.Duration
	LogLevel     string
	// WebDir, when set, is served at / by the server.
	WebDir string
	// GitBin is the git executable used to read history.
	GitBin string
}

// Load reads .env (if present) and the GITLANE_* environment. Invalid values
// fall back to defaults. Command-line flags are applied on top by the caller.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) *Config {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	return &Config{
		Repo:         firstNonEmpty(get("GITLANE_REPO"), "."),
		Port:         normalizePort(firstNonEmpty(get("GITLANE_PORT"), get("PORT"), DefaultPort)),
		Limit:        parsePositiveInt(get("GITLANE_LIMIT"), DefaultLimit),
		All:          parseBool(get("GITLANE_ALL"), true),
		CacheTTL:     parseDuration(get("GITLANE_CACHE_TTL"), DefaultCacheTTL),
		PollInterval: parseDuration(get("GITLANE_POLL_INTERVAL"), DefaultPollInterval),
		LogLevel:     firstNonEmpty(get("GITLANE_LOG_LEVEL"), "info"),
		WebDir:       get("GITLANE_WEB_DIR"),
		GitBin:       firstNonEmpty(get("GITLANE_GIT"), "git"),
	}
}

// Addr is the listen address for the server.
func (c *Config) Addr() string {
	return ":" + normalizePort(c.Port)
}

func normalizePort(port string) string {
	return strings.TrimPrefix(strings.TrimSpace(port), ":")
}

func parsePositiveInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
