// Package config provides centralized configuration loaded from environment
// variables, with an optional YAML overlay for the feed and sport lists.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Sport registry: ESPN scoreboard paths and tracked Chicago franchises
// --------------------------------------------------------------------------

// Team is a tracked Chicago franchise. ID is the canonical lowercase id used
// for audience targeting ("bears", "whitesox", ...).
type Team struct {
	ID            string
	Name          string
	Abbreviations []string
}

// SportConfig describes one supported sport.
type SportConfig struct {
	ID       string
	Name     string
	ESPNPath string
	Teams    []Team
}

// SportOrder is the order sports are polled and classified in.
var SportOrder = []string{"nfl", "nba", "mlb", "nhl", "mls", "wnba"}

var SportRegistry = map[string]SportConfig{
	"nfl": {ID: "nfl", Name: "National Football League", ESPNPath: "football/nfl", Teams: []Team{
		{ID: "bears", Name: "Chicago Bears", Abbreviations: []string{"CHI"}},
	}},
	"nba": {ID: "nba", Name: "National Basketball Association", ESPNPath: "basketball/nba", Teams: []Team{
		{ID: "bulls", Name: "Chicago Bulls", Abbreviations: []string{"CHI"}},
	}},
	"mlb": {ID: "mlb", Name: "Major League Baseball", ESPNPath: "baseball/mlb", Teams: []Team{
		{ID: "cubs", Name: "Chicago Cubs", Abbreviations: []string{"CHC"}},
		{ID: "whitesox", Name: "Chicago White Sox", Abbreviations: []string{"CHW", "CWS"}},
	}},
	"nhl": {ID: "nhl", Name: "National Hockey League", ESPNPath: "hockey/nhl", Teams: []Team{
		{ID: "blackhawks", Name: "Chicago Blackhawks", Abbreviations: []string{"CHI"}},
	}},
	"mls": {ID: "mls", Name: "Major League Soccer", ESPNPath: "soccer/usa.1", Teams: []Team{
		{ID: "fire", Name: "Chicago Fire FC", Abbreviations: []string{"CHI"}},
	}},
	"wnba": {ID: "wnba", Name: "Women's National Basketball Association", ESPNPath: "basketball/wnba", Teams: []Team{
		{ID: "sky", Name: "Chicago Sky", Abbreviations: []string{"CHI"}},
	}},
}

// Feed is one RSS news source.
type Feed struct {
	Name string `koanf:"name"`
	URL  string `koanf:"url"`
}

// DefaultFeeds are league news feeds filtered down to Chicago items by the
// classifier.
var DefaultFeeds = []Feed{
	{Name: "espn-nfl", URL: "https://www.espn.com/espn/rss/nfl/news"},
	{Name: "espn-nba", URL: "https://www.espn.com/espn/rss/nba/news"},
	{Name: "espn-mlb", URL: "https://www.espn.com/espn/rss/mlb/news"},
	{Name: "espn-nhl", URL: "https://www.espn.com/espn/rss/nhl/news"},
}

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	LogLevel slog.Level

	// API server
	APIHost           string
	APIPort           int
	CORSAllowOrigins  []string
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Local time zone for the polling game window
	Location *time.Location

	// Sources
	ScoreboardBaseURL string
	Sports            []string
	Feeds             []Feed
	FetchTimeout      time.Duration

	// Push provider
	OneSignalURL       string
	OneSignalAppID     string
	OneSignalAPIKey    string
	GameChannelID      string
	NewsChannelID      string
	AndroidAccentColor string
	SendDelay          time.Duration

	// Anti-spam policy
	MaxAlertsPerGame int
	MaxAlertsPerHour int
	MinAlertGap      time.Duration
	CounterReset     time.Duration

	// Polling advisory
	FastPollInterval time.Duration
	SlowPollInterval time.Duration

	// Optional backends
	DatabaseURL    string
	DBPoolMaxConns int
	LogRetention   time.Duration
	RedisURL       string
	SeenTTL        time.Duration
	SeenMaxItems   int
}

// Load reads configuration from environment variables with sensible defaults,
// then applies ALERTS_CONFIG_FILE if set.
func Load() (*Config, error) {
	tz := envOr("ALERTS_TIMEZONE", "America/Chicago")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	cfg := &Config{
		LogLevel: parseLevel(envOr("LOG_LEVEL", "info")),

		APIHost:           envOr("API_HOST", "0.0.0.0"),
		APIPort:           envInt("API_PORT", envInt("PORT", 8000)),
		CORSAllowOrigins:  envList("CORS_ALLOW_ORIGINS", []string{"*"}),
		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		Location: loc,

		ScoreboardBaseURL: envOr("SCOREBOARD_BASE_URL", "https://site.api.espn.com/apis/site/v2/sports"),
		Sports:            envList("ALERTS_SPORTS", SportOrder),
		Feeds:             DefaultFeeds,
		FetchTimeout:      time.Duration(envInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,

		OneSignalURL:       envOr("ONESIGNAL_API_URL", "https://onesignal.com/api/v1/notifications"),
		OneSignalAppID:     envOr("ONESIGNAL_APP_ID", ""),
		OneSignalAPIKey:    envOr("ONESIGNAL_API_KEY", ""),
		GameChannelID:      envOr("ONESIGNAL_GAME_CHANNEL_ID", ""),
		NewsChannelID:      envOr("ONESIGNAL_NEWS_CHANNEL_ID", ""),
		AndroidAccentColor: envOr("ONESIGNAL_ACCENT_COLOR", "FF0B162A"),
		SendDelay:          time.Duration(envInt("ALERTS_SEND_DELAY_MS", 100)) * time.Millisecond,

		MaxAlertsPerGame: envInt("ALERTS_MAX_PER_GAME", 15),
		MaxAlertsPerHour: envInt("ALERTS_MAX_PER_HOUR", 10),
		MinAlertGap:      time.Duration(envInt("ALERTS_MIN_GAP_SECONDS", 60)) * time.Second,
		CounterReset:     time.Duration(envInt("ALERTS_COUNTER_RESET_MINUTES", 60)) * time.Minute,

		FastPollInterval: time.Duration(envInt("ALERTS_FAST_POLL_SECONDS", 30)) * time.Second,
		SlowPollInterval: time.Duration(envInt("ALERTS_SLOW_POLL_SECONDS", 300)) * time.Second,

		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMaxConns: envInt("DATABASE_POOL_MAX_CONNS", 4),
		LogRetention:   time.Duration(envInt("ALERTS_LOG_RETENTION_DAYS", 30)) * 24 * time.Hour,
		RedisURL:       envOr("REDIS_URL", ""),
		SeenTTL:        time.Duration(envInt("ALERTS_SEEN_TTL_HOURS", 24*7)) * time.Hour,
		SeenMaxItems:   envInt("ALERTS_SEEN_MAX_ITEMS", 0),
	}

	if path := envOr("ALERTS_CONFIG_FILE", ""); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	for _, s := range cfg.Sports {
		if _, ok := SportRegistry[s]; !ok {
			return nil, fmt.Errorf("unknown sport %q", s)
		}
	}
	return cfg, nil
}

// PushEnabled reports whether push provider credentials are configured.
func (c *Config) PushEnabled() bool {
	return c.OneSignalAppID != "" && c.OneSignalAPIKey != ""
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.ToLower(strings.TrimSpace(p)); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
