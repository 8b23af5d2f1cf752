package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the alertsage server.
type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Prometheus PrometheusConfig
	Loki       LokiConfig
	LLM        LLMConfig
	Collect    CollectConfig
	Notify     NotifyConfig
	Pipeline   PipelineConfig
}

type ServerConfig struct {
	Port               int
	LogLevel           string
	RateLimitPerMinute int
}

type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

type PrometheusConfig struct {
	URL     string
	Timeout time.Duration
}

type LokiConfig struct {
	BaseURL  string
	Username string
	Password string
	OrgID    string
	Timeout  time.Duration
}

type LLMConfig struct {
	APIURL          string
	APIKey          string
	Model           string
	Timeout         time.Duration
	MaxAttempts     int
	RetryMultiplier time.Duration
	RetryMin        time.Duration
	RetryMax        time.Duration
	Temperature     float64
	MaxTokens       int
	TopP            float64
	TopK            int
	SystemPrompt    string
}

type CollectConfig struct {
	TimeWindowMinutes int
	MaxLogLines       int
	MetricStep        time.Duration
}

type NotifyConfig struct {
	SlackWebhookURLs   []string
	GenericWebhookURLs []string
	Timeout            time.Duration
}

type PipelineConfig struct {
	ErrorBackoff time.Duration
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Variables from a .env file in the working directory are applied first when
// the file exists; the real environment always wins.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("API_PORT", 8000),
			LogLevel:           strings.ToLower(envString("LOG_LEVEL", "info")),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 120),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			CacheTTL: envDuration("QUERY_CACHE_TTL", 0),
		},
		Prometheus: PrometheusConfig{
			URL:     strings.TrimRight(os.Getenv("PROMETHEUS_URL"), "/"),
			Timeout: envDuration("PROMETHEUS_TIMEOUT", 30*time.Second),
		},
		Loki: LokiConfig{
			BaseURL:  strings.TrimRight(os.Getenv("LOKI_URL"), "/"),
			Username: os.Getenv("LOKI_USERNAME"),
			Password: os.Getenv("LOKI_PASSWORD"),
			OrgID:    os.Getenv("LOKI_ORG_ID"),
			Timeout:  envDuration("LOKI_TIMEOUT", 30*time.Second),
		},
		LLM: LLMConfig{
			APIURL:          os.Getenv("LLM_API_URL"),
			APIKey:          os.Getenv("LLM_API_KEY"),
			Model:           os.Getenv("LLM_MODEL"),
			Timeout:         envDuration("LLM_TIMEOUT", 180*time.Second),
			MaxAttempts:     envInt("LLM_MAX_ATTEMPTS", 3),
			RetryMultiplier: envDuration("LLM_RETRY_MULTIPLIER", time.Second),
			RetryMin:        envDuration("LLM_RETRY_MIN", 4*time.Second),
			RetryMax:        envDuration("LLM_RETRY_MAX", 10*time.Second),
			Temperature:     envFloat("LLM_TEMPERATURE", 0.3),
			MaxTokens:       envInt("LLM_MAX_TOKENS", 2000),
			TopP:            envFloat("LLM_TOP_P", 0.9),
			TopK:            envInt("LLM_TOP_K", 40),
			SystemPrompt:    os.Getenv("LLM_SYSTEM_PROMPT"),
		},
		Collect: CollectConfig{
			TimeWindowMinutes: envInt("TIME_WINDOW_MINUTES", 15),
			MaxLogLines:       envInt("MAX_LOG_LINES", 500),
			MetricStep:        envDuration("METRIC_STEP", 15*time.Second),
		},
		Notify: NotifyConfig{
			SlackWebhookURLs:   envList("SLACK_WEBHOOK_URLS", "SLACK_WEBHOOK_URL"),
			GenericWebhookURLs: envList("GENERIC_WEBHOOK_URLS", "GENERIC_WEBHOOK_URL"),
			Timeout:            envDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Pipeline: PipelineConfig{
			ErrorBackoff: envDuration("PIPELINE_ERROR_BACKOFF", 5*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := requireHTTPURL("PROMETHEUS_URL", c.Prometheus.URL); err != nil {
		return err
	}
	if err := requireHTTPURL("LOKI_URL", c.Loki.BaseURL); err != nil {
		return err
	}
	if err := requireHTTPURL("LLM_API_URL", c.LLM.APIURL); err != nil {
		return err
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}

	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("LLM_MAX_ATTEMPTS must be at least 1, got %d", c.LLM.MaxAttempts)
	}
	if c.LLM.RetryMin > c.LLM.RetryMax {
		return fmt.Errorf("LLM_RETRY_MIN (%s) must not exceed LLM_RETRY_MAX (%s)", c.LLM.RetryMin, c.LLM.RetryMax)
	}
	if c.Collect.TimeWindowMinutes <= 0 {
		return fmt.Errorf("TIME_WINDOW_MINUTES must be positive, got %d", c.Collect.TimeWindowMinutes)
	}
	if c.Collect.MaxLogLines <= 0 {
		return fmt.Errorf("MAX_LOG_LINES must be positive, got %d", c.Collect.MaxLogLines)
	}

	for _, u := range append(append([]string{}, c.Notify.SlackWebhookURLs...), c.Notify.GenericWebhookURLs...) {
		if !isHTTPURL(u) {
			return fmt.Errorf("webhook URL must start with http:// or https://, got %q", u)
		}
	}

	return nil
}

func requireHTTPURL(key, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", key)
	}
	if !isHTTPURL(v) {
		return fmt.Errorf("%s must start with http:// or https://, got %q", key, v)
	}
	return nil
}

func isHTTPURL(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultVal
}

// envList reads a comma-separated list from the first key that is set.
func envList(keys ...string) []string {
	for _, key := range keys {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		var out []string
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}
