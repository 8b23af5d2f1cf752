package config_test

import (
	"testing"
	"time"

	"github.com/kiranshivaraju/alertsage/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv is a helper that sets environment variables for a test and restores them after.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

// validEnv returns the minimum set of valid environment variables.
func validEnv() map[string]string {
	return map[string]string{
		"PROMETHEUS_URL": "http://prometheus:9090",
		"LOKI_URL":       "http://loki:3100",
		"LLM_API_URL":    "https://llm.example.com/v1/chat/completions",
		"LLM_MODEL":      "deepseek-v3",
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "http://prometheus:9090", cfg.Prometheus.URL)
	assert.Equal(t, "http://loki:3100", cfg.Loki.BaseURL)
	assert.Equal(t, "https://llm.example.com/v1/chat/completions", cfg.LLM.APIURL)
	assert.Equal(t, "deepseek-v3", cfg.LLM.Model)
}

func TestLoad_LLMDefaults(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 180*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, time.Second, cfg.LLM.RetryMultiplier)
	assert.Equal(t, 4*time.Second, cfg.LLM.RetryMin)
	assert.Equal(t, 10*time.Second, cfg.LLM.RetryMax)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 0.0001)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.9, cfg.LLM.TopP, 0.0001)
	assert.Equal(t, 40, cfg.LLM.TopK)
}

func TestLoad_CollectAndNotifyDefaults(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Collect.TimeWindowMinutes)
	assert.Equal(t, 500, cfg.Collect.MaxLogLines)
	assert.Equal(t, 15*time.Second, cfg.Collect.MetricStep)
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.ErrorBackoff)
	assert.Equal(t, 120, cfg.Server.RateLimitPerMinute)
	assert.Zero(t, cfg.Redis.CacheTTL)
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, key := range []string{"PROMETHEUS_URL", "LOKI_URL", "LLM_API_URL", "LLM_MODEL"} {
		t.Run(key, func(t *testing.T) {
			setEnv(t, validEnv())
			t.Setenv(key, "")

			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_URLMustStartWithHTTP(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("LOKI_URL", "loki:3100")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with http://")
}

func TestLoad_TrailingSlashTrimmed(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("PROMETHEUS_URL", "https://prometheus:9090/")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://prometheus:9090", cfg.Prometheus.URL)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestLoad_LogLevelIsCaseInsensitive(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_WebhookLists(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("SLACK_WEBHOOK_URLS", "https://hooks.slack.com/a, https://hooks.slack.com/b,")
	t.Setenv("GENERIC_WEBHOOK_URL", "http://receiver:8080/hook")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://hooks.slack.com/a", "https://hooks.slack.com/b"}, cfg.Notify.SlackWebhookURLs)
	assert.Equal(t, []string{"http://receiver:8080/hook"}, cfg.Notify.GenericWebhookURLs)
}

func TestLoad_PluralWebhookFormWins(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("SLACK_WEBHOOK_URLS", "https://hooks.slack.com/plural")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/singular")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://hooks.slack.com/plural"}, cfg.Notify.SlackWebhookURLs)
}

func TestLoad_InvalidWebhookURL(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("GENERIC_WEBHOOK_URLS", "ftp://nope")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_DurationsAcceptSeconds(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("LLM_TIMEOUT", "60")
	t.Setenv("NOTIFY_TIMEOUT", "2.5s")
	t.Setenv("QUERY_CACHE_TTL", "1m")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2500*time.Millisecond, cfg.Notify.Timeout)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
}

func TestLoad_MalformedNumbersFallBackToDefaults(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("API_PORT", "eighty")
	t.Setenv("LLM_TEMPERATURE", "warm")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 0.0001)
}

func TestLoad_RetryBoundsValidated(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("LLM_RETRY_MIN", "20s")
	t.Setenv("LLM_RETRY_MAX", "10s")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_RETRY_MIN")
}

func TestLoad_MaxAttemptsValidated(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("LLM_MAX_ATTEMPTS", "0")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_LokiCredentials(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("LOKI_USERNAME", "admin")
	t.Setenv("LOKI_PASSWORD", "secret")
	t.Setenv("LOKI_ORG_ID", "tenant-1")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Loki.Username)
	assert.Equal(t, "secret", cfg.Loki.Password)
	assert.Equal(t, "tenant-1", cfg.Loki.OrgID)
}
