package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 3, cfg.Retry.DefaultMaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Retry.ScheduleRetryStep)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention.Interactions)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.FailedPosts)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention.ProcessedRuns)
	assert.Equal(t, 20, cfg.Platforms.Twitter.RateLimit)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RETRY_BASE_DELAY", "2s")
	t.Setenv("QUEUE_WORKERS", "9")
	t.Setenv("RETENTION_FAILED_POSTS", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 9, cfg.Queue.Workers)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.FailedPosts, "invalid durations fall back to the default")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "3306", Name: "launchpad", User: "u", Pass: "p", Charset: "utf8mb4"}
	assert.Equal(t, "u:p@tcp(db:3306)/launchpad?charset=utf8mb4&parseTime=True&loc=UTC", d.DSN())
}
