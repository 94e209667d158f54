package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	c := FromEnv()
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "/api", c.APIBase)
	assert.Equal(t, 10*time.Second, c.UpstreamTimeout)
	assert.Equal(t, time.Hour, c.CacheTTL)
	assert.Equal(t, 1000, c.CacheMaxEntries)
	assert.Equal(t, 10, c.RatePerMinute)
	assert.Equal(t, 100, c.RatePerHour)
	assert.Equal(t, "memory", c.CacheBackend)
	assert.True(t, c.AllowLocalDev)
	assert.NotEmpty(t, c.AllowedDomains)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("RATE_PER_MINUTE", "5")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("ALLOWED_DOMAINS", "*.foo.dev, bar.io")
	t.Setenv("ALLOW_LOCAL_DEV", "false")

	c := FromEnv()
	assert.Equal(t, ":9000", c.Addr)
	assert.Equal(t, 5, c.RatePerMinute)
	assert.Equal(t, time.Minute, c.CacheTTL)
	assert.Equal(t, []string{"*.foo.dev", "bar.io"}, c.AllowedDomains)
	assert.False(t, c.AllowLocalDev)
}

func TestFromEnvBadNumbersFallBack(t *testing.T) {
	t.Setenv("RATE_PER_MINUTE", "zero")
	t.Setenv("CACHE_MAX_ENTRIES", "-3")
	c := FromEnv()
	assert.Equal(t, 10, c.RatePerMinute)
	assert.Equal(t, 1000, c.CacheMaxEntries)
}
