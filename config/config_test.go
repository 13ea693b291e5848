package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	assert.Equal(t, 3, config.MaxConcurrency)
	assert.Equal(t, 40, config.MaxRequestsPerMinute)
	assert.Equal(t, 2*time.Second, config.SameDomainDelay)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 5, config.DefaultMaxPages)
	assert.Equal(t, 30, config.ListingsPerPage)

	// Test with environment variables
	os.Setenv("REDIS_ADDR", "redis.example.com:6379")
	os.Setenv("MAX_CONCURRENCY", "8")
	os.Setenv("MAX_REQUESTS_PER_MINUTE", "120")
	os.Setenv("SAME_DOMAIN_DELAY_SECONDS", "5")
	os.Setenv("DEFAULT_MAX_PAGES", "10")

	config = LoadConfig()
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 8, config.MaxConcurrency)
	assert.Equal(t, 120, config.MaxRequestsPerMinute)
	assert.Equal(t, 5*time.Second, config.SameDomainDelay)
	assert.Equal(t, 10, config.DefaultMaxPages)

	// Clean up
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("MAX_CONCURRENCY")
	os.Unsetenv("MAX_REQUESTS_PER_MINUTE")
	os.Unsetenv("SAME_DOMAIN_DELAY_SECONDS")
	os.Unsetenv("DEFAULT_MAX_PAGES")
}

func TestValidate(t *testing.T) {
	config := LoadConfig()
	assert.NoError(t, config.Validate())

	config.MaxConcurrency = 0
	assert.Error(t, config.Validate())

	config = LoadConfig()
	config.DatabaseURL = ""
	assert.Error(t, config.Validate())

	config = LoadConfig()
	config.MaxRetries = 0
	assert.Error(t, config.Validate())
}
