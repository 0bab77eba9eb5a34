package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                 "development",
		DBSSLMode:           "disable",
		JWTSecret:           "secure-secret-at-least-32-chars-long",
		DBPassword:          "secure-password",
		Port:                "8080",
		CommentModeration:   "auto",
		CommentDeletePolicy: "orphan",
		RelatedDefaultLimit: 6,
		RelatedCacheTTL:     time.Minute,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateEngagementPolicy(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"manual moderation", func(c *Config) { c.CommentModeration = "manual" }, false},
		{"unknown moderation", func(c *Config) { c.CommentModeration = "sometimes" }, true},
		{"cascade delete", func(c *Config) { c.CommentDeletePolicy = "cascade" }, false},
		{"reparent delete", func(c *Config) { c.CommentDeletePolicy = "reparent" }, false},
		{"unknown delete policy", func(c *Config) { c.CommentDeletePolicy = "shred" }, true},
		{"related limit too high", func(c *Config) { c.RelatedDefaultLimit = 51 }, true},
		{"negative cache ttl", func(c *Config) { c.RelatedCacheTTL = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("COMMENT_DELETE_POLICY", " Cascade ")
	t.Setenv("RELATED_CACHE_TTL", "90s")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "cascade", c.CommentDeletePolicy)
	assert.Equal(t, 90*time.Second, c.RelatedCacheTTL)
	assert.Equal(t, 6, c.RelatedDefaultLimit)
	assert.Equal(t, "auto", c.CommentModeration)
}
