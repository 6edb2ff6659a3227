package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 72*time.Hour, cfg.JWT.TokenExpiry)
	assert.Equal(t, 10, cfg.RateLimit.IssuesPerDay)
	assert.Equal(t, "civicresolve", cfg.Mongo.Database)
	assert.False(t, cfg.StrictArea)
	assert.False(t, cfg.Production())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE", "MONGO")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("ISSUE_LIMIT_PER_DAY", "3")
	t.Setenv("STRICT_AREA", "true")
	t.Setenv("JWT_EXPIRY", "1h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongo", cfg.Storage)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, 3, cfg.RateLimit.IssuesPerDay)
	assert.True(t, cfg.StrictArea)
	assert.Equal(t, time.Hour, cfg.JWT.TokenExpiry)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE", "mongo")
	t.Setenv("MONGODB_URI", "")
	_, err = Load()
	assert.ErrorContains(t, err, "MONGODB_URI")

	t.Setenv("STORAGE", "sqlite")
	_, err = Load()
	assert.ErrorContains(t, err, "unknown STORAGE")
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("ISSUE_LIMIT_PER_DAY", "lots")
	t.Setenv("STRICT_AREA", "maybe")
	assert.Equal(t, 10, getEnvInt("ISSUE_LIMIT_PER_DAY", 10))
	assert.True(t, getEnvBool("STRICT_AREA", true))
}
