package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GALLERY_WORKERS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 720*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "secret", cfg.ValetJWTSecret)
	assert.Equal(t, 1, cfg.GalleryWorkers)
	assert.Equal(t, float32(90), cfg.GalleryClusterThreshold)
	assert.False(t, cfg.EmailConfigured())
	assert.False(t, cfg.AIConfigured())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUsername: "u", DBPassword: "p", DBDatabase: "ev", DBSSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=ev sslmode=disable", cfg.DSN())
}

func TestConfig_Integrations(t *testing.T) {
	cfg := &Config{ResendAPIKey: "k", FromEmail: "a@b.c", GeminiAPIKey: "g", GalleryBucket: "bucket"}
	assert.True(t, cfg.EmailConfigured())
	assert.True(t, cfg.AIConfigured())
	assert.True(t, cfg.GalleryConfigured())
	assert.False(t, cfg.StorageConfigured())
}
