package bootstrap

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-admin-console/config"
)

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_BASE_URL", "https://api.example.com/v1/")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("REDIS_URI", "redis://cache:6379")
	t.Setenv("AUTHZ_FETCH_RETRIES", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, config.StorageDriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "redis://cache:6379", cfg.Redis.URI)
	assert.Equal(t, "/", cfg.Routes.Entry)
}

func TestLoadConfig_RejectsInvalidDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", "s3")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	assert.Error(t, ValidateConfig(nil))

	cfg := config.AppConfig{}
	err := ValidateConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_BASE_URL")

	cfg.API.BaseURL = "http://localhost:8080"
	cfg.Storage.Driver = config.StorageDriverRedis
	err = ValidateConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URI")

	cfg.Redis.UseSentinel = true
	assert.NoError(t, ValidateConfig(&cfg))
}

func TestNewLogger_DevUsesText(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, &config.AppConfig{IsDev: true}).Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	NewLogger(&buf, &config.AppConfig{}).Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
