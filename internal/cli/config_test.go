package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/facultyscope/internal/model"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
library:
  institution: sjtu
  retry_jitter: 250ms
relevance:
  scheme: embedding
  threshold: 0.5
output:
  verbose: true
rate_limiting:
  hosts:
    - host: primo.example.edu
      requests_per_second: 1
colleges:
  - code: demo
    name: 演示学院
    base_url: https://demo.example.edu
    kind: listpage
    list_path: /people/list.htm
    fields:
      email: ["page:邮箱"]
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "sjtu", cfg.Library.Institution)
	assert.Equal(t, 250*time.Millisecond, cfg.Library.RetryJitter)
	assert.Equal(t, model.DefaultConfig().Library.BaseURL, cfg.Library.BaseURL, "unset keys keep defaults")
	assert.Equal(t, model.SchemeEmbedding, cfg.Relevance.Scheme)
	assert.Equal(t, 0.5, cfg.Relevance.Threshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, model.DefaultConfig().RateLimiting.RequestsPerSecond, cfg.RateLimiting.RequestsPerSecond)
	assert.Equal(t, []model.HostRateLimit{{Host: "primo.example.edu", RequestsPerSecond: 1}}, cfg.RateLimiting.Hosts,
		"configured hosts replace the built-in overrides")

	require.Len(t, cfg.Colleges, 1)
	assert.Equal(t, "demo", cfg.Colleges[0].Code)
	assert.Equal(t, []string{"page:邮箱"}, cfg.Colleges[0].Fields["email"])
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("FACULTYSCOPE_LIBRARY_LIMIT", "25")
	t.Setenv("FACULTYSCOPE_STORE_PATH", "/tmp/runs.db")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := viper.New()
	bindEnv(v)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Library.Limit)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.Path)
	assert.Equal(t, "sk-test", cfg.Relevance.APIKey)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)

	err = writeDefaultConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
