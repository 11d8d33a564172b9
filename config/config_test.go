package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg := FromViper(defaultViper())

	assert.Equal(t, "mistral", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultFeeds, cfg.Crawler.Feeds)
	assert.Len(t, cfg.Crawler.Feeds, 8)
	assert.Equal(t, DefaultKeywords, cfg.Crawler.Keywords)
	assert.Equal(t, 10, cfg.Crawler.LimitPerFeed)
	assert.Equal(t, "month", cfg.Crawler.TimeWindow)
	assert.Equal(t, 2*time.Second, cfg.Crawler.InterFeedDelay)
	assert.Empty(t, cfg.Crawler.Schedule)
	assert.Equal(t, ":9091", cfg.Metrics.Addr)

	require.NoError(t, Validate(cfg))
	assert.Error(t, ValidateLLM(cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }},
		{"unknown db type", func(c *Config) { c.Database.Type = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }},
		{"libsql without url", func(c *Config) { c.Database.Type = "libsql" }},
		{"zero limit", func(c *Config) { c.Crawler.LimitPerFeed = 0 }},
		{"bad schedule", func(c *Config) { c.Crawler.Schedule = "every tuesday" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromViper(defaultViper())
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}

	cfg := FromViper(defaultViper())
	cfg.Crawler.Schedule = "0 */6 * * *"
	assert.NoError(t, Validate(cfg))
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
llm:
  provider: gemini
  api_key: from-file
crawler:
  feeds: [SaaS, startups]
  limit_per_feed: 3
database:
  type: libsql
  url: libsql://example.turso.io
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	t.Setenv("GOLDMINES_LLM_API_KEY", "from-env")
	t.Setenv("GOLDMINES_SERVER_PORT", "9090")
	t.Setenv("GOLDMINES_METRICS_ADDR", "127.0.0.1:9191")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:9191", cfg.Metrics.Addr)
	assert.Equal(t, []string{"SaaS", "startups"}, cfg.Crawler.Feeds)
	assert.Equal(t, 3, cfg.Crawler.LimitPerFeed)
	assert.Equal(t, "libsql", cfg.Database.Type)
	assert.NoError(t, ValidateLLM(cfg))
}
