package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cfg := New()

	t.Run("sets default host and port", func(t *testing.T) {
		assert.Equal(t, DefaultHost, cfg.Host)
		assert.Equal(t, DefaultPort, cfg.Port)
	})

	t.Run("sets default export workers", func(t *testing.T) {
		assert.Equal(t, DefaultExportWorkers, cfg.ExportWorkers)
	})

	t.Run("defaults to abort on group failure", func(t *testing.T) {
		assert.Equal(t, GroupFailureAbort, cfg.GroupFailurePolicy)
	})

	t.Run("sets default request timeout", func(t *testing.T) {
		assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	})

	t.Run("sets default openrouter endpoint", func(t *testing.T) {
		assert.Equal(t, DefaultOpenRouterURL, cfg.OpenRouterBaseURL)
		assert.Equal(t, DefaultOpenRouterModel, cfg.OpenRouterModel)
	})

	t.Run("sets paths relative to working directory", func(t *testing.T) {
		wd, _ := os.Getwd()
		assert.Contains(t, cfg.DataDir, wd)
		assert.Contains(t, cfg.DatabasePath, wd)
	})
}

func TestLoad(t *testing.T) {
	t.Run("reads environment overrides", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("JIRA_URL", "https://example.atlassian.net/")
		t.Setenv("JIRA_EMAIL", "dev@example.com")
		t.Setenv("JIRA_API_TOKEN", "token")
		t.Setenv("EXPORT_WORKERS", "4")
		t.Setenv("EXPORT_GROUP_FAILURE_POLICY", GroupFailureContinue)
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "https://example.atlassian.net", cfg.JiraURL, "trailing slash trimmed")
		assert.Equal(t, 4, cfg.ExportWorkers)
		assert.Equal(t, GroupFailureContinue, cfg.GroupFailurePolicy)
		assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSAllowedOrigins)
		assert.True(t, cfg.TrackerConfigured())
	})

	t.Run("invalid int falls back to default", func(t *testing.T) {
		t.Setenv("PORT", "not-a-number")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultPort, cfg.Port)
	})

	t.Run("watch enabled when rules path set", func(t *testing.T) {
		t.Setenv("CLASSIFY_RULES_PATH", "/etc/storyagent/rules.yaml")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.WatchRules)
	})
}

func TestConfig_TrackerConfigured(t *testing.T) {
	cfg := New()
	assert.False(t, cfg.TrackerConfigured())

	cfg.JiraURL = "https://example.atlassian.net"
	cfg.JiraEmail = "dev@example.com"
	assert.False(t, cfg.TrackerConfigured())

	cfg.JiraAPIToken = "token"
	assert.True(t, cfg.TrackerConfigured())
}

func TestConfig_EnsureDataDir(t *testing.T) {
	tempDir := t.TempDir()

	cfg := &Config{DataDir: tempDir + "/nested/data"}
	require.NoError(t, cfg.EnsureDataDir())

	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
