package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DS_DIALECT", "postgres")
	t.Setenv("DS_HOST", "db.internal")
	t.Setenv("DS_USER", "reader")
	t.Setenv("DS_PASSWORD", "supersecret")
	t.Setenv("DS_DATABASE", "sales")
	t.Setenv("AI_API_KEY", "sk-test-123")
	t.Setenv("PIPELINE_RETRY_BUDGET", "5")

	// run from a directory without a config.yaml
	t.Chdir(t.TempDir())

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Version)
	assert.Equal(t, "db.internal", cfg.Datasource.Host)
	assert.Equal(t, "supersecret", cfg.Datasource.Password)
	assert.Equal(t, 5, cfg.Pipeline.RetryBudget)
	assert.Equal(t, 1000, cfg.Pipeline.MaxRows, "default applies")
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model, "default applies")
}

func TestLoadRejectsBadDialect(t *testing.T) {
	t.Setenv("DS_DIALECT", "oracle")
	t.Chdir(t.TempDir())

	_, err := Load("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialect")
}

func TestPipelineOptions(t *testing.T) {
	pc := PipelineConfig{
		MaxRows:            500,
		RetryBudget:        2,
		AllowMutations:     true,
		StatementTimeoutMs: 10000,
	}
	opts := pc.Options()
	assert.Equal(t, 500, opts.MaxRows)
	assert.Equal(t, 2, opts.RetryBudget)
	assert.True(t, opts.AllowMutations)
	assert.Equal(t, 10*time.Second, opts.StatementTimeout)
	assert.Nil(t, opts.TransientRetry)

	pc.TransientRetries = 3
	opts = pc.Options()
	require.NotNil(t, opts.TransientRetry)
	assert.Equal(t, 3, opts.TransientRetry.MaxRetries)
}

func TestRedactedHidesSecrets(t *testing.T) {
	t.Setenv("DS_PASSWORD", "supersecret")
	t.Setenv("AI_API_KEY", "sk-test-123")
	t.Chdir(t.TempDir())

	cfg, err := Load("test")
	require.NoError(t, err)

	redacted := cfg.Redacted()
	assert.NotContains(t, redacted, "supersecret")
	assert.NotContains(t, redacted, "sk-test-123")
	assert.True(t, strings.Contains(redacted, "datasource password: [set]"))
	assert.True(t, strings.Contains(redacted, "ai api key: [set]"))
}
