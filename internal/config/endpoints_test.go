package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEndpoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
endpoints:
  extract:
    path: /extract
    retry:
      max_attempts: 8
      initial_backoff_ms: 200
  classify:
    path: /classify
`), 0o644))

	ef, err := LoadEndpoints(path)
	require.NoError(t, err)
	require.Len(t, ef.Endpoints, 2)

	cfg := &Config{Retry: RetryConfig{Default: RetryPolicy{MaxAttempts: 5}, Extract: RetryPolicy{MaxAttempts: 5}}}
	ef.Apply(cfg)
	assert.Equal(t, "/extract", cfg.Service.ExtractPath)
	assert.Equal(t, "/classify", cfg.Service.ClassifyPath)
	assert.Equal(t, 8, cfg.Retry.Policy("extract").MaxAttempts)
	assert.Equal(t, 200, cfg.Retry.Policy("extract").InitialBackoffMs)
	assert.Equal(t, 5, cfg.Retry.Policy("classify").MaxAttempts)
}

func TestLoadEndpoints_UnknownEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoints:\n  translate:\n    path: /t\n"), 0o644))

	_, err := LoadEndpoints(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown endpoint")
}

func TestLoadEndpoints_Errors(t *testing.T) {
	_, err := LoadEndpoints(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoints: [1, 2"), 0o644))
	_, err = LoadEndpoints(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse endpoints file")
}
