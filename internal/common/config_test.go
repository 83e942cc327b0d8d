package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docbatch.yaml")
	doc := `
files:
  max_size_mb: 10
engine:
  approval_timeout: 90s
llm:
  provider: openai
  model: gpt-4o-mini
export:
  sink: s3
  s3_bucket: reports
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, 10, cfg.Files.MaxSizeMB)
	assert.Equal(t, 90*time.Second, cfg.Engine.ApprovalTimeout)
	assert.Equal(t, time.Duration(0), cfg.Engine.ExtractTimeout)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "s3", cfg.Export.Sink)
	// untouched sections keep their defaults
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSizeBytes())
}

func TestLoadConfigEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docbatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("files:\n  max_size_mb: 10\n"), 0o644))

	t.Setenv("DOCBATCH_CONFIG", path)
	t.Setenv("FILES_MAX_SIZE_MB", "25")
	t.Setenv("ENGINE_EXTRACT_TIMEOUT", "2m")
	t.Setenv("GEMINI_API_KEY", "k-123")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Files.MaxSizeMB)
	assert.Equal(t, 2*time.Minute, cfg.Engine.ExtractTimeout)
	assert.Equal(t, "k-123", cfg.LLM.APIKey)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("files: [unterminated"), 0o644))

	err := DefaultConfig().LoadFile(path)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing api key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "claude" }, wantErr: true},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Export.Sink = "s3" }, wantErr: true},
		{name: "zero max size", mutate: func(c *Config) { c.Files.MaxSizeMB = 0 }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Engine.ApprovalTimeout = -time.Second }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LLM.APIKey = "key"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
