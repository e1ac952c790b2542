package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, DefaultMaxAttempts, cfg.Synthesis.MaxAttempts)
	assert.Equal(t, 3, cfg.Synthesis.MaxAttempts)
	assert.Equal(t, 2000, cfg.Synthesis.SampleChars)
	assert.Equal(t, 10, cfg.Synthesis.PreviewRows)
	assert.Equal(t, IsolationSubprocess, cfg.Execution.Isolation)
	assert.Equal(t, "custom_parsers", cfg.Paths.ParsersDir)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMissingFileStillAppliesEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	content := `
llm:
  model: gemini-2.5-pro
  timeout: 30s
synthesis:
  max_attempts: 5
execution:
  isolation: inprocess
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 5, cfg.Synthesis.MaxAttempts)
	assert.Equal(t, IsolationInProcess, cfg.Execution.Isolation)
	assert.Equal(t, 2000, cfg.Synthesis.SampleChars, "unset keys keep defaults")
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFile)
	cfg := DefaultConfig()
	cfg.Synthesis.MaxAttempts = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Synthesis.MaxAttempts)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 120*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 5*time.Minute, cfg.GetAttemptTimeout())
	assert.Equal(t, 60*time.Second, cfg.GetExecuteTimeout())

	cfg.Execution.ExecuteTimeout = "-1s"
	assert.Equal(t, 60*time.Second, cfg.GetExecuteTimeout())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.LLM.APIKey = "k"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no key", func(c *Config) { c.LLM.APIKey = "" }, "API key"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "openai" }, "invalid LLM provider"},
		{"no model", func(c *Config) { c.LLM.Model = "" }, "model"},
		{"zero attempts", func(c *Config) { c.Synthesis.MaxAttempts = 0 }, "max_attempts"},
		{"bad isolation", func(c *Config) { c.Execution.Isolation = "docker" }, "isolation"},
		{"bad bounds", func(c *Config) { c.Synthesis.SampleChars = 0 }, "prompt bounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLayoutFor(t *testing.T) {
	ws := t.TempDir()
	cfg := DefaultConfig()

	layout := cfg.LayoutFor(ws, "icici")
	assert.Equal(t, filepath.Join(ws, "data", "icici", "icici_sample.pdf"), layout.PDFPath)
	assert.Equal(t, filepath.Join(ws, "data", "icici", "icici_sample.csv"), layout.ReferencePath)
	assert.Equal(t, filepath.Join(ws, "custom_parsers", "icici_parser.go"), layout.ArtifactPath)
}

func TestLayoutForPrefersExistingReference(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, "data", "sbi")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sbi_sample.xlsx"), []byte("x"), 0644))

	layout := DefaultConfig().LayoutFor(ws, "sbi")
	assert.Equal(t, filepath.Join(dir, "sbi_sample.xlsx"), layout.ReferencePath)
}

func TestLayoutForAbsoluteDirs(t *testing.T) {
	cfg := DefaultConfig()
	abs := t.TempDir()
	cfg.Paths.ParsersDir = abs

	layout := cfg.LayoutFor("/ws", "x")
	assert.Equal(t, filepath.Join(abs, "x_parser.go"), layout.ArtifactPath)
}
