package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides_LLM(t *testing.T) {
	t.Run("GOOGLE_API_KEY sets key", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "google-key")
		t.Setenv("GEMINI_API_KEY", "")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "google-key", cfg.LLM.APIKey)
	})

	t.Run("Precedence: GEMINI overrides GOOGLE", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "google-key")
		t.Setenv("GEMINI_API_KEY", "gemini-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	})

	t.Run("Empty env keeps file value", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")

		cfg := &Config{LLM: LLMConfig{APIKey: "from-file"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "from-file", cfg.LLM.APIKey)
	})

	t.Run("PARSERSMITH_MODEL", func(t *testing.T) {
		t.Setenv("PARSERSMITH_MODEL", "gemini-2.5-pro")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	})
}

func TestEnvOverrides_Synthesis(t *testing.T) {
	t.Run("valid attempts", func(t *testing.T) {
		t.Setenv("PARSERSMITH_MAX_ATTEMPTS", "4")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, 4, cfg.Synthesis.MaxAttempts)
	})

	t.Run("garbage attempts ignored", func(t *testing.T) {
		t.Setenv("PARSERSMITH_MAX_ATTEMPTS", "many")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, DefaultMaxAttempts, cfg.Synthesis.MaxAttempts)
	})

	t.Run("isolation", func(t *testing.T) {
		t.Setenv("PARSERSMITH_ISOLATION", IsolationInProcess)
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, IsolationInProcess, cfg.Execution.Isolation)
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PARSERSMITH_TEST_DOTENV=from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("PARSERSMITH_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "from-dotenv", os.Getenv("PARSERSMITH_TEST_DOTENV"))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("PARSERSMITH_TEST_KEEP=from-dotenv\n"), 0644))
	t.Setenv("PARSERSMITH_TEST_KEEP", "from-shell")

	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "from-shell", os.Getenv("PARSERSMITH_TEST_KEEP"))
}

func TestLoadDotEnvMissing(t *testing.T) {
	assert.NoError(t, LoadDotEnv(t.TempDir()))
}
