package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultMaxAttempts bounds the synthesis loop.
const DefaultMaxAttempts = 3

// DefaultConfigFile is looked up in the workspace when --config is not given.
const DefaultConfigFile = "parsersmith.yaml"

// Isolation modes for running generated candidates.
const (
	IsolationSubprocess = "subprocess"
	IsolationInProcess  = "inprocess"
)

// Config holds all parsersmith configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Synthesis loop
	Synthesis SynthesisConfig `yaml:"synthesis"`

	// Candidate execution
	Execution ExecutionConfig `yaml:"execution"`

	// On-disk layout
	Paths PathsConfig `yaml:"paths"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Metrics
	Metrics MetricsConfig `yaml:"metrics"`
}

// LLMConfig configures the synthesis provider.
type LLMConfig struct {
	Provider          string  `yaml:"provider"` // gemini
	APIKey            string  `yaml:"api_key"`
	Model             string  `yaml:"model"`
	Timeout           string  `yaml:"timeout"`
	Temperature       float64 `yaml:"temperature"`
	MaxOutputTokens   int     `yaml:"max_output_tokens"`
	RequestsPerMinute int     `yaml:"requests_per_minute"` // 0 disables spacing
}

// SynthesisConfig configures the attempt loop and prompt size.
type SynthesisConfig struct {
	MaxAttempts int  `yaml:"max_attempts"`
	SampleChars int  `yaml:"sample_chars"`
	PreviewRows int  `yaml:"preview_rows"`
	Feedback    bool `yaml:"feedback"` // include the previous failure in the next prompt
}

// ExecutionConfig configures how candidates run.
type ExecutionConfig struct {
	Isolation      string `yaml:"isolation"` // subprocess, inprocess
	AttemptTimeout string `yaml:"attempt_timeout"`
	ExecuteTimeout string `yaml:"execute_timeout"`
}

// PathsConfig locates inputs and generated parsers, relative to the workspace.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir"`
	ParsersDir string `yaml:"parsers_dir"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	DebugMode  bool            `yaml:"debug_mode"` // false = warnings to stderr only
	Categories map[string]bool `yaml:"categories"` // per-category toggles
}

// MetricsConfig configures the textfile metrics export.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"` // empty disables export
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "gemini",
			Model:             "gemini-2.5-flash",
			Timeout:           "120s",
			Temperature:       0.2,
			MaxOutputTokens:   8192,
			RequestsPerMinute: 10,
		},

		Synthesis: SynthesisConfig{
			MaxAttempts: DefaultMaxAttempts,
			SampleChars: 2000,
			PreviewRows: 10,
			Feedback:    true,
		},

		Execution: ExecutionConfig{
			Isolation:      IsolationSubprocess,
			AttemptTimeout: "5m",
			ExecuteTimeout: "60s",
		},

		Paths: PathsConfig{
			DataDir:    "data",
			ParsersDir: "custom_parsers",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadDotEnv loads <dir>/.env into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// GEMINI_API_KEY wins over GOOGLE_API_KEY, as in the genai SDK.
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("PARSERSMITH_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if v := os.Getenv("PARSERSMITH_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Synthesis.MaxAttempts = n
		}
	}
	if v := os.Getenv("PARSERSMITH_ISOLATION"); v != "" {
		c.Execution.Isolation = v
	}
}

// GetLLMTimeout returns the per-call provider timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// GetAttemptTimeout returns the budget for one full attempt.
func (c *Config) GetAttemptTimeout() time.Duration {
	return parseDuration(c.Execution.AttemptTimeout, 5*time.Minute)
}

// GetExecuteTimeout returns the budget for one candidate run.
func (c *Config) GetExecuteTimeout() time.Duration {
	return parseDuration(c.Execution.ExecuteTimeout, 60*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate validates the configuration for a synthesis run.
func (c *Config) Validate() error {
	if c.LLM.Provider != "gemini" {
		return fmt.Errorf("invalid LLM provider: %s (valid: [gemini])", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY or GOOGLE_API_KEY)")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM model not configured")
	}
	if c.Synthesis.MaxAttempts < 1 {
		return fmt.Errorf("synthesis.max_attempts must be at least 1, got %d", c.Synthesis.MaxAttempts)
	}
	if c.Synthesis.SampleChars < 1 || c.Synthesis.PreviewRows < 0 {
		return fmt.Errorf("invalid prompt bounds: sample_chars=%d preview_rows=%d",
			c.Synthesis.SampleChars, c.Synthesis.PreviewRows)
	}
	switch c.Execution.Isolation {
	case IsolationSubprocess, IsolationInProcess:
	default:
		return fmt.Errorf("invalid execution.isolation: %q (valid: %s, %s)",
			c.Execution.Isolation, IsolationSubprocess, IsolationInProcess)
	}
	return nil
}

// Layout resolves the input and artifact paths for one target id.
type Layout struct {
	ID            string
	PDFPath       string
	ReferencePath string
	ArtifactPath  string
}

// ReferenceExtensions are tried in order when locating a reference table.
var ReferenceExtensions = []string{".csv", ".xlsx"}

// LayoutFor resolves data/<id>/<id>_sample.{pdf,csv} and
// custom_parsers/<id>_parser.go under the workspace.
func (c *Config) LayoutFor(workspace, id string) Layout {
	dir := filepath.Join(c.DataDir(workspace), id)
	ref := filepath.Join(dir, id+"_sample"+ReferenceExtensions[0])
	for _, ext := range ReferenceExtensions {
		p := filepath.Join(dir, id+"_sample"+ext)
		if _, err := os.Stat(p); err == nil {
			ref = p
			break
		}
	}

	return Layout{
		ID:            id,
		PDFPath:       filepath.Join(dir, id+"_sample.pdf"),
		ReferencePath: ref,
		ArtifactPath:  filepath.Join(c.ParsersDir(workspace), id+"_parser.go"),
	}
}

// DataDir returns the absolute data directory.
func (c *Config) DataDir(workspace string) string {
	if filepath.IsAbs(c.Paths.DataDir) {
		return c.Paths.DataDir
	}
	return filepath.Join(workspace, c.Paths.DataDir)
}

// ParsersDir returns the absolute parsers directory.
func (c *Config) ParsersDir(workspace string) string {
	if filepath.IsAbs(c.Paths.ParsersDir) {
		return c.Paths.ParsersDir
	}
	return filepath.Join(workspace, c.Paths.ParsersDir)
}
