// Package config holds all sceneforge configuration. Settings load from a
// YAML file with environment-variable overrides for credentials, so nothing
// in the pipeline reads ambient state directly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all sceneforge configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM generation service
	LLM LLMConfig `yaml:"llm"`

	// Prompt/script generation behavior
	Generation GenerationConfig `yaml:"generation"`

	// Boundary safety injection
	Safety SafetyConfig `yaml:"safety"`

	// Renderer invocation
	Render RenderConfig `yaml:"render"`

	// Supervisor retry behavior
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Storyboard composition
	Compose ComposeConfig `yaml:"compose"`

	// Artifact audit store
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the generation service client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // anthropic, groq, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// GenerationConfig configures prompt handling and generated-text acceptance.
type GenerationConfig struct {
	// Expected Scene subclass name the renderer is invoked with.
	EntryType string `yaml:"entry_type"`

	// Run the prompt optimizer before code generation.
	OptimizePrompt bool `yaml:"optimize_prompt"`

	// Generate a narration script and align the animation with it.
	NarrationScript bool `yaml:"narration_script"`

	// Generated code shorter than this is GenerationUnavailable.
	MinCodeLen int `yaml:"min_code_len"`

	// Narration scripts shorter than this are GenerationUnavailable.
	MinScriptLen int `yaml:"min_script_len"`
}

// SafetyConfig configures the boundary-clamp injector. The thresholds are
// renderer-specific heuristics, so they are tunable rather than constants.
type SafetyConfig struct {
	// Offsets whose scalar magnitude exceeds this are rewritten to route
	// through the clamping helper.
	BoundaryThreshold float64 `yaml:"boundary_threshold"`

	// The injected helper clamps positions to this magnitude.
	ClampThreshold float64 `yaml:"clamp_threshold"`

	// Inject named region constants when more text elements than this exist
	// with no declared regions.
	RegionScaffoldMin int `yaml:"region_scaffold_min"`
}

// RenderConfig configures the external renderer process.
type RenderConfig struct {
	Binary         string `yaml:"binary"`  // renderer executable, default "manim"
	Quality        string `yaml:"quality"` // quality flag, e.g. "-qm"
	Format         string `yaml:"format"`  // output container, e.g. "mp4"
	OutputDir      string `yaml:"output_dir"`
	Timeout        string `yaml:"timeout"`
	MaxOutputBytes int64  `yaml:"max_output_bytes"`
}

// PipelineConfig configures the execution supervisor.
type PipelineConfig struct {
	// Maximum render attempts per candidate: initial, tier-escalated retry,
	// final last-resort attempt.
	MaxAttempts int `yaml:"max_attempts"`

	// Keep scratch scene files after a successful render.
	KeepScratch bool `yaml:"keep_scratch"`
}

// ComposeConfig configures storyboard decomposition and merging.
type ComposeConfig struct {
	// Segment pipelines run under a bounded worker pool; 1 = sequential.
	Workers int `yaml:"workers"`

	// Seconds of shared-timeline wait inserted between segments.
	InterSegmentPause float64 `yaml:"inter_segment_pause"`
}

// StoreConfig configures the artifact audit store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the categorized zap sink.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, console
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "sceneforge",
		Version: "1.0.0",

		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-20250514",
			BaseURL:  "https://api.anthropic.com/v1",
			Timeout:  "120s",
		},

		Generation: GenerationConfig{
			EntryType:       "CustomAnimation",
			OptimizePrompt:  true,
			NarrationScript: true,
			MinCodeLen:      50,
			MinScriptLen:    50,
		},

		Safety: SafetyConfig{
			BoundaryThreshold: 6.0,
			ClampThreshold:    6.5,
			RegionScaffoldMin: 3,
		},

		Render: RenderConfig{
			Binary:         "manim",
			Quality:        "-qm",
			Format:         "mp4",
			OutputDir:      "outputs",
			Timeout:        "300s",
			MaxOutputBytes: 1 << 20,
		},

		Pipeline: PipelineConfig{
			MaxAttempts: 3,
		},

		Compose: ComposeConfig{
			Workers:           1,
			InterSegmentPause: 0.5,
		},

		Store: StoreConfig{
			DatabasePath: "data/sceneforge.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
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

// applyEnvOverrides applies environment variable overrides. API keys are
// checked in priority order; the last one found wins and selects its provider
// unless the file already pinned one.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "anthropic"
		}
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "groq"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}

	if dir := os.Getenv("SCENEFORGE_OUTPUT_DIR"); dir != "" {
		c.Render.OutputDir = dir
	}
	if path := os.Getenv("SCENEFORGE_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Generation.EntryType == "" {
		return fmt.Errorf("generation.entry_type must not be empty")
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("pipeline.max_attempts must be at least 1")
	}
	if c.Safety.BoundaryThreshold <= 0 {
		return fmt.Errorf("safety.boundary_threshold must be positive")
	}
	if c.Safety.ClampThreshold < c.Safety.BoundaryThreshold {
		return fmt.Errorf("safety.clamp_threshold must be >= boundary_threshold")
	}
	if c.Compose.Workers < 1 {
		return fmt.Errorf("compose.workers must be at least 1")
	}
	if _, err := c.LLMTimeout(); err != nil {
		return fmt.Errorf("llm.timeout: %w", err)
	}
	if _, err := c.RenderTimeout(); err != nil {
		return fmt.Errorf("render.timeout: %w", err)
	}
	return nil
}

// LLMTimeout parses the LLM request timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// RenderTimeout parses the renderer invocation timeout.
func (c *Config) RenderTimeout() (time.Duration, error) {
	return parseDuration(c.Render.Timeout, 300*time.Second)
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
