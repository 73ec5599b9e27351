package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// Default values applied when foundry.yml omits the corresponding setting.
const (
	DefaultInstanceName   = "default"
	DefaultRedisURL       = "redis://localhost:6379"
	DefaultListenAddr     = ":8080"
	DefaultMaxIterations  = 5
	DefaultStepTimeoutSec = 120
)

// DefaultThresholds are the quality gates a draft must meet before the
// supervisor routes it to human approval.
var DefaultThresholds = map[blackboard.ScoreName]float64{
	blackboard.ScoreSafety:   0.8,
	blackboard.ScoreEmpathy:  0.7,
	blackboard.ScoreClinical: 0.7,
}

// Config represents the top-level foundry.yml configuration.
type Config struct {
	Version   string           `yaml:"version"`
	Instance  string           `yaml:"instance,omitempty"`
	RedisURL  string           `yaml:"redis_url,omitempty"`
	Listen    string           `yaml:"listen,omitempty"`
	Generator *GeneratorConfig `yaml:"generator,omitempty"`
	Workflow  *WorkflowConfig  `yaml:"workflow,omitempty"`
}

// GeneratorConfig selects and tunes the text generator backend.
type GeneratorConfig struct {
	Backend string `yaml:"backend,omitempty"` // "openai" or "offline" (default: offline)
	Model   string `yaml:"model,omitempty"`   // Backend model name (openai only)
}

// WorkflowConfig specifies supervisor behavior. Thresholds and the iteration
// ceiling are configuration, not per-session constants, so a test harness can
// override them.
type WorkflowConfig struct {
	MaxIterations  *int                             `yaml:"max_iterations,omitempty"`   // Revision ceiling before a forced human checkpoint (default 5)
	StepTimeoutSec *int                             `yaml:"step_timeout_sec,omitempty"` // Per-executor timeout in seconds (default 120)
	Thresholds     map[blackboard.ScoreName]float64 `yaml:"thresholds,omitempty"`       // Score gates (default safety 0.8, empathy 0.7, clinical 0.7)
}

// Load reads, parses, validates, and defaults a foundry.yml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a fully defaulted configuration, used when no foundry.yml
// is present.
func Default() *Config {
	cfg := &Config{Version: "1.0"}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in every omitted setting. Environment variables
// override file values for deployment-specific settings.
func (c *Config) applyDefaults() {
	if c.Instance == "" {
		c.Instance = DefaultInstanceName
	}
	if c.RedisURL == "" {
		c.RedisURL = DefaultRedisURL
	}
	if c.Listen == "" {
		c.Listen = DefaultListenAddr
	}

	if c.Generator == nil {
		c.Generator = &GeneratorConfig{}
	}
	if c.Generator.Backend == "" {
		c.Generator.Backend = "offline"
	}

	if c.Workflow == nil {
		c.Workflow = &WorkflowConfig{}
	}
	if c.Workflow.MaxIterations == nil {
		defaultMax := DefaultMaxIterations
		c.Workflow.MaxIterations = &defaultMax
	}
	if c.Workflow.StepTimeoutSec == nil {
		defaultTimeout := DefaultStepTimeoutSec
		c.Workflow.StepTimeoutSec = &defaultTimeout
	}
	if c.Workflow.Thresholds == nil {
		c.Workflow.Thresholds = make(map[blackboard.ScoreName]float64, len(DefaultThresholds))
	}
	for name, value := range DefaultThresholds {
		if _, ok := c.Workflow.Thresholds[name]; !ok {
			c.Workflow.Thresholds[name] = value
		}
	}

	// Environment overrides (deployment concerns, never workflow semantics)
	if v := os.Getenv("FOUNDRY_INSTANCE_NAME"); v != "" {
		c.Instance = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("FOUNDRY_LISTEN_ADDR"); v != "" {
		c.Listen = v
	}
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	switch c.Generator.Backend {
	case "openai", "offline":
	default:
		return fmt.Errorf("unknown generator backend: %q (expected: openai or offline)", c.Generator.Backend)
	}

	if *c.Workflow.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", *c.Workflow.MaxIterations)
	}

	if *c.Workflow.StepTimeoutSec < 1 {
		return fmt.Errorf("step_timeout_sec must be >= 1, got %d", *c.Workflow.StepTimeoutSec)
	}

	for name, value := range c.Workflow.Thresholds {
		if value < 0.0 || value > 1.0 {
			return fmt.Errorf("threshold %q out of range [0.0, 1.0]: %v", name, value)
		}
	}

	return nil
}

// Threshold returns the configured gate for a score dimension.
func (w *WorkflowConfig) Threshold(name blackboard.ScoreName) float64 {
	return w.Thresholds[name]
}
