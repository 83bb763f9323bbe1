package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/pipewright/internal/checks"
	"github.com/lucasnoah/pipewright/internal/consensus"
	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// Load reads and parses a project configuration from the given YAML
// file path, then applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./pipewright.yaml, ~/.pipewright/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"pipewright.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".pipewright", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no config found (searched: %v)", candidates)
}

// applyDefaults fills in the values a minimal config may omit.
func applyDefaults(cfg *Config) {
	if cfg.Project.Constitution == "" {
		cfg.Project.Constitution = "CONSTITUTION.md"
	}
	if cfg.Pipeline.MaxRecoveryIterations <= 0 {
		cfg.Pipeline.MaxRecoveryIterations = pipeline.DefaultMaxRecoveryIterations
	}
	if cfg.Consensus.Threshold == 0 {
		cfg.Consensus.Threshold = 0.85
	}
	if cfg.Consensus.Quorum <= 0 {
		cfg.Consensus.Quorum = 2
	}
	if cfg.Consensus.MinReviewers <= 0 {
		cfg.Consensus.MinReviewers = cfg.Consensus.Quorum
	}
	if cfg.Consensus.ReviewerTimeout == "" {
		cfg.Consensus.ReviewerTimeout = "2m"
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelay == "" {
		cfg.Retry.BaseDelay = "500ms"
	}
	if cfg.Retry.MaxDelay == "" {
		cfg.Retry.MaxDelay = "8s"
	}

	// Default parsers by check type: go test output and the placeholder
	// scan have dedicated parsers, everything else is generic.
	for name, chk := range cfg.Checks {
		if chk.Parser != "" {
			continue
		}
		switch pipeline.CheckType(name) {
		case pipeline.CheckTest:
			chk.Parser = "gotest"
		case pipeline.CheckPlaceholderScan:
			chk.Parser = "placeholder"
		default:
			chk.Parser = "generic"
		}
		cfg.Checks[name] = chk
	}
}

// Rules returns the consensus rules this config defines.
func (c *Config) Rules() consensus.Rules {
	return consensus.Rules{
		Threshold:    c.Consensus.Threshold,
		Quorum:       c.Consensus.Quorum,
		MinReviewers: c.Consensus.MinReviewers,
	}
}

// RetryPolicy returns the retry policy this config defines.
func (c *Config) RetryPolicy() consensus.RetryPolicy {
	return consensus.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   parseDuration(c.Retry.BaseDelay, 500*time.Millisecond),
		MaxDelay:    parseDuration(c.Retry.MaxDelay, 8*time.Second),
	}
}

// ReviewerTimeout returns the per-reviewer timeout.
func (c *Config) ReviewerTimeout() time.Duration {
	return parseDuration(c.Consensus.ReviewerTimeout, 2*time.Minute)
}

// CheckConfigs resolves runner configs for the given check types. Types
// with no configured command are skipped; the gate will block on their
// absence.
func (c *Config) CheckConfigs(types []pipeline.CheckType) []checks.Config {
	var out []checks.Config
	for _, t := range types {
		chk, ok := c.Checks[string(t)]
		if !ok || chk.Command == "" {
			continue
		}
		out = append(out, checks.Config{
			Type:    t,
			Command: chk.Command,
			Parser:  chk.Parser,
			Timeout: parseDuration(chk.Timeout, 2*time.Minute),
		})
	}
	return out
}

// ConstitutionPath returns the absolute path of the governance document.
func (c *Config) ConstitutionPath() string {
	if filepath.IsAbs(c.Project.Constitution) {
		return c.Project.Constitution
	}
	return filepath.Join(c.Project.Dir, c.Project.Constitution)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
