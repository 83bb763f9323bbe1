package config

// Config is the top-level structure parsed from project YAML.
type Config struct {
	Project   Project          `yaml:"project"`
	Pipeline  Pipeline         `yaml:"pipeline"`
	Consensus Consensus        `yaml:"consensus"`
	Retry     Retry            `yaml:"retry"`
	Checks    map[string]Check `yaml:"checks"`
}

// Project identifies the codebase under delivery and its governance
// document.
type Project struct {
	Name         string `yaml:"name"`
	Dir          string `yaml:"dir"`
	Constitution string `yaml:"constitution"` // relative to dir
}

// Pipeline holds orchestration knobs.
type Pipeline struct {
	BaseDir               string `yaml:"base_dir"`
	MaxRecoveryIterations int    `yaml:"max_recovery_iterations"`
}

// Consensus configures reviewer rounds for the consensus phases.
type Consensus struct {
	Threshold       float64    `yaml:"threshold"`
	Quorum          int        `yaml:"quorum"`
	MinReviewers    int        `yaml:"min_reviewers"`
	ReviewerTimeout string     `yaml:"reviewer_timeout"`
	Reviewers       []Reviewer `yaml:"reviewers"`
}

// Reviewer names one independent vote source.
type Reviewer struct {
	ID       string `yaml:"id"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Retry bounds retries for reviewer and other AI-backed calls.
type Retry struct {
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelay   string `yaml:"base_delay"`
	MaxDelay    string `yaml:"max_delay"`
}

// Check defines a deterministic check command keyed by check type.
type Check struct {
	Command string `yaml:"command"`
	Parser  string `yaml:"parser"`
	Timeout string `yaml:"timeout"`
}
