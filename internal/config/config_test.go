package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

const sampleYAML = `
project:
  name: widget
  dir: /projects/widget
  constitution: docs/CONSTITUTION.md

pipeline:
  max_recovery_iterations: 3

consensus:
  threshold: 0.9
  quorum: 2
  reviewer_timeout: 90s
  reviewers:
    - id: security
      provider: claude
      model: opus
    - id: architecture
      provider: claude
      model: sonnet

retry:
  max_attempts: 4
  base_delay: 250ms
  max_delay: 4s

checks:
  build:
    command: make build
  test:
    command: go test ./...
  placeholder_scan:
    command: grep -rn "TODO\|FIXME" src/
    timeout: 30s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipewright.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Project.Name != "widget" {
		t.Errorf("Project.Name = %q", cfg.Project.Name)
	}
	if cfg.Pipeline.MaxRecoveryIterations != 3 {
		t.Errorf("MaxRecoveryIterations = %d, want 3", cfg.Pipeline.MaxRecoveryIterations)
	}
	if cfg.Consensus.Threshold != 0.9 {
		t.Errorf("Threshold = %v, want 0.9", cfg.Consensus.Threshold)
	}
	if len(cfg.Consensus.Reviewers) != 2 {
		t.Fatalf("Reviewers = %d, want 2", len(cfg.Consensus.Reviewers))
	}
	if cfg.Consensus.Reviewers[0].ID != "security" || cfg.Consensus.Reviewers[0].Model != "opus" {
		t.Errorf("Reviewers[0] = %+v", cfg.Consensus.Reviewers[0])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "project: [broken")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "project:\n  name: p\n  dir: /p\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Project.Constitution != "CONSTITUTION.md" {
		t.Errorf("Constitution = %q", cfg.Project.Constitution)
	}
	if cfg.Pipeline.MaxRecoveryIterations != pipeline.DefaultMaxRecoveryIterations {
		t.Errorf("MaxRecoveryIterations = %d", cfg.Pipeline.MaxRecoveryIterations)
	}
	if cfg.Consensus.Threshold != 0.85 {
		t.Errorf("Threshold = %v, want default 0.85", cfg.Consensus.Threshold)
	}
	if cfg.Consensus.Quorum != 2 {
		t.Errorf("Quorum = %d, want default 2", cfg.Consensus.Quorum)
	}
	if cfg.Consensus.MinReviewers != 2 {
		t.Errorf("MinReviewers = %d, want quorum default", cfg.Consensus.MinReviewers)
	}
	if got := cfg.ReviewerTimeout(); got != 2*time.Minute {
		t.Errorf("ReviewerTimeout = %v", got)
	}

	rp := cfg.RetryPolicy()
	if rp.MaxAttempts != 3 || rp.BaseDelay != 500*time.Millisecond || rp.MaxDelay != 8*time.Second {
		t.Errorf("RetryPolicy = %+v", rp)
	}
}

func TestDefaultParsersByCheckType(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Checks["test"].Parser; got != "gotest" {
		t.Errorf("test parser = %q, want gotest", got)
	}
	if got := cfg.Checks["placeholder_scan"].Parser; got != "placeholder" {
		t.Errorf("placeholder_scan parser = %q, want placeholder", got)
	}
	if got := cfg.Checks["build"].Parser; got != "generic" {
		t.Errorf("build parser = %q, want generic", got)
	}
}

func TestCheckConfigsSkipsUnconfigured(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfgs := cfg.CheckConfigs([]pipeline.CheckType{pipeline.CheckBuild, pipeline.CheckLint, pipeline.CheckTest})
	if len(cfgs) != 2 {
		t.Fatalf("got %d configs, want 2 (lint is not configured)", len(cfgs))
	}
	if cfgs[0].Type != pipeline.CheckBuild || cfgs[1].Type != pipeline.CheckTest {
		t.Errorf("configs = %+v", cfgs)
	}
}

func TestCheckConfigTimeout(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfgs := cfg.CheckConfigs([]pipeline.CheckType{pipeline.CheckPlaceholderScan})
	if len(cfgs) != 1 {
		t.Fatalf("got %d configs", len(cfgs))
	}
	if cfgs[0].Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfgs[0].Timeout)
	}

	// Unset timeout falls back to the default.
	cfgs = cfg.CheckConfigs([]pipeline.CheckType{pipeline.CheckBuild})
	if cfgs[0].Timeout != 2*time.Minute {
		t.Errorf("default Timeout = %v, want 2m", cfgs[0].Timeout)
	}
}

func TestConstitutionPath(t *testing.T) {
	cfg := &Config{}
	cfg.Project.Dir = "/projects/widget"
	cfg.Project.Constitution = "docs/CONSTITUTION.md"
	if got := cfg.ConstitutionPath(); got != "/projects/widget/docs/CONSTITUTION.md" {
		t.Errorf("ConstitutionPath = %q", got)
	}

	cfg.Project.Constitution = "/etc/constitution.md"
	if got := cfg.ConstitutionPath(); got != "/etc/constitution.md" {
		t.Errorf("absolute ConstitutionPath = %q", got)
	}
}

func TestValidateOK(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Validate = %v, want no errors", errs)
	}
}

func TestValidateErrors(t *testing.T) {
	raw := `
project:
  name: ""
consensus:
  threshold: 1.5
  quorum: 0
  min_reviewers: 2
  reviewers:
    - id: dup
    - id: dup
checks:
  mystery:
    command: ""
    parser: regex
    timeout: soon
`
	cfg, err := Load(writeConfig(t, raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	errs := Validate(cfg)
	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}

	want := []string{
		"project.name",
		"project.dir",
		"consensus.threshold",
		"consensus.reviewers[1].id",
		"checks.mystery",
		"checks.mystery.command",
		"checks.mystery.parser",
		"checks.mystery.timeout",
	}
	for _, f := range want {
		if !fields[f] {
			t.Errorf("missing validation error for %s (got %v)", f, errs)
		}
	}
}

func TestRules(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	rules := cfg.Rules()
	if rules.Threshold != 0.9 || rules.Quorum != 2 || rules.MinReviewers != 2 {
		t.Errorf("Rules = %+v", rules)
	}
}
