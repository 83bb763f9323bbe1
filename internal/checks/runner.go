// Package checks runs the deterministic checks (build, test, lint, …)
// whose pass/fail results feed phase gates.
package checks

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// Result holds the structured output of a check run.
type Result struct {
	Type       pipeline.CheckType `json:"type"`
	Status     string             `json:"status"` // "pass", "fail"
	ExitCode   int                `json:"exit_code"`
	DurationMs int                `json:"duration_ms"`
	Summary    string             `json:"summary"`
	Findings   string             `json:"findings,omitempty"`
	Stdout     string             `json:"stdout,omitempty"`
	Stderr     string             `json:"stderr,omitempty"`
}

// Passed reports whether the check passed.
func (r *Result) Passed() bool {
	return r.Status == "pass"
}

// ToCheckResult trims a Result down to what the gate engine stores.
func (r *Result) ToCheckResult() pipeline.CheckResult {
	return pipeline.CheckResult{
		Type:       r.Type,
		Status:     r.Status,
		ExitCode:   r.ExitCode,
		DurationMs: r.DurationMs,
		Summary:    r.Summary,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// Config holds what the runner needs for a single check.
type Config struct {
	Type    pipeline.CheckType
	Command string
	Parser  string
	Timeout time.Duration
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// Runner executes checks and parses their output.
type Runner struct {
	cmd     CommandRunner
	parsers map[string]Parser
}

// NewRunner creates a Runner with the given command runner.
func NewRunner(cmd CommandRunner) *Runner {
	r := &Runner{
		cmd:     cmd,
		parsers: make(map[string]Parser),
	}
	r.parsers["gotest"] = &GoTestParser{}
	r.parsers["placeholder"] = &PlaceholderParser{}
	r.parsers["generic"] = &GenericParser{}
	return r
}

// Run executes a single check in the given directory under its timeout.
// A timeout reports a failed result, not an error; only infrastructure
// problems (the command could not start at all) error out.
func (r *Runner) Run(ctx context.Context, dir string, cfg Config) (*Result, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := r.cmd.Run(cctx, dir, cfg.Command)
	durationMs := int(time.Since(start).Milliseconds())

	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return &Result{
				Type:       cfg.Type,
				Status:     "fail",
				ExitCode:   -1,
				DurationMs: durationMs,
				Summary:    fmt.Sprintf("timeout after %s", timeout),
				Stdout:     stdout,
				Stderr:     stderr,
			}, nil
		}
		return nil, fmt.Errorf("run check %q: %w", cfg.Type, err)
	}

	parser, ok := r.parsers[cfg.Parser]
	if !ok {
		parser = r.parsers["generic"]
	}
	// Parsers own the verdict: the placeholder scan passes on grep's
	// exit 1 (no matches), so a bare exit-code test would be wrong.
	parsed := parser.Parse(stdout, stderr, exitCode)

	status := "fail"
	if parsed.Passed {
		status = "pass"
	}

	return &Result{
		Type:       cfg.Type,
		Status:     status,
		ExitCode:   exitCode,
		DurationMs: durationMs,
		Summary:    parsed.Summary,
		Findings:   parsed.Findings,
		Stdout:     stdout,
		Stderr:     stderr,
	}, nil
}

// RunAll executes every configured check in order and returns all
// results. It does not stop at the first failure — the gate wants the
// complete picture.
func (r *Runner) RunAll(ctx context.Context, dir string, cfgs []Config) ([]*Result, error) {
	var results []*Result
	for _, cfg := range cfgs {
		res, err := r.Run(ctx, dir, cfg)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
