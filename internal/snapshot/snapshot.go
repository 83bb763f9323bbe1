// Package snapshot captures the state of a project's git worktree so
// the implementation phase can record a verifiable repo_snapshot
// artifact alongside its check results.
package snapshot

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/lucasnoah/pipewright/internal/phase"
	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// GitRunner provides git commands. Interface for testing.
type GitRunner interface {
	Run(dir string, args ...string) (string, error)
}

// ExecGit implements GitRunner using exec.Command.
type ExecGit struct{}

func (g *ExecGit) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Summary is one captured view of the worktree.
type Summary struct {
	Commit     string   `json:"commit"`
	Branch     string   `json:"branch"`
	Dirty      []string `json:"dirty,omitempty"`
	DiffStat   string   `json:"diff_stat,omitempty"`
	CapturedAt string   `json:"captured_at"`
}

// Capture reads the worktree state at dir. A directory that is not a
// git repository is an error; uncommitted changes are not — they are
// recorded so the audit trail shows exactly what the checks ran
// against.
func Capture(git GitRunner, dir string) (*Summary, error) {
	commit, err := git.Run(dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}
	branch, err := git.Run(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}

	s := &Summary{
		Commit:     commit,
		Branch:     branch,
		CapturedAt: time.Now().UTC().Format(time.RFC3339),
	}

	status, err := git.Run(dir, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}
	for _, line := range strings.Split(status, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			s.Dirty = append(s.Dirty, line)
		}
	}

	// Best effort: an empty repo has no HEAD~ to diff against.
	if stat, err := git.Run(dir, "diff", "--stat", "HEAD"); err == nil {
		s.DiffStat = stat
	}

	return s, nil
}

// Markdown renders the summary as a snapshot document.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("# Repository Snapshot\n\n")
	fmt.Fprintf(&b, "- Commit: `%s`\n", s.Commit)
	fmt.Fprintf(&b, "- Branch: `%s`\n", s.Branch)
	fmt.Fprintf(&b, "- Captured: %s\n", s.CapturedAt)
	if len(s.Dirty) == 0 {
		b.WriteString("- Worktree: clean\n")
	} else {
		fmt.Fprintf(&b, "- Worktree: %d uncommitted change(s)\n\n", len(s.Dirty))
		b.WriteString("## Uncommitted changes\n\n```\n")
		for _, d := range s.Dirty {
			b.WriteString(d + "\n")
		}
		b.WriteString("```\n")
	}
	if s.DiffStat != "" {
		b.WriteString("\n## Diff stat\n\n```\n" + s.DiffStat + "\n```\n")
	}
	return b.String()
}

// NewHandler returns a phase handler that captures the worktree and
// stores it as a repo_snapshot artifact, continuing the existing
// version chain when one exists.
func NewHandler(git GitRunner) phase.Handler {
	return phase.Func(func(ctx context.Context, st *pipeline.PipelineState, env phase.Env) (*phase.Result, error) {
		sum, err := Capture(git, env.ProjectDir)
		if err != nil {
			return nil, err
		}

		groupID := ""
		if prev := st.LatestArtifact(pipeline.ArtifactRepoSnapshot); prev != nil {
			groupID = prev.GroupID
		}

		entry, err := env.Artifacts.CreateText(pipeline.ArtifactRepoSnapshot, st.Phase, sum.Markdown(), groupID)
		if err != nil {
			return nil, err
		}
		return &phase.Result{Artifacts: []pipeline.ArtifactEntry{*entry}}, nil
	})
}
