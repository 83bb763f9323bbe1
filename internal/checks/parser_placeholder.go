package checks

import (
	"fmt"
	"strings"
)

// PlaceholderParser interprets placeholder-scan output (typically a
// grep over the worktree). Any hit means unfinished work slipped into
// the implementation, so a non-empty stdout fails even on exit 0 —
// grep exits 1 when it finds nothing, which is the passing case here.
type PlaceholderParser struct{}

func (p *PlaceholderParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	hits := 0
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) != "" {
			hits++
		}
	}

	if hits == 0 {
		return ParseResult{Passed: true, Summary: "no placeholders found"}
	}

	findings := stdout
	if len(findings) > maxOutputLen {
		findings = findings[:maxOutputLen] + "\n…(truncated)"
	}
	return ParseResult{
		Passed:   false,
		Summary:  fmt.Sprintf("%d placeholder marker(s) found", hits),
		Findings: findings,
	}
}
