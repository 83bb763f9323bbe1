package checks

import (
	"fmt"
	"strings"
)

// GoTestParser summarizes `go test ./...` output: it counts failing
// packages and surfaces the failing test names instead of the full log.
type GoTestParser struct{}

func (p *GoTestParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	var failed []string
	var failedPkgs int
	for _, line := range strings.Split(stdout, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--- FAIL: ") {
			name := strings.TrimPrefix(trimmed, "--- FAIL: ")
			if i := strings.IndexByte(name, ' '); i > 0 {
				name = name[:i]
			}
			failed = append(failed, name)
		}
		if strings.HasPrefix(line, "FAIL\t") {
			failedPkgs++
		}
	}

	if exitCode == 0 && len(failed) == 0 {
		return ParseResult{Passed: true, Summary: "all tests passed"}
	}

	summary := fmt.Sprintf("%d test(s) failed in %d package(s)", len(failed), failedPkgs)
	if len(failed) == 0 {
		// Build failure or panic before any test ran.
		summary = fmt.Sprintf("go test exited %d with no test failures reported", exitCode)
	}
	return ParseResult{
		Passed:   false,
		Summary:  summary,
		Findings: strings.Join(failed, "\n"),
	}
}
