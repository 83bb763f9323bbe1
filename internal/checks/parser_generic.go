package checks

import "fmt"

// GenericParser is the fallback parser: exit code decides the verdict
// and failures retain the raw output.
type GenericParser struct{}

// maxOutputLen caps how much stdout/stderr a parser retains in findings.
const maxOutputLen = 8000

func (p *GenericParser) Parse(stdout string, stderr string, exitCode int) ParseResult {
	passed := exitCode == 0
	if passed {
		return ParseResult{Passed: true, Summary: "passed (exit code 0)"}
	}

	// Include actual output so operators and agents can see the errors.
	combined := stdout
	if stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += stderr
	}
	// Keep the tail — error summaries and tracebacks are usually at the end.
	if len(combined) > maxOutputLen {
		combined = "…(truncated)\n" + combined[len(combined)-maxOutputLen:]
	}

	return ParseResult{
		Passed:   false,
		Summary:  fmt.Sprintf("exit code %d, stdout=%d bytes, stderr=%d bytes", exitCode, len(stdout), len(stderr)),
		Findings: combined,
	}
}
