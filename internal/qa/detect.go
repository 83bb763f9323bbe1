// Package qa inspects a project worktree and derives default commands
// for checks the configuration leaves unspecified, so a fresh project
// gets a working build/test/lint gate without any checks stanza.
package qa

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// Toolchain labels for detection results.
const (
	ToolchainGo      = "go"
	ToolchainNode    = "node"
	ToolchainPython  = "python"
	ToolchainUnknown = "unknown"
)

// Detection holds the analysis of one project directory.
type Detection struct {
	Toolchain string                        `json:"toolchain"`
	Reasons   []string                      `json:"reasons"`
	Commands  map[pipeline.CheckType]string `json:"commands"`
}

// Command returns the derived command for a check type, if any.
func (d *Detection) Command(check pipeline.CheckType) (string, bool) {
	cmd, ok := d.Commands[check]
	return cmd, ok
}

// placeholderScan flags unfinished work left in the tree. The scan
// deliberately skips dotdirs and dependency trees; the placeholder
// parser treats any output line as a hit.
const placeholderScan = `grep -rn -E "TODO|FIXME|XXX|not implemented" --exclude-dir=.git --exclude-dir=node_modules --exclude-dir=vendor --include="*.go" --include="*.ts" --include="*.tsx" --include="*.js" --include="*.py" .`

// makeTargetPattern matches top-level Makefile rule names.
var makeTargetPattern = regexp.MustCompile(`(?m)^([a-zA-Z][a-zA-Z0-9_-]*):`)

// Detect analyzes the project directory and derives check commands for
// its toolchain. Makefile targets named after a check type win over the
// toolchain default: a project that defines `make build` knows better.
func Detect(dir string) *Detection {
	d := &Detection{
		Toolchain: ToolchainUnknown,
		Reasons:   []string{},
		Commands:  map[pipeline.CheckType]string{},
	}

	switch {
	case exists(dir, "go.mod"):
		d.Toolchain = ToolchainGo
		d.Reasons = append(d.Reasons, "go.mod present")
		d.Commands[pipeline.CheckBuild] = "go build ./..."
		d.Commands[pipeline.CheckTest] = "go test ./..."
		d.Commands[pipeline.CheckTypecheck] = "go vet ./..."
		d.Commands[pipeline.CheckLint] = `test -z "$(gofmt -l .)"`
	case exists(dir, "package.json"):
		d.Toolchain = ToolchainNode
		d.Reasons = append(d.Reasons, "package.json present")
		d.Commands[pipeline.CheckBuild] = "npm run build"
		d.Commands[pipeline.CheckTest] = "npm test"
		if exists(dir, "tsconfig.json") {
			d.Reasons = append(d.Reasons, "tsconfig.json present")
			d.Commands[pipeline.CheckTypecheck] = "npx tsc --noEmit"
		}
	case exists(dir, "pyproject.toml"):
		d.Toolchain = ToolchainPython
		d.Reasons = append(d.Reasons, "pyproject.toml present")
		d.Commands[pipeline.CheckTest] = "pytest"
	}

	d.Commands[pipeline.CheckPlaceholderScan] = placeholderScan

	for _, target := range makeTargets(dir) {
		switch target {
		case "build", "test", "lint", "typecheck", "migration", "start":
			d.Commands[pipeline.CheckType(target)] = "make " + target
			d.Reasons = append(d.Reasons, "Makefile target: "+target)
		}
	}

	return d
}

// makeTargets lists rule names from the project Makefile, if one exists.
func makeTargets(dir string) []string {
	data, err := os.ReadFile(filepath.Join(dir, "Makefile"))
	if err != nil {
		return nil
	}
	var targets []string
	for _, m := range makeTargetPattern.FindAllStringSubmatch(string(data), -1) {
		targets = append(targets, m[1])
	}
	return targets
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
