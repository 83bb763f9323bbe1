package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// WriteIndex regenerates docs/INDEX.md listing every artifact with its
// phase, type, and version. The index is derived output, never read
// back as authoritative state.
func (s *Store) WriteIndex(entries []pipeline.ArtifactEntry) error {
	var b strings.Builder
	b.WriteString("# Artifact Index\n\n")
	b.WriteString("Regenerated on every pipeline step. Do not edit.\n\n")
	b.WriteString("| Phase | Type | Version | Path | Hash |\n")
	b.WriteString("|-------|------|---------|------|------|\n")
	for _, e := range entries {
		short := e.Hash
		if len(short) > 12 {
			short = short[:12]
		}
		fmt.Fprintf(&b, "| %s | %s | v%d | %s | %s |\n", e.Phase, e.Type, e.Version, e.Path, short)
	}

	path := filepath.Join(s.root, "docs", "INDEX.md")
	if err := pipeline.WriteAtomic(path, []byte(b.String())); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
