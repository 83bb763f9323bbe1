package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/lucasnoah/pipewright/internal/artifact"
	"github.com/lucasnoah/pipewright/internal/gate"
	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// HashFile returns the SHA-256 hex digest of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyConstitution re-checks the governance document before a gate
// evaluation. The hash captured at INTAKE must still match the file on
// disk, and the stored constitution artifact must still verify. Any
// mismatch is reported as tampering, kept distinct from ordinary
// quality blockers by the "constitution:" prefix the gate applies.
func VerifyConstitution(ps *pipeline.PipelineState, arts *artifact.Store, path string) *gate.Overrides {
	// Nothing to enforce until INTAKE has captured a hash.
	if ps.ConstitutionHash == "" {
		return &gate.Overrides{ConstitutionValid: true}
	}

	current, err := HashFile(path)
	if err != nil {
		return &gate.Overrides{
			ConstitutionValid:  false,
			ConstitutionReason: fmt.Sprintf("constitution file unreadable: %v", err),
		}
	}
	if current != ps.ConstitutionHash {
		return &gate.Overrides{
			ConstitutionValid:  false,
			ConstitutionReason: "constitution hash mismatch, governance document was modified after intake",
		}
	}

	if entry := ps.LatestArtifact(pipeline.ArtifactConstitution); entry != nil && !arts.Verify(entry) {
		return &gate.Overrides{
			ConstitutionValid:  false,
			ConstitutionReason: "stored constitution artifact failed verification",
		}
	}

	return &gate.Overrides{ConstitutionValid: true}
}
