// Package artifact persists versioned, content-addressed pipeline
// documents under a project's docs/ tree and verifies them on demand.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// categoryDirs maps each artifact type to its docs/ subdirectory.
var categoryDirs = map[pipeline.ArtifactType]string{
	pipeline.ArtifactMasterPlan:          "master-plan",
	pipeline.ArtifactArchitecture:        "architecture",
	pipeline.ArtifactDependencyGraph:     "architecture",
	pipeline.ArtifactRolePlan:            "planning",
	pipeline.ArtifactConsensus:           "consensus",
	pipeline.ArtifactAuditReport:         "audit",
	pipeline.ArtifactReviewDecision:      "audit",
	pipeline.ArtifactReleaseNotes:        "release",
	pipeline.ArtifactProductionReadiness: "release",
	pipeline.ArtifactJournalistUpdate:    "release",
	pipeline.ArtifactQAValidation:        "qa",
	pipeline.ArtifactRCAReport:           "recovery",
	pipeline.ArtifactRecoveryLog:         "recovery",
	pipeline.ArtifactConstitution:        "governance",
	pipeline.ArtifactChangeRequest:       "governance",
	pipeline.ArtifactRepoSnapshot:        "implementation",
	pipeline.ArtifactImplementationLog:   "implementation",
	pipeline.ArtifactSkillDefinition:     "implementation",
}

// immutableTypes marks artifact kinds that must never be superseded
// in place. The constitution is the governance anchor for every gate.
var immutableTypes = map[pipeline.ArtifactType]bool{
	pipeline.ArtifactConstitution: true,
}

// Store writes artifacts under root/docs and keeps an in-memory arena
// indexed by id and group for version-chain lookups. It is owned by a
// single orchestrator loop and is not safe for concurrent use.
type Store struct {
	root    string
	all     []*pipeline.ArtifactEntry
	byID    map[string]*pipeline.ArtifactEntry
	byGroup map[string][]*pipeline.ArtifactEntry
}

// NewStore creates a Store rooted at the given pipeline directory.
func NewStore(root string) *Store {
	return &Store{
		root:    root,
		byID:    make(map[string]*pipeline.ArtifactEntry),
		byGroup: make(map[string][]*pipeline.ArtifactEntry),
	}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Load rebuilds the arena from persisted entries, for cold resume.
// Entries must be supplied in creation order so version chains index
// correctly.
func (s *Store) Load(entries []pipeline.ArtifactEntry) {
	s.all = make([]*pipeline.ArtifactEntry, 0, len(entries))
	s.byID = make(map[string]*pipeline.ArtifactEntry, len(entries))
	s.byGroup = make(map[string][]*pipeline.ArtifactEntry)
	for i := range entries {
		e := entries[i]
		s.all = append(s.all, &e)
		s.byID[e.ID] = &e
		s.byGroup[e.GroupID] = append(s.byGroup[e.GroupID], &e)
	}
}

// CreateText stores a text artifact and returns its entry. If groupID
// names an existing chain the new entry continues it at lastVersion+1;
// an empty groupID starts a fresh chain at version 1.
func (s *Store) CreateText(typ pipeline.ArtifactType, phase pipeline.Phase, content string, groupID string) (*pipeline.ArtifactEntry, error) {
	return s.create(typ, phase, []byte(content), pipeline.KindText, groupID)
}

// CreateJSON marshals v and stores it as a JSON artifact.
func (s *Store) CreateJSON(typ pipeline.ArtifactType, phase pipeline.Phase, v interface{}, groupID string) (*pipeline.ArtifactEntry, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s artifact: %w", typ, err)
	}
	data = append(data, '\n')
	return s.create(typ, phase, data, pipeline.KindJSON, groupID)
}

func (s *Store) create(typ pipeline.ArtifactType, phase pipeline.Phase, data []byte, kind pipeline.ContentKind, groupID string) (*pipeline.ArtifactEntry, error) {
	category, ok := categoryDirs[typ]
	if !ok {
		return nil, fmt.Errorf("unknown artifact type %q", typ)
	}

	version := 1
	previousID := ""
	if groupID == "" {
		groupID = uuid.NewString()
	} else if chain := s.byGroup[groupID]; len(chain) > 0 {
		last := chain[len(chain)-1]
		if last.Immutable {
			return nil, fmt.Errorf("artifact group %s is immutable, cannot append version", groupID)
		}
		version = last.Version + 1
		previousID = last.ID
	}

	ext := ".md"
	if kind == pipeline.KindJSON {
		ext = ".json"
	}
	shortGroup := groupID
	if len(shortGroup) > 8 {
		shortGroup = shortGroup[:8]
	}
	relPath := filepath.Join("docs", category, fmt.Sprintf("%s-%s-v%d%s", typ, shortGroup, version, ext))

	sum := sha256.Sum256(data)

	entry := &pipeline.ArtifactEntry{
		ID:         uuid.NewString(),
		Type:       typ,
		Phase:      phase,
		GroupID:    groupID,
		Version:    version,
		Path:       relPath,
		Hash:       hex.EncodeToString(sum[:]),
		Kind:       kind,
		Immutable:  immutableTypes[typ],
		PreviousID: previousID,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	if err := pipeline.WriteAtomic(filepath.Join(s.root, relPath), data); err != nil {
		return nil, fmt.Errorf("write artifact %s: %w", relPath, err)
	}

	s.all = append(s.all, entry)
	s.byID[entry.ID] = entry
	s.byGroup[groupID] = append(s.byGroup[groupID], entry)
	return entry, nil
}

// Verify recomputes the hash of the stored bytes and compares it with
// the recorded one. A missing file or a mismatch reports false; Verify
// never returns an error. This is the tamper-detection primitive the
// gate engine relies on.
func (s *Store) Verify(entry *pipeline.ArtifactEntry) bool {
	if entry == nil {
		return false
	}
	data, err := os.ReadFile(filepath.Join(s.root, entry.Path))
	if err != nil {
		return false
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == entry.Hash
}

// Read returns the stored bytes for an entry.
func (s *Store) Read(entry *pipeline.ArtifactEntry) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, entry.Path))
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", entry.Path, err)
	}
	return data, nil
}

// ReadJSON unmarshals a JSON artifact's bytes into v.
func (s *Store) ReadJSON(entry *pipeline.ArtifactEntry, v interface{}) error {
	data, err := s.Read(entry)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse artifact %s: %w", entry.Path, err)
	}
	return nil
}

// Ref returns a short human-readable reference for an entry.
func Ref(entry *pipeline.ArtifactEntry) string {
	short := entry.Hash
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("%s@v%d sha256:%s", entry.Type, entry.Version, short)
}

// ByID looks up an entry in the arena.
func (s *Store) ByID(id string) *pipeline.ArtifactEntry {
	return s.byID[id]
}

// Latest returns the newest version in a group's chain, or nil.
func (s *Store) Latest(groupID string) *pipeline.ArtifactEntry {
	chain := s.byGroup[groupID]
	if len(chain) == 0 {
		return nil
	}
	return chain[len(chain)-1]
}

// Chain returns the full version chain for a group, oldest first.
func (s *Store) Chain(groupID string) []pipeline.ArtifactEntry {
	chain := s.byGroup[groupID]
	out := make([]pipeline.ArtifactEntry, 0, len(chain))
	for _, e := range chain {
		out = append(out, *e)
	}
	return out
}

// List returns all known entries in creation order, optionally filtered
// by type. Pass "" to return everything.
func (s *Store) List(typ pipeline.ArtifactType) []pipeline.ArtifactEntry {
	var out []pipeline.ArtifactEntry
	for _, e := range s.all {
		if typ == "" || e.Type == typ {
			out = append(out, *e)
		}
	}
	return out
}
