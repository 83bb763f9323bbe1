package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Store manages pipeline state on disk, one directory per project.
type Store struct {
	baseDir string // defaults to ~/.pipewright/pipelines
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.pipewright/pipelines, creating the
// directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".pipewright", "pipelines")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// ProjectDir returns the directory path for a given project.
func (s *Store) ProjectDir(project string) string {
	return filepath.Join(s.baseDir, project)
}

// statePath returns the path to the pipeline.json file for a project.
func (s *Store) statePath(project string) string {
	return filepath.Join(s.ProjectDir(project), "pipeline.json")
}

// CreateOpts holds options for creating a pipeline.
type CreateOpts struct {
	Project               string
	ProjectDir            string
	MaxRecoveryIterations int // 0 means the default of 5
	ActiveRoles           []string
	SessionGuidance       string
}

// DefaultMaxRecoveryIterations bounds the recovery loop when a project
// does not configure its own limit.
const DefaultMaxRecoveryIterations = 5

// Create initialises a new pipeline on disk at the INTAKE phase.
func (s *Store) Create(opts CreateOpts) (*PipelineState, error) {
	if opts.Project == "" {
		return nil, fmt.Errorf("project name is required")
	}
	dir := s.ProjectDir(opts.Project)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("pipeline %q already exists", opts.Project)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	maxRecovery := opts.MaxRecoveryIterations
	if maxRecovery <= 0 {
		maxRecovery = DefaultMaxRecoveryIterations
	}

	now := time.Now().UTC().Format(time.RFC3339)
	ps := &PipelineState{
		Project:               opts.Project,
		ProjectDir:            opts.ProjectDir,
		Phase:                 PhaseIntake,
		Artifacts:             []ArtifactEntry{},
		GateResults:           make(map[Phase]*GateResult),
		GateChecks:            make(map[Phase][]CheckResult),
		Consensus:             make(map[Phase]*ConsensusRecord),
		ActiveRoles:           opts.ActiveRoles,
		MaxRecoveryIterations: maxRecovery,
		PendingChangeRequests: []ChangeRequest{},
		SessionGuidance:       opts.SessionGuidance,
		PhaseLog:              []PhaseLogEntry{},
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := WriteJSON(s.statePath(opts.Project), ps); err != nil {
		return nil, fmt.Errorf("write pipeline.json: %w", err)
	}
	return ps, nil
}

// Get reads the pipeline state for a project.
func (s *Store) Get(project string) (*PipelineState, error) {
	var ps PipelineState
	if err := ReadJSON(s.statePath(project), &ps); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("pipeline %q not found", project)
		}
		return nil, err
	}
	// Maps may be nil after a round-trip through older state files.
	if ps.GateResults == nil {
		ps.GateResults = make(map[Phase]*GateResult)
	}
	if ps.GateChecks == nil {
		ps.GateChecks = make(map[Phase][]CheckResult)
	}
	if ps.Consensus == nil {
		ps.Consensus = make(map[Phase]*ConsensusRecord)
	}
	return &ps, nil
}

// Update performs an atomic read-modify-write of the pipeline state.
func (s *Store) Update(project string, fn func(*PipelineState)) error {
	ps, err := s.Get(project)
	if err != nil {
		return err
	}
	fn(ps)
	ps.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return WriteJSON(s.statePath(project), ps)
}

// Save persists the given state verbatim, stamping UpdatedAt.
func (s *Store) Save(ps *PipelineState) error {
	ps.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return WriteJSON(s.statePath(ps.Project), ps)
}

// List returns all pipelines, optionally filtered by phase.
// Pass "" for phaseFilter to return all pipelines.
func (s *Store) List(phaseFilter Phase) ([]PipelineState, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var pipelines []PipelineState
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ps, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		if phaseFilter == "" || ps.Phase == phaseFilter {
			pipelines = append(pipelines, *ps)
		}
	}

	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].Project < pipelines[j].Project
	})
	return pipelines, nil
}

// Delete removes all data for a pipeline.
func (s *Store) Delete(project string) error {
	dir := s.ProjectDir(project)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("pipeline %q not found", project)
	}
	return os.RemoveAll(dir)
}
