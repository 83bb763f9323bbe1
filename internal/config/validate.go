package config

import (
	"fmt"
	"time"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedParsers is the set of valid parser names for checks.
var recognizedParsers = map[string]bool{
	"gotest":      true,
	"placeholder": true,
	"generic":     true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Project.Name == "" {
		errs = append(errs, ValidationError{Field: "project.name", Message: "is required"})
	}
	if cfg.Project.Dir == "" {
		errs = append(errs, ValidationError{Field: "project.dir", Message: "is required"})
	}

	if t := cfg.Consensus.Threshold; t < 0 || t > 1 {
		errs = append(errs, ValidationError{
			Field:   "consensus.threshold",
			Message: fmt.Sprintf("must be in [0,1], got %v", t),
		})
	}
	if cfg.Consensus.Quorum < 1 {
		errs = append(errs, ValidationError{Field: "consensus.quorum", Message: "must be at least 1"})
	}
	if len(cfg.Consensus.Reviewers) < cfg.Consensus.MinReviewers {
		errs = append(errs, ValidationError{
			Field: "consensus.reviewers",
			Message: fmt.Sprintf("%d reviewer(s) configured but min_reviewers is %d",
				len(cfg.Consensus.Reviewers), cfg.Consensus.MinReviewers),
		})
	}

	seen := make(map[string]bool)
	for i, r := range cfg.Consensus.Reviewers {
		prefix := fmt.Sprintf("consensus.reviewers[%d]", i)
		if r.ID == "" {
			errs = append(errs, ValidationError{Field: prefix + ".id", Message: "is required"})
			continue
		}
		if seen[r.ID] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".id",
				Message: fmt.Sprintf("duplicate reviewer ID %q", r.ID),
			})
		}
		seen[r.ID] = true
	}

	// Check keys must be check types the runner understands.
	known := make(map[string]bool, len(pipeline.AllCheckTypes))
	for _, t := range pipeline.AllCheckTypes {
		known[string(t)] = true
	}
	for name, chk := range cfg.Checks {
		prefix := fmt.Sprintf("checks.%s", name)
		if !known[name] {
			errs = append(errs, ValidationError{
				Field:   prefix,
				Message: fmt.Sprintf("unrecognized check type %q", name),
			})
		}
		if chk.Command == "" {
			errs = append(errs, ValidationError{Field: prefix + ".command", Message: "is required"})
		}
		if chk.Parser != "" && !recognizedParsers[chk.Parser] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".parser",
				Message: fmt.Sprintf("unrecognized parser %q", chk.Parser),
			})
		}
		if chk.Timeout != "" {
			if _, err := time.ParseDuration(chk.Timeout); err != nil {
				errs = append(errs, ValidationError{
					Field:   prefix + ".timeout",
					Message: fmt.Sprintf("invalid duration %q", chk.Timeout),
				})
			}
		}
	}

	return errs
}
