package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lucasnoah/pipewright/internal/consensus"
	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// PipelineEvent represents a row in the pipeline_events table.
type PipelineEvent struct {
	ID        int
	Project   string
	Event     string
	Phase     string
	Detail    string
	Timestamp string
}

// CheckRun represents a row in the check_runs table.
type CheckRun struct {
	ID         int
	Project    string
	Phase      string
	CheckType  string
	Status     string
	ExitCode   int
	DurationMs int
	Summary    string
	Findings   string
	Timestamp  string
}

// ConsensusRound represents a row in the consensus_rounds table.
type ConsensusRound struct {
	ID            int
	Project       string
	Phase         string
	RoundID       string
	Status        string
	WeightedScore float64
	Participating int
	Timestamp     string
}

// LogPipelineEvent inserts a pipeline event.
func (d *DB) LogPipelineEvent(project, event string, phase pipeline.Phase, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO pipeline_events (project, event, phase, detail) VALUES (?, ?, ?, ?)`,
		project, event, string(phase), detail,
	)
	if err != nil {
		return fmt.Errorf("log pipeline event: %w", err)
	}
	return nil
}

// LogCheckRun inserts a check run.
func (d *DB) LogCheckRun(project string, phase pipeline.Phase, cr pipeline.CheckResult, findings string) error {
	_, err := d.conn.Exec(
		`INSERT INTO check_runs (project, phase, check_type, status, exit_code, duration_ms, summary, findings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		project, string(phase), string(cr.Type), cr.Status, cr.ExitCode, cr.DurationMs, cr.Summary, findings,
	)
	if err != nil {
		return fmt.Errorf("log check run: %w", err)
	}
	return nil
}

// LogConsensusRound inserts a consensus round outcome, with the full
// vote set serialized for later auditing.
func (d *DB) LogConsensusRound(project string, phase pipeline.Phase, roundID string, out consensus.Outcome) error {
	votes, err := json.Marshal(out.Votes)
	if err != nil {
		return fmt.Errorf("marshal votes: %w", err)
	}
	_, err = d.conn.Exec(
		`INSERT INTO consensus_rounds (project, phase, round_id, status, weighted_score, participating, votes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		project, string(phase), roundID, out.Status, out.WeightedScore, out.Participating, string(votes),
	)
	if err != nil {
		return fmt.Errorf("log consensus round: %w", err)
	}
	return nil
}

// RecentEvents returns the most recent pipeline events for a project,
// newest first.
func (d *DB) RecentEvents(project string, limit int) ([]PipelineEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(
		`SELECT id, project, event, phase, detail, timestamp
		 FROM pipeline_events WHERE project = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []PipelineEvent
	for rows.Next() {
		var e PipelineEvent
		var phase, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.Project, &e.Event, &phase, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Phase = phase.String
		e.Detail = detail.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// ConsensusHistory returns all consensus rounds for a project phase,
// newest first.
func (d *DB) ConsensusHistory(project string, phase pipeline.Phase) ([]ConsensusRound, error) {
	rows, err := d.conn.Query(
		`SELECT id, project, phase, round_id, status, weighted_score, participating, timestamp
		 FROM consensus_rounds WHERE project = ? AND phase = ? ORDER BY timestamp DESC, id DESC`,
		project, string(phase),
	)
	if err != nil {
		return nil, fmt.Errorf("query consensus history: %w", err)
	}
	defer rows.Close()

	var rounds []ConsensusRound
	for rows.Next() {
		var r ConsensusRound
		if err := rows.Scan(&r.ID, &r.Project, &r.Phase, &r.RoundID, &r.Status, &r.WeightedScore, &r.Participating, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan consensus round: %w", err)
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

// CheckPassRate returns pass and total counts per check type for a
// project, for spotting chronically failing checks.
func (d *DB) CheckPassRate(project string) (map[string][2]int, error) {
	rows, err := d.conn.Query(
		`SELECT check_type,
		        SUM(CASE WHEN status = 'pass' THEN 1 ELSE 0 END),
		        COUNT(*)
		 FROM check_runs WHERE project = ? GROUP BY check_type`,
		project,
	)
	if err != nil {
		return nil, fmt.Errorf("query check pass rate: %w", err)
	}
	defer rows.Close()

	out := make(map[string][2]int)
	for rows.Next() {
		var checkType string
		var passed, total int
		if err := rows.Scan(&checkType, &passed, &total); err != nil {
			return nil, fmt.Errorf("scan pass rate: %w", err)
		}
		out[checkType] = [2]int{passed, total}
	}
	return out, rows.Err()
}

// RecoveryCount returns how many times a project entered the recovery
// loop.
func (d *DB) RecoveryCount(project string) (int, error) {
	var count int
	err := d.conn.QueryRow(
		`SELECT COUNT(*) FROM pipeline_events WHERE project = ? AND event = 'recovery_entered'`,
		project,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("query recovery count: %w", err)
	}
	return count, nil
}
