package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/reelplan/reelplan/internal/asset"
)

// VersionRecord is one committed asset version as read back from the store.
type VersionRecord struct {
	ProjectID  string
	Kind       asset.Kind
	StableID   string
	Version    int64
	Payload    []byte
	Provenance []byte
	Status     asset.Status
	CreatedAt  time.Time
}

// Get reads one asset version. A version of 0 resolves the current head.
func (s *Store) Get(ctx context.Context, projectID string, kind asset.Kind, stableID string, version int64) (*VersionRecord, error) {
	if version <= 0 {
		head, err := s.Head(ctx, projectID, kind, stableID)
		if err != nil {
			return nil, err
		}
		if head == 0 {
			return nil, &asset.NotFoundError{Resource: string(kind), ID: stableID}
		}
		version = head
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT payload, provenance, status, created_at
		FROM asset_versions
		WHERE project_id = ? AND kind = ? AND stable_id = ? AND version = ?
	`, projectID, string(kind), stableID, version)

	rec := VersionRecord{
		ProjectID: projectID,
		Kind:      kind,
		StableID:  stableID,
		Version:   version,
	}
	var payload, provenance, status, createdAt string
	if err := row.Scan(&payload, &provenance, &status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &asset.NotFoundError{Resource: string(kind), ID: stableID, Version: version}
		}
		return nil, fmt.Errorf("get %s %s v%d: %w", kind, stableID, version, err)
	}
	rec.Payload = []byte(payload)
	rec.Provenance = []byte(provenance)
	rec.Status = asset.Status(status)
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

// Head returns the current head version for a stable id, or 0 if the stable
// id has never been written.
func (s *Store) Head(ctx context.Context, projectID string, kind asset.Kind, stableID string) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `
		SELECT version FROM heads
		WHERE project_id = ? AND kind = ? AND stable_id = ?
	`, projectID, string(kind), stableID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("head %s %s: %w", kind, stableID, err)
	}
	return version, nil
}

// ListVersions returns every committed version of one stable id in ascending
// version order.
func (s *Store) ListVersions(ctx context.Context, projectID string, kind asset.Kind, stableID string) ([]VersionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, payload, provenance, status, created_at
		FROM asset_versions
		WHERE project_id = ? AND kind = ? AND stable_id = ?
		ORDER BY version ASC
	`, projectID, string(kind), stableID)
	if err != nil {
		return nil, fmt.Errorf("list versions %s %s: %w", kind, stableID, err)
	}
	defer rows.Close()

	var out []VersionRecord
	for rows.Next() {
		rec := VersionRecord{ProjectID: projectID, Kind: kind, StableID: stableID}
		var payload, provenance, status, createdAt string
		if err := rows.Scan(&rec.Version, &payload, &provenance, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("list versions %s %s: scan: %w", kind, stableID, err)
		}
		rec.Payload = []byte(payload)
		rec.Provenance = []byte(provenance)
		rec.Status = asset.Status(status)
		rec.CreatedAt = parseTime(createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions %s %s: %w", kind, stableID, err)
	}
	return out, nil
}

// ListStableIDs returns every stable id of one kind in a project, in lexical
// order for deterministic output.
func (s *Store) ListStableIDs(ctx context.Context, projectID string, kind asset.Kind) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stable_id FROM heads
		WHERE project_id = ? AND kind = ?
		ORDER BY stable_id ASC
	`, projectID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", kind, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list %s ids: scan: %w", kind, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s ids: %w", kind, err)
	}
	return out, nil
}

// GetContinuityReport returns the stored issue list for one shot plan
// version, or NotFoundError if that version was never validated.
func (s *Store) GetContinuityReport(ctx context.Context, projectID, shotPlanID string, version int64) ([]byte, error) {
	var report string
	err := s.db.QueryRowContext(ctx, `
		SELECT report FROM continuity_reports
		WHERE project_id = ? AND shot_plan_id = ? AND version = ?
	`, projectID, shotPlanID, version).Scan(&report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &asset.NotFoundError{Resource: "continuity_report", ID: shotPlanID, Version: version}
	}
	if err != nil {
		return nil, fmt.Errorf("get continuity report %s v%d: %w", shotPlanID, version, err)
	}
	return []byte(report), nil
}

// GetProject reads one project row.
func (s *Store) GetProject(ctx context.Context, projectID string) (*asset.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT title, created_at, active FROM projects WHERE project_id = ?
	`, projectID)

	var title, createdAt, active string
	if err := row.Scan(&title, &createdAt, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &asset.NotFoundError{Resource: "project", ID: projectID}
		}
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	return buildProject(projectID, title, createdAt, active)
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects(ctx context.Context) ([]asset.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, title, created_at, active
		FROM projects
		ORDER BY created_at ASC, project_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []asset.Project
	for rows.Next() {
		var projectID, title, createdAt, active string
		if err := rows.Scan(&projectID, &title, &createdAt, &active); err != nil {
			return nil, fmt.Errorf("list projects: scan: %w", err)
		}
		p, err := buildProject(projectID, title, createdAt, active)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// GetJob reads one job record.
func (s *Store) GetJob(ctx context.Context, jobID string) (*asset.Job, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `
		SELECT record FROM jobs WHERE job_id = ?
	`, jobID).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &asset.NotFoundError{Resource: "job", ID: jobID}
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}

	var job asset.Job
	if err := json.Unmarshal([]byte(record), &job); err != nil {
		return nil, fmt.Errorf("get job %s: decode record: %w", jobID, err)
	}
	return &job, nil
}

// ListJobs returns a project's jobs ordered by creation time.
func (s *Store) ListJobs(ctx context.Context, projectID string) ([]asset.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record FROM jobs
		WHERE project_id = ?
		ORDER BY created_at ASC, job_id ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []asset.Job
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("list jobs: scan: %w", err)
		}
		var job asset.Job
		if err := json.Unmarshal([]byte(record), &job); err != nil {
			return nil, fmt.Errorf("list jobs: decode record: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return out, nil
}

func buildProject(projectID, title, createdAt, active string) (*asset.Project, error) {
	var refs activeRefs
	if err := json.Unmarshal([]byte(active), &refs); err != nil {
		return nil, fmt.Errorf("project %s: decode active refs: %w", projectID, err)
	}
	return &asset.Project{
		ProjectID:           projectID,
		Title:               title,
		CreatedAt:           parseTime(createdAt),
		ActiveScriptRef:     refs.ScriptRef,
		ActivePlanRef:       refs.PlanRef,
		ActiveShotPlanRef:   refs.ShotPlanRef,
		ActiveStyleFrameRef: refs.StyleFrameRef,
	}, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
