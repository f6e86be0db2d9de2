package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/reelplan/reelplan/internal/asset"
)

// PutRequest describes one new asset version.
//
// BaseVersion is the head version the caller observed before producing the
// payload, or 0 when the stable id does not exist yet. The write commits at
// BaseVersion+1 only if the head still matches; otherwise the caller lost a
// race and receives ConcurrentWriteError.
type PutRequest struct {
	ProjectID   string
	Kind        asset.Kind
	StableID    string
	BaseVersion int64
	Payload     []byte
	Provenance  []byte
}

// Put commits a new immutable version and advances the head with a
// compare-and-swap. Returns the committed version number.
//
// The payload is validated against the kind's schema before any row is
// written, so a malformed payload never consumes a version number.
func (s *Store) Put(ctx context.Context, req PutRequest) (int64, error) {
	if err := s.validate(req.Kind, req.Payload); err != nil {
		return 0, err
	}

	provenance := req.Provenance
	if len(provenance) == 0 {
		provenance = []byte("{}")
	}
	version := req.BaseVersion + 1
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("put %s %s: begin tx: %w", req.Kind, req.StableID, err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO asset_versions
		(project_id, kind, stable_id, version, payload, provenance, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 'draft', ?)
	`,
		req.ProjectID,
		string(req.Kind),
		req.StableID,
		version,
		string(req.Payload),
		string(provenance),
		now,
	)
	if err != nil {
		// A primary key collision means another writer already claimed this
		// version number.
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, &ConcurrentWriteError{Kind: string(req.Kind), StableID: req.StableID, Expected: req.BaseVersion}
		}
		return 0, fmt.Errorf("put %s %s: insert version: %w", req.Kind, req.StableID, err)
	}

	// Advance the head. Zero rows affected means the head no longer matches
	// the caller's base, so a concurrent writer won.
	var result sql.Result
	if req.BaseVersion == 0 {
		result, err = tx.ExecContext(ctx, `
			INSERT INTO heads (project_id, kind, stable_id, version)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(project_id, kind, stable_id) DO NOTHING
		`, req.ProjectID, string(req.Kind), req.StableID, version)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE heads SET version = ?
			WHERE project_id = ? AND kind = ? AND stable_id = ? AND version = ?
		`, version, req.ProjectID, string(req.Kind), req.StableID, req.BaseVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("put %s %s: advance head: %w", req.Kind, req.StableID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("put %s %s: rows affected: %w", req.Kind, req.StableID, err)
	}
	if affected == 0 {
		return 0, &ConcurrentWriteError{Kind: string(req.Kind), StableID: req.StableID, Expected: req.BaseVersion}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("put %s %s: commit: %w", req.Kind, req.StableID, err)
	}
	return version, nil
}

// Accept marks an existing version accepted. Acceptance is version metadata,
// not a new version: the payload is untouched and the head does not move.
// Accepting an already-accepted version is a no-op.
func (s *Store) Accept(ctx context.Context, projectID string, kind asset.Kind, stableID string, version int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE asset_versions SET status = 'accepted'
		WHERE project_id = ? AND kind = ? AND stable_id = ? AND version = ?
	`, projectID, string(kind), stableID, version)
	if err != nil {
		return fmt.Errorf("accept %s %s v%d: %w", kind, stableID, version, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("accept %s %s v%d: rows affected: %w", kind, stableID, version, err)
	}
	if affected == 0 {
		return &asset.NotFoundError{Resource: string(kind), ID: stableID, Version: version}
	}
	return nil
}

// CreateProject inserts a new project row.
func (s *Store) CreateProject(ctx context.Context, p asset.Project) error {
	active, err := marshalActiveRefs(p)
	if err != nil {
		return fmt.Errorf("create project %s: %w", p.ProjectID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (project_id, title, created_at, active)
		VALUES (?, ?, ?, ?)
	`, p.ProjectID, p.Title, p.CreatedAt.UTC().Format(time.RFC3339Nano), active)
	if err != nil {
		return fmt.Errorf("create project %s: %w", p.ProjectID, err)
	}
	return nil
}

// UpdateProject rewrites a project's title and active asset refs.
func (s *Store) UpdateProject(ctx context.Context, p asset.Project) error {
	active, err := marshalActiveRefs(p)
	if err != nil {
		return fmt.Errorf("update project %s: %w", p.ProjectID, err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET title = ?, active = ? WHERE project_id = ?
	`, p.Title, active, p.ProjectID)
	if err != nil {
		return fmt.Errorf("update project %s: %w", p.ProjectID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update project %s: rows affected: %w", p.ProjectID, err)
	}
	if affected == 0 {
		return &asset.NotFoundError{Resource: "project", ID: p.ProjectID}
	}
	return nil
}

// PutContinuityReport records the issue list produced while validating one
// shot plan version. Re-validating the same version replaces its report.
func (s *Store) PutContinuityReport(ctx context.Context, projectID, shotPlanID string, version int64, report []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO continuity_reports (project_id, shot_plan_id, version, report, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, shot_plan_id, version) DO UPDATE SET
			report = excluded.report,
			created_at = excluded.created_at
	`, projectID, shotPlanID, version, string(report), now)
	if err != nil {
		return fmt.Errorf("put continuity report %s v%d: %w", shotPlanID, version, err)
	}
	return nil
}

// PutJob upserts a job record. The whole record is stored as JSON so status
// transitions are a single rewrite.
func (s *Store) PutJob(ctx context.Context, job asset.Job) error {
	record, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("put job %s: %w", job.JobID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (job_id, project_id, record, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET record = excluded.record
	`, job.JobID, job.ProjectID, string(record), job.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put job %s: %w", job.JobID, err)
	}
	return nil
}

type activeRefs struct {
	ScriptRef     string `json:"script_ref,omitempty"`
	PlanRef       string `json:"plan_ref,omitempty"`
	ShotPlanRef   string `json:"shot_plan_ref,omitempty"`
	StyleFrameRef string `json:"style_frame_ref,omitempty"`
}

func marshalActiveRefs(p asset.Project) (string, error) {
	b, err := json.Marshal(activeRefs{
		ScriptRef:     p.ActiveScriptRef,
		PlanRef:       p.ActivePlanRef,
		ShotPlanRef:   p.ActiveShotPlanRef,
		StyleFrameRef: p.ActiveStyleFrameRef,
	})
	if err != nil {
		return "", fmt.Errorf("marshal active refs: %w", err)
	}
	return string(b), nil
}
