package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/continuity"
	"github.com/reelplan/reelplan/internal/store"
)

// ShotsResult is the outcome of one GenerateShots run.
type ShotsResult struct {
	Version int64
	// Issues is the final continuity report for the committed version, with
	// AutoRepaired set on everything the repair loop fixed.
	Issues []asset.ContinuityIssue
	// Activated is false when unrepaired error-severity issues remain; the
	// version is committed either way, but the project's active shot plan
	// ref only advances on a clean result.
	Activated bool
}

// GenerateShots cuts the active plan into shots, runs the continuity
// validate/repair loop, and commits the result with its report.
func (s *Service) GenerateShots(ctx context.Context, projectID string) (result *ShotsResult, err error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	job := s.startJob(ctx, projectID, asset.JobGenerateShots)
	defer func() {
		var refs map[string]string
		if result != nil {
			refs = map[string]string{"shot_plan": asset.BuildRef(shotPlanStableID, result.Version)}
		}
		s.finishJob(ctx, job, refs, err)
	}()

	plan, planVersion, err := s.loadPlan(ctx, projectID, 0)
	if err != nil {
		return nil, err
	}
	prior, err := s.loadPriorPlans(ctx, projectID, planVersion)
	if err != nil {
		return nil, err
	}

	sp, err := s.shotPlanner.PlanShots(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("plan shots: %w", err)
	}
	sp.PlanID = planStableID
	sp.PlanVersion = planVersion

	cctx := continuity.Context{Plan: plan, PriorPlans: prior}
	sp, issues, err := s.validateAndRepair(sp, cctx)
	if err != nil {
		return nil, err
	}

	payload, err := marshalPayload(sp)
	if err != nil {
		return nil, err
	}
	head, err := s.store.Head(ctx, projectID, asset.KindShotPlan, shotPlanStableID)
	if err != nil {
		return nil, err
	}
	provenance, _ := json.Marshal(map[string]any{
		"op":   "generate_shots",
		"plan": asset.BuildRef(planStableID, planVersion),
	})
	version, err := s.store.Put(ctx, store.PutRequest{
		ProjectID:   projectID,
		Kind:        asset.KindShotPlan,
		StableID:    shotPlanStableID,
		BaseVersion: head,
		Payload:     payload,
		Provenance:  provenance,
	})
	if err != nil {
		return nil, err
	}

	report, err := json.Marshal(issues)
	if err != nil {
		return nil, fmt.Errorf("encode continuity report: %w", err)
	}
	if err := s.store.PutContinuityReport(ctx, projectID, shotPlanStableID, version, report); err != nil {
		return nil, err
	}

	activated := !hasBlockingIssues(issues)
	if activated {
		project.ActiveShotPlanRef = asset.BuildRef(shotPlanStableID, version)
		if err := s.store.UpdateProject(ctx, *project); err != nil {
			return nil, err
		}
	}
	s.log.Info("shot plan committed",
		"project_id", projectID,
		"version", version,
		"shots", len(sp.Shots),
		"issues", len(issues),
		"activated", activated,
	)
	return &ShotsResult{Version: version, Issues: issues, Activated: activated}, nil
}

// validateAndRepair runs the bounded validate/repair loop. Each round
// validates, stops if nothing repairable remains, and otherwise repairs and
// goes again. The returned issues are the final round's findings annotated
// with what earlier rounds managed to fix.
func (s *Service) validateAndRepair(sp *asset.ShotPlan, cctx continuity.Context) (*asset.ShotPlan, []asset.ContinuityIssue, error) {
	issues, err := continuity.Validate(sp, cctx)
	if err != nil {
		return nil, nil, err
	}

	var repairedEarlier []asset.ContinuityIssue
	for i := 0; i < s.cfg.MaxRepairIterations && len(issues) > 0; i++ {
		repaired, annotated, err := continuity.Repair(sp, cctx, issues)
		if err != nil {
			return nil, nil, err
		}
		fixedAny := false
		for _, issue := range annotated {
			if issue.AutoRepaired {
				repairedEarlier = append(repairedEarlier, issue)
				fixedAny = true
			}
		}
		if !fixedAny {
			break
		}
		sp = repaired
		issues, err = continuity.Validate(sp, cctx)
		if err != nil {
			return nil, nil, err
		}
	}
	return sp, append(repairedEarlier, issues...), nil
}

func hasBlockingIssues(issues []asset.ContinuityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == asset.SeverityError && !issue.AutoRepaired {
			return true
		}
	}
	return false
}

// GetContinuityReport returns the stored report for one shot plan version
// (0 for the head version).
func (s *Service) GetContinuityReport(ctx context.Context, projectID string, version int64) ([]asset.ContinuityIssue, error) {
	if version <= 0 {
		head, err := s.store.Head(ctx, projectID, asset.KindShotPlan, shotPlanStableID)
		if err != nil {
			return nil, err
		}
		if head == 0 {
			return nil, &asset.NotFoundError{Resource: "shot_plan", ID: shotPlanStableID}
		}
		version = head
	}
	raw, err := s.store.GetContinuityReport(ctx, projectID, shotPlanStableID, version)
	if err != nil {
		return nil, err
	}
	var issues []asset.ContinuityIssue
	if err := json.Unmarshal(raw, &issues); err != nil {
		return nil, fmt.Errorf("decode continuity report v%d: %w", version, err)
	}
	return issues, nil
}

// loadShotPlan reads and decodes one shot plan version (0 for head).
func (s *Service) loadShotPlan(ctx context.Context, projectID string, version int64) (*asset.ShotPlan, int64, error) {
	rec, err := s.store.Get(ctx, projectID, asset.KindShotPlan, shotPlanStableID, version)
	if err != nil {
		return nil, 0, err
	}
	var sp asset.ShotPlan
	if err := json.Unmarshal(rec.Payload, &sp); err != nil {
		return nil, 0, fmt.Errorf("decode shot plan v%d: %w", rec.Version, err)
	}
	return &sp, rec.Version, nil
}
