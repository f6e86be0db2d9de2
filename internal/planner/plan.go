package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/patch"
	"github.com/reelplan/reelplan/internal/store"
)

// Preferences are the user-supplied project bible fields for plan
// generation. Empty fields fall back to configured defaults.
type Preferences struct {
	Title           string `json:"title,omitempty"`
	Genre           string `json:"genre,omitempty"`
	Tone            string `json:"tone,omitempty"`
	Style           string `json:"style,omitempty"`
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	TargetDurationS int64  `json:"target_duration_s,omitempty"`
	VisualRealism   string `json:"visual_realism,omitempty"`
	Pacing          string `json:"pacing,omitempty"`
}

// bibleFromPreferences merges preferences with configured defaults.
func (s *Service) bibleFromPreferences(project *asset.Project, prefs Preferences) asset.ProjectBible {
	bible := asset.ProjectBible{
		Title:           prefs.Title,
		Genre:           prefs.Genre,
		Tone:            prefs.Tone,
		Style:           prefs.Style,
		AspectRatio:     prefs.AspectRatio,
		TargetDurationS: prefs.TargetDurationS,
		VisualRealism:   prefs.VisualRealism,
		Pacing:          prefs.Pacing,
	}
	if bible.Title == "" {
		bible.Title = project.Title
	}
	if bible.Style == "" {
		bible.Style = s.cfg.DefaultStyle
	}
	if bible.AspectRatio == "" {
		bible.AspectRatio = s.cfg.DefaultAspectRatio
	}
	if bible.TargetDurationS <= 0 {
		bible.TargetDurationS = s.cfg.DefaultTargetDurationS
	}
	if bible.VisualRealism == "" {
		bible.VisualRealism = s.cfg.DefaultVisualRealism
	}
	if bible.Pacing == "" {
		bible.Pacing = s.cfg.DefaultPacing
	}
	return bible
}

// GeneratePlan extracts a plan from the project's active script and commits
// it as a new plan version. The extractor result is treated as untrusted:
// full plan invariants are validated before anything is written.
func (s *Service) GeneratePlan(ctx context.Context, projectID string, prefs Preferences) (version int64, err error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}

	job := s.startJob(ctx, projectID, asset.JobExtractPlan)
	defer func() {
		s.finishJob(ctx, job, map[string]string{"plan": asset.BuildRef(planStableID, version)}, err)
	}()

	scriptRec, err := s.store.Get(ctx, projectID, asset.KindScript, scriptStableID, 0)
	if err != nil {
		return 0, err
	}
	var script asset.Script
	if err := json.Unmarshal(scriptRec.Payload, &script); err != nil {
		return 0, fmt.Errorf("decode script v%d: %w", scriptRec.Version, err)
	}

	plan, err := s.extractor.ExtractPlan(ctx, script, s.bibleFromPreferences(project, prefs))
	if err != nil {
		return 0, fmt.Errorf("extract plan: %w", err)
	}
	plan.SourceScriptID = scriptStableID
	plan.SourceScriptVersion = scriptRec.Version
	if plan.Characters == nil {
		plan.Characters = map[string]asset.Character{}
	}
	if plan.Locations == nil {
		plan.Locations = map[string]asset.Location{}
	}
	if err := asset.ValidatePlan(plan); err != nil {
		return 0, err
	}

	payload, err := marshalPayload(plan)
	if err != nil {
		return 0, err
	}
	head, err := s.store.Head(ctx, projectID, asset.KindPlan, planStableID)
	if err != nil {
		return 0, err
	}
	provenance, _ := json.Marshal(map[string]any{
		"op":            "generate_plan",
		"source_script": asset.BuildRef(scriptStableID, scriptRec.Version),
	})
	version, err = s.store.Put(ctx, store.PutRequest{
		ProjectID:   projectID,
		Kind:        asset.KindPlan,
		StableID:    planStableID,
		BaseVersion: head,
		Payload:     payload,
		Provenance:  provenance,
	})
	if err != nil {
		return 0, err
	}

	project.ActivePlanRef = asset.BuildRef(planStableID, version)
	if err := s.store.UpdateProject(ctx, *project); err != nil {
		return 0, err
	}
	s.log.Info("plan generated", "project_id", projectID, "version", version, "scenes", len(plan.Scenes))
	return version, nil
}

// PatchPlan applies an ordered patch list to the head plan and commits the
// result as a new version. The whole list is atomic: one bad operation
// aborts the call with no version written.
func (s *Service) PatchPlan(ctx context.Context, projectID string, ops []patch.Operation) (int64, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}

	rec, err := s.store.Get(ctx, projectID, asset.KindPlan, planStableID, 0)
	if err != nil {
		return 0, err
	}
	var plan asset.Plan
	if err := json.Unmarshal(rec.Payload, &plan); err != nil {
		return 0, fmt.Errorf("decode plan v%d: %w", rec.Version, err)
	}

	patched, err := patch.Apply(&plan, ops)
	if err != nil {
		return 0, err
	}

	payload, err := marshalPayload(patched)
	if err != nil {
		return 0, err
	}
	provenance, _ := json.Marshal(map[string]any{
		"op":      "patch_plan",
		"base":    asset.BuildRef(planStableID, rec.Version),
		"patches": ops,
	})
	version, err := s.store.Put(ctx, store.PutRequest{
		ProjectID:   projectID,
		Kind:        asset.KindPlan,
		StableID:    planStableID,
		BaseVersion: rec.Version,
		Payload:     payload,
		Provenance:  provenance,
	})
	if err != nil {
		return 0, err
	}

	project.ActivePlanRef = asset.BuildRef(planStableID, version)
	if err := s.store.UpdateProject(ctx, *project); err != nil {
		return 0, err
	}
	s.log.Info("plan patched", "project_id", projectID, "version", version, "ops", len(ops))
	return version, nil
}

// loadPlan reads and decodes one plan version (0 for head).
func (s *Service) loadPlan(ctx context.Context, projectID string, version int64) (*asset.Plan, int64, error) {
	rec, err := s.store.Get(ctx, projectID, asset.KindPlan, planStableID, version)
	if err != nil {
		return nil, 0, err
	}
	var plan asset.Plan
	if err := json.Unmarshal(rec.Payload, &plan); err != nil {
		return nil, 0, fmt.Errorf("decode plan v%d: %w", rec.Version, err)
	}
	return &plan, rec.Version, nil
}

// loadPriorPlans decodes every plan version older than the given one,
// oldest first. The continuity engine uses them to recognize stale locks.
func (s *Service) loadPriorPlans(ctx context.Context, projectID string, before int64) ([]*asset.Plan, error) {
	recs, err := s.store.ListVersions(ctx, projectID, asset.KindPlan, planStableID)
	if err != nil {
		return nil, err
	}
	var out []*asset.Plan
	for _, rec := range recs {
		if rec.Version >= before {
			continue
		}
		var plan asset.Plan
		if err := json.Unmarshal(rec.Payload, &plan); err != nil {
			return nil, fmt.Errorf("decode plan v%d: %w", rec.Version, err)
		}
		out = append(out, &plan)
	}
	return out, nil
}
