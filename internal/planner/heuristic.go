package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelplan/reelplan/internal/asset"
)

// HeuristicExtractor derives a plan from a script without any model call:
// each blank-line separated paragraph becomes one scene. It exists so the
// pipeline runs end to end with no external collaborator configured; real
// deployments swap in an LLM-backed PlanExtractor.
type HeuristicExtractor struct{}

func (HeuristicExtractor) ExtractPlan(_ context.Context, script asset.Script, bible asset.ProjectBible) (*asset.Plan, error) {
	paragraphs := splitParagraphs(script.Content)
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("script has no content to extract scenes from")
	}

	plan := &asset.Plan{
		ProjectBible: bible,
		Characters:   map[string]asset.Character{},
		Locations:    map[string]asset.Location{},
	}
	for i, p := range paragraphs {
		plan.Scenes = append(plan.Scenes, asset.Scene{
			SceneID:    fmt.Sprintf("SC%03d", i+1),
			SceneIndex: int64(i),
			Summary:    firstSentence(p),
			Beats: []asset.Beat{
				{BeatIndex: 0, Action: p},
			},
		})
	}
	return plan, nil
}

// HeuristicShotPlanner cuts one shot per scene beat, or one per scene when a
// scene has no beats. Continuity locks carry the scene summary so every shot
// has lock text for the continuity engine to check.
type HeuristicShotPlanner struct{}

func (HeuristicShotPlanner) PlanShots(_ context.Context, plan *asset.Plan) (*asset.ShotPlan, error) {
	sp := &asset.ShotPlan{}
	n := 0
	for _, scene := range plan.Scenes {
		beats := scene.Beats
		if len(beats) == 0 {
			beats = []asset.Beat{{Action: scene.Summary}}
		}
		for j, beat := range beats {
			n++
			shot := asset.Shot{
				ShotID:           fmt.Sprintf("S%03d", n),
				SceneID:          scene.SceneID,
				ShotIndexInScene: int64(j),
				DurationS:        3,
				Camera:           asset.Camera{ShotType: "medium", Angle: "eye-level", Movement: "static"},
				ActionBeat:       beat.Action,
				ContinuityLock:   continuityLockFor(scene, plan),
			}
			if len(scene.CharacterRefs) > 0 {
				shot.CharacterRefs = append([]string(nil), scene.CharacterRefs...)
			}
			if len(scene.LocationRefs) > 0 {
				shot.LocationRef = scene.LocationRefs[0]
			}
			sp.Shots = append(sp.Shots, shot)
		}
	}
	if len(sp.Shots) == 0 {
		return nil, fmt.Errorf("plan has no scenes to cut shots from")
	}
	return sp, nil
}

// continuityLockFor propagates the entity locks of everything in the scene
// into the shot's lock text.
func continuityLockFor(scene asset.Scene, plan *asset.Plan) string {
	parts := []string{scene.Summary}
	for _, id := range scene.CharacterRefs {
		if ch, ok := plan.Characters[id]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", ch.Name, ch.IdentityLock))
		}
	}
	for _, id := range scene.LocationRefs {
		if loc, ok := plan.Locations[id]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", loc.Name, loc.LocationLock))
		}
	}
	lock := strings.Join(parts, "; ")
	if strings.TrimSpace(lock) == "" {
		lock = "match previous shot framing and palette"
	}
	return lock
}

func splitParagraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstSentence(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
	if idx := strings.IndexAny(p, ".!?"); idx > 0 && idx < len(p)-1 {
		return strings.TrimSpace(p[:idx+1])
	}
	return p
}
