package asset

import (
	"fmt"
	"strings"
)

// ValidatePlan checks the full Plan invariants: scene ids are well formed and
// unique, and every scene's character and location refs resolve to keys in
// the same Plan version's maps.
func ValidatePlan(p *Plan) error {
	seen := make(map[string]bool, len(p.Scenes))
	for i, scene := range p.Scenes {
		if scene.SceneID == "" {
			return &SchemaError{Kind: KindPlan, Message: fmt.Sprintf("scenes[%d] has empty scene_id", i)}
		}
		if !ValidSceneID(scene.SceneID) {
			return &SchemaError{Kind: KindPlan, Message: fmt.Sprintf("scene id %q is malformed (want SC###)", scene.SceneID)}
		}
		if seen[scene.SceneID] {
			return &SchemaError{Kind: KindPlan, Message: fmt.Sprintf("duplicate scene id %q", scene.SceneID)}
		}
		seen[scene.SceneID] = true

		for _, ref := range scene.CharacterRefs {
			if _, ok := p.Characters[ref]; !ok {
				return &SchemaError{Kind: KindPlan, Message: fmt.Sprintf("scene %s references unknown character %q", scene.SceneID, ref)}
			}
		}
		for _, ref := range scene.LocationRefs {
			if _, ok := p.Locations[ref]; !ok {
				return &SchemaError{Kind: KindPlan, Message: fmt.Sprintf("scene %s references unknown location %q", scene.SceneID, ref)}
			}
		}
	}
	return nil
}

// ValidateShotPlanStructure checks the ShotPlan structural invariants that
// must hold before any semantic continuity check: shot ids are well formed
// and unique, scene ids are present, and every shot carries a continuity
// lock. Semantic resolution of scene ids against a Plan is the continuity
// engine's job, not a structural concern.
func ValidateShotPlanStructure(sp *ShotPlan) error {
	seen := make(map[string]bool, len(sp.Shots))
	for i, shot := range sp.Shots {
		if shot.ShotID == "" {
			return &SchemaError{Kind: KindShotPlan, Message: fmt.Sprintf("shots[%d] has empty shot_id", i)}
		}
		if !ValidShotID(shot.ShotID) {
			return &SchemaError{Kind: KindShotPlan, Message: fmt.Sprintf("shot id %q is malformed (want S###)", shot.ShotID)}
		}
		if seen[shot.ShotID] {
			return &SchemaError{Kind: KindShotPlan, Message: fmt.Sprintf("duplicate shot id %q", shot.ShotID)}
		}
		seen[shot.ShotID] = true

		if shot.SceneID == "" {
			return &SchemaError{Kind: KindShotPlan, Message: fmt.Sprintf("shot %s has empty scene_id", shot.ShotID)}
		}
		if strings.TrimSpace(shot.ContinuityLock) == "" {
			return &SchemaError{Kind: KindShotPlan, Message: fmt.Sprintf("shot %s is missing continuity_lock", shot.ShotID)}
		}
	}
	return nil
}
