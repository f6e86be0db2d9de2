package continuity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reelplan/reelplan/internal/asset"
)

// Context carries the committed state a shot plan is validated against.
//
// Plan is the current plan version. PriorPlans holds older committed plan
// versions, oldest first; they are consulted only to recognize stale lock
// text that a shot copied from a plan version that has since changed.
// Images, when present, are checked for lock violations.
type Context struct {
	Plan       *asset.Plan
	PriorPlans []*asset.Plan
	Images     []asset.Image
}

// Validate runs every continuity rule over the shot plan and returns the
// findings in shot order. Findings are data; the only error return is a
// SchemaError when the shot plan fails structural invariants that make the
// semantic checks meaningless.
func Validate(sp *asset.ShotPlan, ctx Context) ([]asset.ContinuityIssue, error) {
	if err := asset.ValidateShotPlanStructure(sp); err != nil {
		return nil, err
	}

	var issues []asset.ContinuityIssue
	issues = append(issues, checkReferences(sp, ctx)...)
	issues = append(issues, checkLockConflicts(sp, ctx)...)
	issues = append(issues, checkStateTransitions(sp)...)
	issues = append(issues, checkLockViolations(ctx)...)
	return issues, nil
}

// checkReferences verifies that each shot's scene resolves in the current
// plan and that every entity named in a continuity lock is actually present
// in that shot's scene.
func checkReferences(sp *asset.ShotPlan, ctx Context) []asset.ContinuityIssue {
	var issues []asset.ContinuityIssue
	for _, shot := range sp.Shots {
		scene := findScene(ctx.Plan, shot.SceneID)
		if scene == nil {
			issues = append(issues, asset.ContinuityIssue{
				Severity:    asset.SeverityError,
				Kind:        asset.IssueMissingReference,
				Location:    fmt.Sprintf("shots[%s].scene_id", shot.ShotID),
				Description: fmt.Sprintf("shot %s references scene %q which is not in the current plan", shot.ShotID, shot.SceneID),
			})
			continue
		}

		for _, id := range sortedKeys(ctx.Plan.Characters) {
			ch := ctx.Plan.Characters[id]
			if containsText(shot.ContinuityLock, ch.Name) && !containsString(scene.CharacterRefs, id) {
				issues = append(issues, asset.ContinuityIssue{
					Severity:    asset.SeverityError,
					Kind:        asset.IssueMissingReference,
					Location:    fmt.Sprintf("shots[%s].continuity_lock", shot.ShotID),
					Description: fmt.Sprintf("continuity lock of shot %s mentions character %q who is not in scene %s", shot.ShotID, ch.Name, scene.SceneID),
				})
			}
		}
		for _, id := range sortedKeys(ctx.Plan.Locations) {
			loc := ctx.Plan.Locations[id]
			if containsText(shot.ContinuityLock, loc.Name) && !containsString(scene.LocationRefs, id) {
				issues = append(issues, asset.ContinuityIssue{
					Severity:    asset.SeverityError,
					Kind:        asset.IssueMissingReference,
					Location:    fmt.Sprintf("shots[%s].continuity_lock", shot.ShotID),
					Description: fmt.Sprintf("continuity lock of shot %s mentions location %q which is not in scene %s", shot.ShotID, loc.Name, scene.SceneID),
				})
			}
		}
	}
	return issues
}

// checkLockConflicts detects continuity locks still carrying entity lock
// text from an older plan version after the plan's lock changed. Matching is
// exact normalized substring comparison, never semantic.
func checkLockConflicts(sp *asset.ShotPlan, ctx Context) []asset.ContinuityIssue {
	var issues []asset.ContinuityIssue
	for _, shot := range sp.Shots {
		for _, id := range sortedKeys(ctx.Plan.Characters) {
			current := ctx.Plan.Characters[id]
			issues = append(issues, staleLockIssues(shot, current.Name, "identity_lock",
				current.IdentityLock, priorCharacterLocks(ctx.PriorPlans, id, characterIdentity))...)
			issues = append(issues, staleLockIssues(shot, current.Name, "wardrobe_lock",
				current.WardrobeLock, priorCharacterLocks(ctx.PriorPlans, id, characterWardrobe))...)
		}
		for _, id := range sortedKeys(ctx.Plan.Locations) {
			current := ctx.Plan.Locations[id]
			issues = append(issues, staleLockIssues(shot, current.Name, "location_lock",
				current.LocationLock, priorLocationLocks(ctx.PriorPlans, id))...)
		}
	}
	return issues
}

// staleLockIssues reports a state conflict when the shot's continuity lock
// contains a superseded value of the entity's lock instead of the current
// one.
func staleLockIssues(shot asset.Shot, entityName, lockField, current string, prior []string) []asset.ContinuityIssue {
	if strings.TrimSpace(current) == "" || containsText(shot.ContinuityLock, current) {
		return nil
	}
	var issues []asset.ContinuityIssue
	for _, old := range prior {
		if old == current || !containsText(shot.ContinuityLock, old) {
			continue
		}
		issues = append(issues, asset.ContinuityIssue{
			Severity: asset.SeverityError,
			Kind:     asset.IssueStateConflict,
			Location: fmt.Sprintf("shots[%s].continuity_lock", shot.ShotID),
			Description: fmt.Sprintf("continuity lock of shot %s carries superseded %s %q for %s; current is %q",
				shot.ShotID, lockField, old, entityName, current),
		})
	}
	return issues
}

// checkStateTransitions verifies that within a scene each shot's state_in
// agrees with the previous shot's state_out.
func checkStateTransitions(sp *asset.ShotPlan) []asset.ContinuityIssue {
	var issues []asset.ContinuityIssue
	byScene := shotsByScene(sp)
	for _, sceneID := range sortedKeys(byScene) {
		shots := byScene[sceneID]
		for i := 1; i < len(shots); i++ {
			prev, cur := shots[i-1], shots[i]
			if prev.StateOut.TimeOfDay != "" && cur.StateIn.TimeOfDay != "" &&
				normalize(prev.StateOut.TimeOfDay) != normalize(cur.StateIn.TimeOfDay) {
				issues = append(issues, asset.ContinuityIssue{
					Severity: asset.SeverityError,
					Kind:     asset.IssueStateConflict,
					Location: fmt.Sprintf("shots[%s].state_in.time_of_day", cur.ShotID),
					Description: fmt.Sprintf("shot %s enters at %q but shot %s left scene %s at %q",
						cur.ShotID, cur.StateIn.TimeOfDay, prev.ShotID, sceneID, prev.StateOut.TimeOfDay),
				})
			}
			if prev.StateOut.Weather != "" && cur.StateIn.Weather != "" &&
				normalize(prev.StateOut.Weather) != normalize(cur.StateIn.Weather) {
				issues = append(issues, asset.ContinuityIssue{
					Severity: asset.SeverityError,
					Kind:     asset.IssueStateConflict,
					Location: fmt.Sprintf("shots[%s].state_in.weather", cur.ShotID),
					Description: fmt.Sprintf("shot %s enters with weather %q but shot %s left with %q",
						cur.ShotID, cur.StateIn.Weather, prev.ShotID, prev.StateOut.Weather),
				})
			}
			if missing := missingProps(prev.StateOut.PropsHeld, cur.StateIn.PropsHeld); len(missing) > 0 {
				issues = append(issues, asset.ContinuityIssue{
					Severity: asset.SeverityWarning,
					Kind:     asset.IssueStateConflict,
					Location: fmt.Sprintf("shots[%s].state_in.props_held", cur.ShotID),
					Description: fmt.Sprintf("props %v held at the end of shot %s are absent entering shot %s",
						missing, prev.ShotID, cur.ShotID),
				})
			}
		}
	}
	return issues
}

// checkLockViolations flags must-keep elements absent from the prompt an
// image was actually generated with. These are warnings for user review and
// are never auto-repaired.
func checkLockViolations(ctx Context) []asset.ContinuityIssue {
	var issues []asset.ContinuityIssue
	for _, img := range ctx.Images {
		for _, elem := range img.LockApplied.MustKeepElements {
			if containsText(img.PromptUsed, elem) {
				continue
			}
			issues = append(issues, asset.ContinuityIssue{
				Severity:    asset.SeverityWarning,
				Kind:        asset.IssueLockViolation,
				Location:    imageLocation(img),
				Description: fmt.Sprintf("must-keep element %q does not appear in the generation prompt", elem),
			})
		}
	}
	return issues
}

func imageLocation(img asset.Image) string {
	if img.ShotID != "" {
		return fmt.Sprintf("images[%s/%s]", img.AssetType, img.ShotID)
	}
	return fmt.Sprintf("images[%s]", img.AssetType)
}

func findScene(plan *asset.Plan, sceneID string) *asset.Scene {
	if plan == nil {
		return nil
	}
	for i := range plan.Scenes {
		if plan.Scenes[i].SceneID == sceneID {
			return &plan.Scenes[i]
		}
	}
	return nil
}

// shotsByScene groups shots by scene preserving shot order within each group.
func shotsByScene(sp *asset.ShotPlan) map[string][]asset.Shot {
	out := make(map[string][]asset.Shot)
	for _, shot := range sp.Shots {
		out[shot.SceneID] = append(out[shot.SceneID], shot)
	}
	for _, shots := range out {
		sort.SliceStable(shots, func(i, j int) bool {
			return shots[i].ShotIndexInScene < shots[j].ShotIndexInScene
		})
	}
	return out
}

func characterIdentity(ch asset.Character) string { return ch.IdentityLock }
func characterWardrobe(ch asset.Character) string { return ch.WardrobeLock }

// priorCharacterLocks returns the distinct superseded lock values for one
// character across earlier plan versions, oldest first.
func priorCharacterLocks(prior []*asset.Plan, id string, lock func(asset.Character) string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range prior {
		ch, ok := p.Characters[id]
		if !ok {
			continue
		}
		v := lock(ch)
		if strings.TrimSpace(v) == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func priorLocationLocks(prior []*asset.Plan, id string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range prior {
		loc, ok := p.Locations[id]
		if !ok {
			continue
		}
		if strings.TrimSpace(loc.LocationLock) == "" || seen[loc.LocationLock] {
			continue
		}
		seen[loc.LocationLock] = true
		out = append(out, loc.LocationLock)
	}
	return out
}

func missingProps(out, in []string) []string {
	have := make(map[string]bool, len(in))
	for _, p := range in {
		have[normalize(p)] = true
	}
	var missing []string
	for _, p := range out {
		if !have[normalize(p)] {
			missing = append(missing, p)
		}
	}
	return missing
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
