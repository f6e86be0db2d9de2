package prompt

import (
	"fmt"
	"strings"

	"github.com/reelplan/reelplan/internal/asset"
)

// styleDescription renders the project bible's shared look as a prompt
// fragment appended to every image prompt.
func styleDescription(bible asset.ProjectBible) string {
	return fmt.Sprintf("%s, %s, %s realism", bible.Style, bible.Tone, bible.VisualRealism)
}

// StyleFrame builds the prompt for the project's single style frame.
func StyleFrame(plan *asset.Plan) string {
	bible := plan.ProjectBible
	parts := []string{
		fmt.Sprintf("Establishing style frame for %q", bible.Title),
		fmt.Sprintf("genre: %s", bible.Genre),
		styleDescription(bible),
		fmt.Sprintf("aspect ratio %s", bible.AspectRatio),
	}
	return join(parts)
}

// CharacterReference builds the prompt for one character reference sheet.
// The identity and wardrobe locks go in verbatim so the continuity engine
// can later verify them against the prompt trace.
func CharacterReference(ch asset.Character, plan *asset.Plan) string {
	parts := []string{
		fmt.Sprintf("Character reference sheet for %s", ch.Name),
		ch.IdentityLock,
	}
	if ch.WardrobeLock != "" {
		parts = append(parts, fmt.Sprintf("wearing %s", ch.WardrobeLock))
	}
	if len(ch.KeyProps) > 0 {
		parts = append(parts, fmt.Sprintf("key props: %s", strings.Join(ch.KeyProps, ", ")))
	}
	parts = append(parts, "neutral background, full body and face close-up", styleDescription(plan.ProjectBible))
	return join(parts)
}

// LocationReference builds the prompt for one location reference image.
func LocationReference(loc asset.Location, plan *asset.Plan) string {
	parts := []string{
		fmt.Sprintf("Location reference for %s", loc.Name),
		loc.LocationLock,
	}
	if loc.TimeOfDay != "" {
		parts = append(parts, loc.TimeOfDay)
	}
	if loc.Weather != "" {
		parts = append(parts, loc.Weather)
	}
	parts = append(parts, "empty of people", styleDescription(plan.ProjectBible))
	return join(parts)
}

// ShotFrame builds the prompt for one storyboard frame. Character and
// location locks for the entities in the shot are embedded verbatim.
func ShotFrame(shot asset.Shot, plan *asset.Plan) string {
	parts := []string{
		fmt.Sprintf("%s %s shot", shot.Camera.Angle, shot.Camera.ShotType),
		shot.ActionBeat,
	}
	for _, id := range shot.CharacterRefs {
		if ch, ok := plan.Characters[id]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", ch.Name, ch.IdentityLock))
			if ch.WardrobeLock != "" {
				parts = append(parts, fmt.Sprintf("wearing %s", ch.WardrobeLock))
			}
		}
	}
	if loc, ok := plan.Locations[shot.LocationRef]; ok {
		parts = append(parts, fmt.Sprintf("at %s: %s", loc.Name, loc.LocationLock))
	}
	if shot.ContinuityLock != "" {
		parts = append(parts, fmt.Sprintf("continuity: %s", shot.ContinuityLock))
	}
	if shot.StateIn.TimeOfDay != "" {
		parts = append(parts, shot.StateIn.TimeOfDay)
	}
	parts = append(parts, styleDescription(plan.ProjectBible))
	return join(parts)
}

// EditDelta is the structured interpretation of free-text image feedback,
// produced by a FeedbackInterpreter collaborator. RemoveElements feed the
// negative prompt, not the positive one.
type EditDelta struct {
	AddElements      []string          `json:"add_elements,omitempty"`
	RemoveElements   []string          `json:"remove_elements,omitempty"`
	StyleAdjustments []string          `json:"style_adjustments,omitempty"`
	CameraAdjust     map[string]string `json:"camera_adjustments,omitempty"`
	Guidance         string            `json:"updated_prompt_guidance,omitempty"`
}

// Edit applies a structured edit delta to an existing prompt.
func Edit(original string, delta EditDelta) string {
	out := original
	if len(delta.AddElements) > 0 {
		out += fmt.Sprintf(". Add: %s", strings.Join(delta.AddElements, ", "))
	}
	if len(delta.StyleAdjustments) > 0 {
		out += fmt.Sprintf(". Style: %s", strings.Join(delta.StyleAdjustments, ", "))
	}
	if angle := delta.CameraAdjust["angle"]; angle != "" {
		out += fmt.Sprintf(". Camera angle: %s", angle)
	}
	if distance := delta.CameraAdjust["distance"]; distance != "" {
		out += fmt.Sprintf(". Camera distance: %s", distance)
	}
	if delta.Guidance != "" {
		out += ". " + delta.Guidance
	}
	return out
}

// Regenerate rebuilds a prompt for regeneration under a lock profile,
// spelling the preservation constraints out in the prompt text itself.
func Regenerate(original string, lock asset.LockProfile) string {
	var constraints []string
	if lock.PreserveIdentity {
		constraints = append(constraints, "PRESERVE character identities exactly")
	}
	if lock.PreserveWardrobe {
		constraints = append(constraints, "PRESERVE wardrobe exactly")
	}
	if lock.PreserveLocationLayout {
		constraints = append(constraints, "PRESERVE location layout exactly")
	}
	if lock.PreserveTimeOfDay {
		constraints = append(constraints, "PRESERVE time of day and lighting exactly")
	}
	if lock.PreserveCamera {
		constraints = append(constraints, "PRESERVE camera angle and framing exactly")
	}
	if lock.PreservePose {
		constraints = append(constraints, "PRESERVE character poses exactly")
	}
	if len(lock.MustKeepElements) > 0 {
		constraints = append(constraints, fmt.Sprintf("MUST KEEP: %s", strings.Join(lock.MustKeepElements, ", ")))
	}
	if len(constraints) == 0 {
		return original
	}
	return fmt.Sprintf("%s. CONSTRAINTS: %s", original, strings.Join(constraints, ". "))
}

// Negative composes a negative prompt from a base and the banned elements
// of a lock profile plus any elements an edit asked to remove.
func Negative(base string, lock asset.LockProfile, removed []string) string {
	parts := make([]string, 0, 2+len(lock.BannedElements)+len(removed))
	if base != "" {
		parts = append(parts, base)
	}
	parts = append(parts, lock.BannedElements...)
	parts = append(parts, removed...)
	return strings.Join(parts, ", ")
}

func join(parts []string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, ", ")
}
