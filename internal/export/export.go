package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/reelplan/reelplan/internal/asset"
)

// Storyboard combines a project's committed head assets into one document.
type Storyboard struct {
	Project  asset.Project   `json:"project"`
	Plan     *asset.Plan     `json:"plan"`
	ShotPlan *asset.ShotPlan `json:"shot_plan"`
	Images   []ImageEntry    `json:"images"`
}

// ImageEntry is one image asset with its version metadata.
type ImageEntry struct {
	StableID string       `json:"stable_id"`
	Version  int64        `json:"version"`
	Status   asset.Status `json:"status"`
	asset.Image
}

// StoryboardJSON renders the storyboard as indented JSON with stable field
// and key ordering.
func StoryboardJSON(sb *Storyboard) ([]byte, error) {
	out, err := json.MarshalIndent(sb, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode storyboard: %w", err)
	}
	return out, nil
}

// CharactersCSV renders the plan's characters as CSV, one row per
// character in entity id order.
func CharactersCSV(plan *asset.Plan) string {
	w := table.NewWriter()
	w.AppendHeader(table.Row{"character_id", "name", "description", "identity_lock", "wardrobe_lock", "role", "key_props"})
	for _, id := range sortedKeys(plan.Characters) {
		ch := plan.Characters[id]
		w.AppendRow(table.Row{id, ch.Name, ch.Description, ch.IdentityLock, ch.WardrobeLock, ch.Role, strings.Join(ch.KeyProps, ", ")})
	}
	return w.RenderCSV()
}

// ShotsCSV renders the shot list as CSV in shot-plan order.
func ShotsCSV(sp *asset.ShotPlan) string {
	w := table.NewWriter()
	w.AppendHeader(table.Row{"shot_id", "scene_id", "shot_index_in_scene", "duration_s", "location_ref", "characters", "shot_type", "camera_angle", "camera_movement", "action_beat", "dialogue", "continuity_lock"})
	for _, shot := range sp.Shots {
		w.AppendRow(table.Row{
			shot.ShotID,
			shot.SceneID,
			shot.ShotIndexInScene,
			shot.DurationS,
			shot.LocationRef,
			strings.Join(shot.CharacterRefs, ", "),
			shot.Camera.ShotType,
			shot.Camera.Angle,
			shot.Camera.Movement,
			shot.ActionBeat,
			shot.Dialogue,
			shot.ContinuityLock,
		})
	}
	return w.RenderCSV()
}

// ImagesCSV renders image entries as CSV. Prompts are truncated so the
// table stays readable in spreadsheet tools.
func ImagesCSV(entries []ImageEntry) string {
	w := table.NewWriter()
	w.AppendHeader(table.Row{"stable_id", "version", "asset_type", "shot_id", "image_url", "status", "prompt_used"})
	for _, e := range entries {
		w.AppendRow(table.Row{e.StableID, e.Version, e.AssetType, e.ShotID, e.ImageURL, e.Status, truncate(e.PromptUsed, 200)})
	}
	return w.RenderCSV()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
