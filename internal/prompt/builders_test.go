package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelplan/reelplan/internal/asset"
)

func noirPlan() *asset.Plan {
	return &asset.Plan{
		ProjectBible: asset.ProjectBible{
			Title:         "Harbor Lights",
			Genre:         "noir",
			Tone:          "moody",
			Style:         "cinematic realism",
			AspectRatio:   "16:9",
			VisualRealism: "high",
		},
		Characters: map[string]asset.Character{
			"CHAR_01": {
				Name:         "Mara Voss",
				IdentityLock: "veteran detective, 50s",
				WardrobeLock: "beige trench coat",
				KeyProps:     []string{"revolver"},
			},
		},
		Locations: map[string]asset.Location{
			"LOC_01": {Name: "Harbor Office", LocationLock: "cramped harbor office, rain on windows"},
		},
	}
}

func TestBuildersAreDeterministic(t *testing.T) {
	plan := noirPlan()
	shot := asset.Shot{
		ShotID:         "S001",
		CharacterRefs:  []string{"CHAR_01"},
		LocationRef:    "LOC_01",
		Camera:         asset.Camera{ShotType: "medium", Angle: "low"},
		ActionBeat:     "Mara studies the tide charts",
		ContinuityLock: "Mara Voss, veteran detective, 50s, beige trench coat",
		StateIn:        asset.ShotState{TimeOfDay: "dusk"},
	}

	assert.Equal(t, ShotFrame(shot, plan), ShotFrame(shot, plan))
	assert.Equal(t, StyleFrame(plan), StyleFrame(plan))
}

func TestShotFrameEmbedsLocks(t *testing.T) {
	plan := noirPlan()
	shot := asset.Shot{
		ShotID:         "S001",
		CharacterRefs:  []string{"CHAR_01"},
		LocationRef:    "LOC_01",
		Camera:         asset.Camera{ShotType: "medium", Angle: "low"},
		ActionBeat:     "Mara studies the tide charts",
		ContinuityLock: "Mara Voss, veteran detective, 50s, beige trench coat",
	}

	p := ShotFrame(shot, plan)
	assert.Contains(t, p, "veteran detective, 50s")
	assert.Contains(t, p, "beige trench coat")
	assert.Contains(t, p, "cramped harbor office")
	assert.Contains(t, p, "cinematic realism, moody, high realism")
}

func TestCharacterReference(t *testing.T) {
	plan := noirPlan()
	p := CharacterReference(plan.Characters["CHAR_01"], plan)

	assert.Contains(t, p, "Character reference sheet for Mara Voss")
	assert.Contains(t, p, "veteran detective, 50s")
	assert.Contains(t, p, "wearing beige trench coat")
	assert.Contains(t, p, "key props: revolver")
}

func TestLocationReference(t *testing.T) {
	plan := noirPlan()
	p := LocationReference(plan.Locations["LOC_01"], plan)

	assert.Contains(t, p, "Location reference for Harbor Office")
	assert.Contains(t, p, "rain on windows")
	assert.Contains(t, p, "empty of people")
}

func TestEditAppliesDelta(t *testing.T) {
	got := Edit("medium shot of Mara", EditDelta{
		AddElements:      []string{"fog", "neon sign"},
		StyleAdjustments: []string{"higher contrast"},
		CameraAdjust:     map[string]string{"angle": "low", "distance": "close"},
		Guidance:         "keep her face in shadow",
	})

	assert.Equal(t, "medium shot of Mara. Add: fog, neon sign. Style: higher contrast. Camera angle: low. Camera distance: close. keep her face in shadow", got)
}

func TestEditEmptyDeltaIsIdentity(t *testing.T) {
	assert.Equal(t, "medium shot of Mara", Edit("medium shot of Mara", EditDelta{}))
}

func TestRegenerateSpellsOutConstraints(t *testing.T) {
	got := Regenerate("medium shot of Mara", asset.LockProfile{
		PreserveIdentity: true,
		PreserveCamera:   true,
		MustKeepElements: []string{"beige trench coat"},
	})

	assert.Contains(t, got, "PRESERVE character identities exactly")
	assert.Contains(t, got, "PRESERVE camera angle and framing exactly")
	assert.Contains(t, got, "MUST KEEP: beige trench coat")

	assert.Equal(t, "plain", Regenerate("plain", asset.LockProfile{}))
}

func TestNegativeCollectsBannedAndRemoved(t *testing.T) {
	got := Negative("blurry, low quality", asset.LockProfile{BannedElements: []string{"hat"}}, []string{"sunglasses"})
	assert.Equal(t, "blurry, low quality, hat, sunglasses", got)

	assert.Equal(t, "hat", Negative("", asset.LockProfile{BannedElements: []string{"hat"}}, nil))
}
