package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelplan/reelplan/internal/asset"
)

func testPlan() *asset.Plan {
	return &asset.Plan{
		Scenes: []asset.Scene{
			{SceneID: "SC001", SceneIndex: 0, Summary: "Office intro"},
			{SceneID: "SC002", SceneIndex: 1, Summary: "Rooftop chase"},
		},
	}
}

func testShotPlan() *asset.ShotPlan {
	return &asset.ShotPlan{
		PlanID:      "plan_main",
		PlanVersion: 1,
		Shots: []asset.Shot{
			{ShotID: "S001", SceneID: "SC001"},
			{ShotID: "S002", SceneID: "SC002"},
			{ShotID: "S003", SceneID: "SC001"},
		},
	}
}

func TestResolveProject(t *testing.T) {
	res, err := Resolve(Scope{Type: TypeProject}, testPlan(), testShotPlan(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"S001", "S002", "S003"}, res.ShotIDs)
	assert.Equal(t, []asset.ImageType{
		asset.ImageCharacterRef,
		asset.ImageLocationRef,
		asset.ImageStyleFrame,
	}, res.AssetTypes)
}

func TestResolveSceneSelectsMatchingShots(t *testing.T) {
	res, err := Resolve(Scope{Type: TypeScene, SceneID: "SC001"}, testPlan(), testShotPlan(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"S001", "S003"}, res.ShotIDs)
	assert.Empty(t, res.AssetTypes)
}

func TestResolveSceneUnknown(t *testing.T) {
	_, err := Resolve(Scope{Type: TypeScene, SceneID: "SC099"}, testPlan(), testShotPlan(), nil)
	require.Error(t, err)
	assert.True(t, asset.IsNotFound(err))
}

func TestResolveSceneWithNoShotsYet(t *testing.T) {
	// A scene that exists in the plan but has no shots resolves to an empty
	// target set, not an error.
	res, err := Resolve(Scope{Type: TypeScene, SceneID: "SC002"}, testPlan(), &asset.ShotPlan{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.ShotIDs)
}

func TestResolveShot(t *testing.T) {
	res, err := Resolve(Scope{Type: TypeShot, ShotID: "S002"}, testPlan(), testShotPlan(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"S002"}, res.ShotIDs)
}

func TestResolveShotUnknown(t *testing.T) {
	_, err := Resolve(Scope{Type: TypeShot, ShotID: "S099"}, testPlan(), testShotPlan(), nil)
	require.Error(t, err)
	assert.True(t, asset.IsNotFound(err))
}

func TestResolveAsset(t *testing.T) {
	byType := map[asset.ImageType][]string{
		asset.ImageCharacterRef: {"img_char_01", "img_char_02"},
		asset.ImageStyleFrame:   {"img_style"},
	}

	res, err := Resolve(Scope{Type: TypeAsset, AssetType: asset.ImageCharacterRef}, testPlan(), testShotPlan(), byType)
	require.NoError(t, err)

	assert.Equal(t, []asset.ImageType{asset.ImageCharacterRef}, res.AssetTypes)
	assert.Equal(t, []string{"img_char_01", "img_char_02"}, res.ImageIDs)
	assert.Empty(t, res.ShotIDs)
}

func TestResolveAssetUnknownType(t *testing.T) {
	_, err := Resolve(Scope{Type: TypeAsset, AssetType: "thumbnail"}, testPlan(), testShotPlan(), nil)
	require.Error(t, err)
	assert.True(t, asset.IsNotFound(err))
}

func TestResolveUnknownScopeType(t *testing.T) {
	_, err := Resolve(Scope{Type: "timeline"}, testPlan(), testShotPlan(), nil)
	require.Error(t, err)
	assert.True(t, asset.IsNotFound(err))
}

func TestScopeString(t *testing.T) {
	assert.Equal(t, "project", Scope{Type: TypeProject}.String())
	assert.Equal(t, "scene(SC001)", Scope{Type: TypeScene, SceneID: "SC001"}.String())
	assert.Equal(t, "shot(S003)", Scope{Type: TypeShot, ShotID: "S003"}.String())
	assert.Equal(t, "asset(style_frame)", Scope{Type: TypeAsset, AssetType: asset.ImageStyleFrame}.String())
}
