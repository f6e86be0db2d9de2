package planner

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/config"
	"github.com/reelplan/reelplan/internal/continuity"
	"github.com/reelplan/reelplan/internal/patch"
	"github.com/reelplan/reelplan/internal/scope"
	"github.com/reelplan/reelplan/internal/store"
)

// planExtractor returns a fixed plan regardless of the script.
type planExtractor struct {
	plan asset.Plan
}

func (f planExtractor) ExtractPlan(_ context.Context, _ asset.Script, bible asset.ProjectBible) (*asset.Plan, error) {
	plan := f.plan
	plan.ProjectBible = bible
	return &plan, nil
}

// lockCopyingShotPlanner cuts one shot per scene and copies each scene's
// character identity locks into the continuity lock verbatim, the way a
// model following instructions would.
type lockCopyingShotPlanner struct{}

func (lockCopyingShotPlanner) PlanShots(_ context.Context, plan *asset.Plan) (*asset.ShotPlan, error) {
	return HeuristicShotPlanner{}.PlanShots(nil, plan)
}

// countingBackend records how many times the image backend was invoked.
type countingBackend struct {
	calls *int
}

func (b countingBackend) Generate(ctx context.Context, p, n string, lock asset.LockProfile) (string, error) {
	*b.calls++
	return PlaceholderImageBackend{}.Generate(ctx, p, n, lock)
}

func detectiveBase() asset.Plan {
	return asset.Plan{
		Characters: map[string]asset.Character{
			"CHAR_01": {Name: "Mara Voss", IdentityLock: "young detective", WardrobeLock: "beige trench coat"},
		},
		Locations: map[string]asset.Location{
			"LOC_01": {Name: "Harbor Office", LocationLock: "cramped harbor office"},
		},
		Scenes: []asset.Scene{
			{SceneID: "SC001", SceneIndex: 0, Summary: "Mara studies tide charts",
				CharacterRefs: []string{"CHAR_01"}, LocationRefs: []string{"LOC_01"}},
			{SceneID: "SC002", SceneIndex: 1, Summary: "Rooftop chase",
				CharacterRefs: []string{"CHAR_01"}},
		},
	}
}

func newTestService(t *testing.T, deps Deps) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	deps.Store = st
	deps.Config = config.Default()
	deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if deps.Extractor == nil {
		deps.Extractor = planExtractor{plan: detectiveBase()}
	}
	return New(deps), st
}

func bootstrapProject(t *testing.T, svc *Service) string {
	t.Helper()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "Harbor Lights")
	require.NoError(t, err)

	v, err := svc.CreateOrUpdateScript(ctx, project.ProjectID, "INT. HARBOR OFFICE - DUSK\n\nEXT. ROOFTOP - NIGHT")
	require.NoError(t, err)
	require.Equal(t, int64(1), v)

	return project.ProjectID
}

func TestScriptVersioning(t *testing.T) {
	svc, _ := newTestService(t, Deps{})
	ctx := context.Background()
	projectID := bootstrapProject(t, svc)

	v, err := svc.CreateOrUpdateScript(ctx, projectID, "revised draft")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	project, err := svc.GetProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, "script_main_v2", project.ActiveScriptRef)
}

func TestGeneratePlanAppliesDefaults(t *testing.T) {
	svc, st := newTestService(t, Deps{})
	ctx := context.Background()
	projectID := bootstrapProject(t, svc)

	v, err := svc.GeneratePlan(ctx, projectID, Preferences{Genre: "noir"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	plan, version, err := svc.loadPlan(ctx, projectID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, "noir", plan.ProjectBible.Genre)
	assert.Equal(t, "16:9", plan.ProjectBible.AspectRatio)
	assert.Equal(t, "cinematic realism", plan.ProjectBible.Style)
	assert.Equal(t, int64(30), plan.ProjectBible.TargetDurationS)
	assert.Equal(t, "script_main", plan.SourceScriptID)
	assert.Equal(t, int64(1), plan.SourceScriptVersion)

	jobs, err := st.ListJobs(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, asset.JobExtractPlan, jobs[0].Type)
	assert.Equal(t, asset.JobCompleted, jobs[0].Status)
}

func TestPatchPlanCreatesNewVersionAndKeepsOld(t *testing.T) {
	svc, st := newTestService(t, Deps{})
	ctx := context.Background()
	projectID := bootstrapProject(t, svc)

	_, err := svc.GeneratePlan(ctx, projectID, Preferences{})
	require.NoError(t, err)

	v, err := svc.PatchPlan(ctx, projectID, []patch.Operation{
		{Path: "characters[CHAR_01].identity_lock", Op: patch.OpReplace, Value: "veteran detective, 50s"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// v2 carries the edit, v1 is untouched.
	plan2, _, err := svc.loadPlan(ctx, projectID, 2)
	require.NoError(t, err)
	assert.Equal(t, "veteran detective, 50s", plan2.Characters["CHAR_01"].IdentityLock)

	plan1, _, err := svc.loadPlan(ctx, projectID, 1)
	require.NoError(t, err)
	assert.Equal(t, "young detective", plan1.Characters["CHAR_01"].IdentityLock)

	recs, err := st.ListVersions(ctx, projectID, asset.KindPlan, "plan_main")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestPatchPlanAtomicity(t *testing.T) {
	svc, st := newTestService(t, Deps{})
	ctx := context.Background()
	projectID := bootstrapProject(t, svc)

	_, err := svc.GeneratePlan(ctx, projectID, Preferences{})
	require.NoError(t, err)

	// Second operation targets a path that does not exist, so the valid
	// first operation must not land either.
	_, err = svc.PatchPlan(ctx, projectID, []patch.Operation{
		{Path: "characters[CHAR_01].identity_lock", Op: patch.OpReplace, Value: "veteran detective, 50s"},
		{Path: "characters[CHAR_99].identity_lock", Op: patch.OpReplace, Value: "nobody"},
	})
	require.Error(t, err)
	assert.True(t, patch.IsInvalidPath(err))

	head, err := st.Head(ctx, projectID, asset.KindPlan, "plan_main")
	require.NoError(t, err)
	assert.Equal(t, int64(1), head)

	plan, _, err := svc.loadPlan(ctx, projectID, 0)
	require.NoError(t, err)
	assert.Equal(t, "young detective", plan.Characters["CHAR_01"].IdentityLock)
}

func TestGenerateShotsRepairsStaleLocks(t *testing.T) {
	svc, _ := newTestService(t, Deps{ShotPlanner: lockCopyingShotPlanner{}})
	ctx := context.Background()
	projectID := bootstrapProject(t, svc)

	_, err := svc.GeneratePlan(ctx, projectID, Preferences{})
	require.NoError(t, err)

	// The plan's identity lock changes after v1, so freshly cut shots built
	// from stale lock text must be flagged and repaired.
	_, err = svc.PatchPlan(ctx, projectID, []patch.Operation{
		{Path: "characters[CHAR_01].identity_lock", Op: patch.OpReplace, Value: "veteran detective, 50s"},
	})
	require.NoError(t, err)

	// Simulate a shot planner that worked from the superseded plan text.
	svc.shotPlanner = staleLockShotPlanner{}

	result, err := svc.GenerateShots(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Version)
	assert.True(t, result.Activated)

	var sawRepair bool
	for _, issue := range result.Issues {
		if issue.Kind == asset.IssueStateConflict {
			assert.True(t, issue.AutoRepaired)
			sawRepair = true
		}
	}
	assert.True(t, sawRepair, "expected a repaired state conflict")

	sp, _, err := svc.loadShotPlan(ctx, projectID, 0)
	require.NoError(t, err)
	assert.Contains(t, sp.Shots[0].ContinuityLock, "veteran detective, 50s")
	assert.NotContains(t, sp.Shots[0].ContinuityLock, "young detective")

	// The committed version's report is retrievable.
	report, err := svc.GetContinuityReport(ctx, projectID, 0)
	require.NoError(t, err)
	assert.Equal(t, result.Issues, report)
}

// staleLockShotPlanner emits shots whose continuity locks carry the plan v1
// identity lock text.
type staleLockShotPlanner struct{}

func (staleLockShotPlanner) PlanShots(_ context.Context, plan *asset.Plan) (*asset.ShotPlan, error) {
	return &asset.ShotPlan{Shots: []asset.Shot{
		{
			ShotID: "S001", SceneID: "SC001", ShotIndexInScene: 0, DurationS: 3,
			Camera:         asset.Camera{ShotType: "medium", Angle: "eye-level", Movement: "static"},
			ActionBeat:     "Mara studies tide charts",
			CharacterRefs:  []string{"CHAR_01"},
			LocationRef:    "LOC_01",
			ContinuityLock: "Mara Voss, young detective, beige trench coat",
		},
	}}, nil
}

func TestResolveScopeScene(t *testing.T) {
	svc, _ := newTestService(t, Deps{ShotPlanner: lockCopyingShotPlanner{}})
	ctx := context.Background()
	projectID := bootstrapProject(t, svc)

	_, err := svc.GeneratePlan(ctx, projectID, Preferences{})
	require.NoError(t, err)
	_, err = svc.GenerateShots(ctx, projectID)
	require.NoError(t, err)

	res, err := svc.ResolveScope(ctx, projectID, scope.Scope{Type: scope.TypeScene, SceneID: "SC001"})
	require.NoError(t, err)
	assert.Equal(t, []string{"S001"}, res.ShotIDs)

	_, err = svc.ResolveScope(ctx, projectID, scope.Scope{Type: scope.TypeScene, SceneID: "SC099"})
	assert.True(t, asset.IsNotFound(err))
}

func TestGenerateImagesAndAcceptIdempotence(t *testing.T) {
	calls := 0
	svc, st := newTestService(t, Deps{Images: countingBackend{calls: &calls}})
	ctx := context.Background()
	projectID := bootstrapProject(t, svc)

	_, err := svc.GeneratePlan(ctx, projectID, Preferences{})
	require.NoError(t, err)
	_, err = svc.GenerateShots(ctx, projectID)
	require.NoError(t, err)

	refs, err := svc.GenerateImages(ctx, projectID, scope.Scope{Type: scope.TypeProject})
	require.NoError(t, err)

	// One style frame, one character ref, one location ref, one frame per
	// shot (one shot per scene, two scenes).
	assert.Len(t, refs, 5)
	assert.Contains(t, refs, "img_style")
	assert.Contains(t, refs, "img_char_CHAR_01")
	assert.Contains(t, refs, "img_loc_LOC_01")
	assert.Contains(t, refs, "img_shot_S001")

	img, version, err := svc.loadImage(ctx, projectID, "img_shot_S001", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Contains(t, img.ImageURL, "placeholder://")

	// Accepting twice is a no-op: still version 1, no version 2.
	for i := 0; i < 2; i++ {
		v, err := svc.ApplyImageAction(ctx, projectID, "img_shot_S001", ActionAccept, asset.LockProfile{}, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
	}
	versions, err := st.ListVersions(ctx, projectID, asset.KindImage, "img_shot_S001")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, asset.StatusAccepted, versions[0].Status)
}

func TestApplyImageActionEdit(t *testing.T) {
	svc, _ := newTestService(t, Deps{})
	ctx := context.Background()
	projectID := bootstrapProject(t, svc)

	_, err := svc.GeneratePlan(ctx, projectID, Preferences{})
	require.NoError(t, err)
	_, err = svc.GenerateShots(ctx, projectID)
	require.NoError(t, err)
	_, err = svc.GenerateImages(ctx, projectID, scope.Scope{Type: scope.TypeShot, ShotID: "S001"})
	require.NoError(t, err)

	v, err := svc.ApplyImageAction(ctx, projectID, "img_shot_S001", ActionEdit, asset.LockProfile{}, "add fog rolling in")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	img, _, err := svc.loadImage(ctx, projectID, "img_shot_S001", 2)
	require.NoError(t, err)
	assert.Contains(t, img.PromptUsed, "Add: add fog rolling in")

	// The original version is untouched.
	img1, _, err := svc.loadImage(ctx, projectID, "img_shot_S001", 1)
	require.NoError(t, err)
	assert.NotContains(t, img1.PromptUsed, "fog")
}

func TestApplyImageActionConflictingLock(t *testing.T) {
	calls := 0
	svc, st := newTestService(t, Deps{})
	ctx := context.Background()
	projectID := bootstrapProject(t, svc)

	_, err := svc.GeneratePlan(ctx, projectID, Preferences{})
	require.NoError(t, err)
	_, err = svc.GenerateShots(ctx, projectID)
	require.NoError(t, err)
	_, err = svc.GenerateImages(ctx, projectID, scope.Scope{Type: scope.TypeShot, ShotID: "S001"})
	require.NoError(t, err)

	// Swap in a counting backend after setup so only the action under test
	// could touch it.
	svc.images = countingBackend{calls: &calls}

	_, err = svc.ApplyImageAction(ctx, projectID, "img_shot_S001", ActionRegenerate, asset.LockProfile{
		BannedElements:   []string{"hat"},
		MustKeepElements: []string{"hat"},
	}, "")
	require.Error(t, err)
	assert.True(t, continuity.IsConflictingLock(err))
	assert.Zero(t, calls, "conflicting lock must fail before the backend is called")

	versions, err := st.ListVersions(ctx, projectID, asset.KindImage, "img_shot_S001")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestApplyImageActionRegenerateAppendsConstraints(t *testing.T) {
	svc, _ := newTestService(t, Deps{})
	ctx := context.Background()
	projectID := bootstrapProject(t, svc)

	_, err := svc.GeneratePlan(ctx, projectID, Preferences{})
	require.NoError(t, err)
	_, err = svc.GenerateShots(ctx, projectID)
	require.NoError(t, err)
	_, err = svc.GenerateImages(ctx, projectID, scope.Scope{Type: scope.TypeShot, ShotID: "S001"})
	require.NoError(t, err)

	v, err := svc.ApplyImageAction(ctx, projectID, "img_shot_S001", ActionRegenerate, asset.LockProfile{
		PreserveCamera: true,
		BannedElements: []string{"sunglasses"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	img, _, err := svc.loadImage(ctx, projectID, "img_shot_S001", 2)
	require.NoError(t, err)
	assert.Contains(t, img.PromptUsed, "PRESERVE camera angle and framing exactly")
	assert.Contains(t, img.NegativePrompt, "sunglasses")
	assert.True(t, img.LockApplied.PreserveCamera)
}

func TestFixedGeneratorSequence(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
