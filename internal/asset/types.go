package asset

import "time"

// Kind identifies a versioned collection within a project.
// Each kind maps to one append-only collection in the store.
type Kind string

const (
	KindScript   Kind = "script"
	KindPlan     Kind = "plan"
	KindShotPlan Kind = "shot_plan"
	KindImage    Kind = "image"
)

// Status is the lifecycle state of one committed version.
// Accepting a version flips its status in place; the payload never changes.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusAccepted Status = "accepted"
)

// ImageType classifies image assets.
type ImageType string

const (
	ImageShotFrame    ImageType = "shot_frame"
	ImageCharacterRef ImageType = "character_ref"
	ImageLocationRef  ImageType = "location_ref"
	ImageStyleFrame   ImageType = "style_frame"
)

// ValidImageType reports whether t is a known image asset type.
func ValidImageType(t ImageType) bool {
	switch t {
	case ImageShotFrame, ImageCharacterRef, ImageLocationRef, ImageStyleFrame:
		return true
	}
	return false
}

// Project is the root aggregate. It owns all versioned collections for one
// production and carries the active-version pointers the orchestration layer
// reads. Projects are never deleted.
type Project struct {
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`

	// Active asset refs in stable_id + "_v" + version form. Empty until the
	// corresponding asset is first generated.
	ActiveScriptRef     string `json:"active_script_ref,omitempty"`
	ActivePlanRef       string `json:"active_plan_ref,omitempty"`
	ActiveShotPlanRef   string `json:"active_shot_plan_ref,omitempty"`
	ActiveStyleFrameRef string `json:"active_style_frame_ref,omitempty"`
}

// Script is the free-text source material a plan is extracted from.
type Script struct {
	Content  string `json:"content"`
	Title    string `json:"title,omitempty"`
	Language string `json:"language,omitempty"`
}

// ProjectBible holds the style and format settings shared by every shot.
type ProjectBible struct {
	Title           string `json:"title"`
	Genre           string `json:"genre"`
	Tone            string `json:"tone"`
	Style           string `json:"style"`
	AspectRatio     string `json:"aspect_ratio"`
	TargetDurationS int64  `json:"target_duration_s"`
	VisualRealism   string `json:"visual_realism"`
	Pacing          string `json:"pacing"`
}

// Character carries the identity and wardrobe locks that continuity
// validation treats as authoritative.
type Character struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	IdentityLock string   `json:"identity_lock"`
	WardrobeLock string   `json:"wardrobe_lock,omitempty"`
	KeyProps     []string `json:"key_props,omitempty"`
	Role         string   `json:"role,omitempty"`
}

// Location carries the layout lock for a filming location.
type Location struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	LocationLock string `json:"location_lock"`
	TimeOfDay    string `json:"time_of_day,omitempty"`
	Weather      string `json:"weather,omitempty"`
}

// Beat is one story beat within a scene.
type Beat struct {
	BeatIndex     int64  `json:"beat_index"`
	Action        string `json:"action"`
	EmotionalTone string `json:"emotional_tone,omitempty"`
}

// Scene references characters and locations by id. Those references must
// resolve within the same Plan version; the patch engine rejects removals
// that would leave them dangling.
type Scene struct {
	SceneID       string   `json:"scene_id"`
	SceneIndex    int64    `json:"scene_index"`
	Summary       string   `json:"summary"`
	TimeOfDay     string   `json:"time_of_day,omitempty"`
	CharacterRefs []string `json:"character_refs,omitempty"`
	LocationRefs  []string `json:"location_refs,omitempty"`
	Beats         []Beat   `json:"beats,omitempty"`
}

// Plan is the structured narrative extracted from a script. Characters and
// locations are keyed by entity id; scenes are ordered.
type Plan struct {
	SourceScriptID      string               `json:"source_script_id"`
	SourceScriptVersion int64                `json:"source_script_version"`
	ProjectBible        ProjectBible         `json:"project_bible"`
	Characters          map[string]Character `json:"characters"`
	Locations           map[string]Location  `json:"locations"`
	Scenes              []Scene              `json:"scenes"`
}

// Camera holds the framing parameters for one shot.
type Camera struct {
	ShotType string `json:"shot_type"`
	Angle    string `json:"angle"`
	Movement string `json:"movement"`
	Lens     string `json:"lens,omitempty"`
}

// ShotState tracks visible state entering or leaving a shot. Adjacent shots
// within a scene must agree: shot N's state_out is shot N+1's state_in.
type ShotState struct {
	PropsHeld []string          `json:"props_held,omitempty"`
	Wardrobe  map[string]string `json:"wardrobe,omitempty"`
	TimeOfDay string            `json:"time_of_day,omitempty"`
	Weather   string            `json:"weather,omitempty"`
}

// Shot is a single storyboard shot. ContinuityLock is the free-text
// constraint the continuity engine validates against the plan's entity locks.
type Shot struct {
	ShotID           string    `json:"shot_id"`
	SceneID          string    `json:"scene_id"`
	ShotIndexInScene int64     `json:"shot_index_in_scene"`
	DurationS        float64   `json:"duration_s"`
	CharacterRefs    []string  `json:"character_refs,omitempty"`
	LocationRef      string    `json:"location_ref,omitempty"`
	Camera           Camera    `json:"camera"`
	ActionBeat       string    `json:"action_beat"`
	Dialogue         string    `json:"dialogue,omitempty"`
	ContinuityLock   string    `json:"continuity_lock"`
	NegativePrompt   string    `json:"negative_prompt,omitempty"`
	StateIn          ShotState `json:"state_in,omitempty"`
	StateOut         ShotState `json:"state_out,omitempty"`
}

// ShotPlan is the ordered shot list generated from one Plan version.
// PlanID and PlanVersion record which Plan version the shots were cut from;
// continuity validation compares locks against newer plan versions.
type ShotPlan struct {
	PlanID      string `json:"plan_id"`
	PlanVersion int64  `json:"plan_version"`
	Shots       []Shot `json:"shots"`
}

// LockProfile is the preservation constraint set for an image edit or
// regeneration. Flags merge toward preservation; element sets union.
type LockProfile struct {
	PreserveIdentity       bool     `json:"preserve_identity"`
	PreserveWardrobe       bool     `json:"preserve_wardrobe"`
	PreserveStyle          bool     `json:"preserve_style"`
	PreserveCamera         bool     `json:"preserve_camera"`
	PreservePose           bool     `json:"preserve_pose"`
	PreserveLocationLayout bool     `json:"preserve_location_layout"`
	PreserveTimeOfDay      bool     `json:"preserve_time_of_day"`
	BannedElements         []string `json:"banned_elements,omitempty"`
	MustKeepElements       []string `json:"must_keep_elements,omitempty"`
}

// Image is one version of a generated image. ShotID is empty for project,
// character and location reference images.
type Image struct {
	AssetType      ImageType   `json:"asset_type"`
	ShotID         string      `json:"shot_id,omitempty"`
	CharacterRefs  []string    `json:"character_refs,omitempty"`
	LocationRef    string      `json:"location_ref,omitempty"`
	ImageURL       string      `json:"image_url"`
	PromptUsed     string      `json:"prompt_used"`
	NegativePrompt string      `json:"negative_prompt,omitempty"`
	LockApplied    LockProfile `json:"lock_profile_applied"`
}

// JobType classifies orchestration jobs.
type JobType string

const (
	JobExtractPlan     JobType = "extract_plan"
	JobGenerateShots   JobType = "generate_shots"
	JobGenerateImages  JobType = "generate_images"
	JobEditImage       JobType = "edit_image"
	JobRegenerateImage JobType = "regenerate_image"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job records one orchestrated mutation for audit. Jobs are not versioned;
// they are updated in place as the mutation progresses.
type Job struct {
	JobID       string            `json:"job_id"`
	ProjectID   string            `json:"project_id"`
	Type        JobType           `json:"job_type"`
	Status      JobStatus         `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	OutputRefs  map[string]string `json:"output_refs,omitempty"`
	Error       string            `json:"error,omitempty"`
}
