package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/continuity"
	"github.com/reelplan/reelplan/internal/prompt"
	"github.com/reelplan/reelplan/internal/scope"
	"github.com/reelplan/reelplan/internal/store"
)

// ImageAction is a user decision on one image asset.
type ImageAction string

const (
	ActionAccept     ImageAction = "accept"
	ActionEdit       ImageAction = "edit"
	ActionRegenerate ImageAction = "regenerate"
)

func imageStableID(t asset.ImageType, entityID string) string {
	switch t {
	case asset.ImageStyleFrame:
		return "img_style"
	case asset.ImageCharacterRef:
		return "img_char_" + entityID
	case asset.ImageLocationRef:
		return "img_loc_" + entityID
	default:
		return "img_shot_" + entityID
	}
}

// ResolveScope expands a scope against the project's committed head plan
// and shot plan.
func (s *Service) ResolveScope(ctx context.Context, projectID string, sc scope.Scope) (*scope.Resolution, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	plan, _, err := s.loadPlan(ctx, projectID, 0)
	if err != nil && !asset.IsNotFound(err) {
		return nil, err
	}
	sp, _, err := s.loadShotPlan(ctx, projectID, 0)
	if err != nil && !asset.IsNotFound(err) {
		return nil, err
	}

	byType, err := s.imageIDsByType(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return scope.Resolve(sc, plan, sp, byType)
}

// imageIDsByType groups the project's existing image stable ids by their
// head version's asset type.
func (s *Service) imageIDsByType(ctx context.Context, projectID string) (map[asset.ImageType][]string, error) {
	ids, err := s.store.ListStableIDs(ctx, projectID, asset.KindImage)
	if err != nil {
		return nil, err
	}
	out := make(map[asset.ImageType][]string)
	for _, id := range ids {
		img, _, err := s.loadImage(ctx, projectID, id, 0)
		if err != nil {
			return nil, err
		}
		out[img.AssetType] = append(out[img.AssetType], id)
	}
	return out, nil
}

// GenerateImages renders every image the scope targets and commits each as
// a new version of its stable id. Returns asset refs keyed by stable id.
func (s *Service) GenerateImages(ctx context.Context, projectID string, sc scope.Scope) (refs map[string]string, err error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	job := s.startJob(ctx, projectID, asset.JobGenerateImages)
	defer func() { s.finishJob(ctx, job, refs, err) }()

	res, err := s.ResolveScope(ctx, projectID, sc)
	if err != nil {
		return nil, err
	}
	plan, _, err := s.loadPlan(ctx, projectID, 0)
	if err != nil {
		return nil, err
	}

	refs = make(map[string]string)
	for _, t := range res.AssetTypes {
		switch t {
		case asset.ImageStyleFrame:
			img := asset.Image{
				AssetType:   asset.ImageStyleFrame,
				PromptUsed:  prompt.StyleFrame(plan),
				LockApplied: asset.LockProfile{PreserveStyle: true},
			}
			if err := s.renderAndPut(ctx, projectID, imageStableID(t, ""), &img, refs); err != nil {
				return nil, err
			}

		case asset.ImageCharacterRef:
			for _, id := range sortedMapKeys(plan.Characters) {
				ch := plan.Characters[id]
				img := asset.Image{
					AssetType:     asset.ImageCharacterRef,
					CharacterRefs: []string{id},
					PromptUsed:    prompt.CharacterReference(ch, plan),
					LockApplied:   asset.LockProfile{PreserveIdentity: true, PreserveStyle: true},
				}
				if err := s.renderAndPut(ctx, projectID, imageStableID(t, id), &img, refs); err != nil {
					return nil, err
				}
			}

		case asset.ImageLocationRef:
			for _, id := range sortedMapKeys(plan.Locations) {
				loc := plan.Locations[id]
				img := asset.Image{
					AssetType:   asset.ImageLocationRef,
					LocationRef: id,
					PromptUsed:  prompt.LocationReference(loc, plan),
					LockApplied: asset.LockProfile{PreserveLocationLayout: true, PreserveStyle: true},
				}
				if err := s.renderAndPut(ctx, projectID, imageStableID(t, id), &img, refs); err != nil {
					return nil, err
				}
			}
		}
	}

	if len(res.ShotIDs) > 0 {
		sp, _, err := s.loadShotPlan(ctx, projectID, 0)
		if err != nil {
			return nil, err
		}
		shots := make(map[string]asset.Shot, len(sp.Shots))
		for _, shot := range sp.Shots {
			shots[shot.ShotID] = shot
		}
		for _, shotID := range res.ShotIDs {
			shot, ok := shots[shotID]
			if !ok {
				return nil, &asset.NotFoundError{Resource: "shot", ID: shotID}
			}
			img := asset.Image{
				AssetType:      asset.ImageShotFrame,
				ShotID:         shot.ShotID,
				CharacterRefs:  shot.CharacterRefs,
				LocationRef:    shot.LocationRef,
				PromptUsed:     prompt.ShotFrame(shot, plan),
				NegativePrompt: shot.NegativePrompt,
				LockApplied:    continuity.DeriveDefaults(shot.ContinuityLock),
			}
			if err := s.renderAndPut(ctx, projectID, imageStableID(asset.ImageShotFrame, shot.ShotID), &img, refs); err != nil {
				return nil, err
			}
		}
	}

	s.log.Info("images generated", "project_id", projectID, "scope", sc.String(), "count", len(refs))
	return refs, nil
}

// renderAndPut calls the image backend and commits the result as the next
// version of the stable id.
func (s *Service) renderAndPut(ctx context.Context, projectID, stableID string, img *asset.Image, refs map[string]string) error {
	negative := prompt.Negative(img.NegativePrompt, img.LockApplied, nil)
	url, err := s.images.Generate(ctx, img.PromptUsed, negative, img.LockApplied)
	if err != nil {
		return fmt.Errorf("generate image %s: %w", stableID, err)
	}
	img.ImageURL = url
	img.NegativePrompt = negative

	version, err := s.putImage(ctx, projectID, stableID, img, map[string]any{
		"op":    "generate_images",
		"model": "image_backend",
	})
	if err != nil {
		return err
	}
	refs[stableID] = asset.BuildRef(stableID, version)
	return nil
}

func (s *Service) putImage(ctx context.Context, projectID, stableID string, img *asset.Image, provenance map[string]any) (int64, error) {
	payload, err := marshalPayload(img)
	if err != nil {
		return 0, err
	}
	head, err := s.store.Head(ctx, projectID, asset.KindImage, stableID)
	if err != nil {
		return 0, err
	}
	prov, _ := json.Marshal(provenance)
	return s.store.Put(ctx, store.PutRequest{
		ProjectID:   projectID,
		Kind:        asset.KindImage,
		StableID:    stableID,
		BaseVersion: head,
		Payload:     payload,
		Provenance:  prov,
	})
}

func (s *Service) loadImage(ctx context.Context, projectID, stableID string, version int64) (*asset.Image, int64, error) {
	rec, err := s.store.Get(ctx, projectID, asset.KindImage, stableID, version)
	if err != nil {
		return nil, 0, err
	}
	var img asset.Image
	if err := json.Unmarshal(rec.Payload, &img); err != nil {
		return nil, 0, fmt.Errorf("decode image %s v%d: %w", stableID, rec.Version, err)
	}
	return &img, rec.Version, nil
}

// ApplyImageAction handles a user decision on an image.
//
// accept flips the head version's status and never creates a version, so
// accepting twice is a no-op. edit and regenerate merge the shot's implicit
// lock defaults with the requested profile before touching the backend; a
// conflicting profile fails here, with no backend call and no new version.
func (s *Service) ApplyImageAction(ctx context.Context, projectID, stableID string, action ImageAction, requested asset.LockProfile, feedback string) (int64, error) {
	img, headVersion, err := s.loadImage(ctx, projectID, stableID, 0)
	if err != nil {
		return 0, err
	}

	if action == ActionAccept {
		if err := s.store.Accept(ctx, projectID, asset.KindImage, stableID, headVersion); err != nil {
			return 0, err
		}
		s.log.Info("image accepted", "project_id", projectID, "image", stableID, "version", headVersion)
		return headVersion, nil
	}

	defaults, err := s.lockDefaultsFor(ctx, projectID, img)
	if err != nil {
		return 0, err
	}
	merged, err := continuity.Merge(defaults, requested)
	if err != nil {
		return 0, err
	}

	next := *img
	next.LockApplied = merged

	var jobType asset.JobType
	switch action {
	case ActionEdit:
		jobType = asset.JobEditImage
		delta, err := s.interpreter.InterpretFeedback(ctx, *img, feedback)
		if err != nil {
			return 0, fmt.Errorf("interpret feedback: %w", err)
		}
		next.PromptUsed = prompt.Edit(img.PromptUsed, delta)
		next.NegativePrompt = prompt.Negative(img.NegativePrompt, merged, delta.RemoveElements)

	case ActionRegenerate:
		jobType = asset.JobRegenerateImage
		next.PromptUsed = prompt.Regenerate(img.PromptUsed, merged)
		next.NegativePrompt = prompt.Negative(img.NegativePrompt, merged, nil)

	default:
		return 0, fmt.Errorf("unknown image action %q", action)
	}

	job := s.startJob(ctx, projectID, jobType)
	version, err := func() (int64, error) {
		url, err := s.images.Generate(ctx, next.PromptUsed, next.NegativePrompt, merged)
		if err != nil {
			return 0, fmt.Errorf("generate image %s: %w", stableID, err)
		}
		next.ImageURL = url
		return s.putImage(ctx, projectID, stableID, &next, map[string]any{
			"op":       string(action),
			"base":     asset.BuildRef(stableID, headVersion),
			"feedback": feedback,
		})
	}()
	s.finishJob(ctx, job, map[string]string{"image": asset.BuildRef(stableID, version)}, err)
	if err != nil {
		return 0, err
	}
	s.log.Info("image action applied", "project_id", projectID, "image", stableID, "action", string(action), "version", version)
	return version, nil
}

// lockDefaultsFor derives the implicit lock profile for an image: shot
// frames derive from their shot's continuity lock, everything else keeps
// the profile the image was generated with.
func (s *Service) lockDefaultsFor(ctx context.Context, projectID string, img *asset.Image) (asset.LockProfile, error) {
	if img.ShotID == "" {
		return img.LockApplied, nil
	}
	sp, _, err := s.loadShotPlan(ctx, projectID, 0)
	if err != nil {
		if asset.IsNotFound(err) {
			return img.LockApplied, nil
		}
		return asset.LockProfile{}, err
	}
	for _, shot := range sp.Shots {
		if shot.ShotID == img.ShotID {
			return continuity.DeriveDefaults(shot.ContinuityLock), nil
		}
	}
	return img.LockApplied, nil
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
