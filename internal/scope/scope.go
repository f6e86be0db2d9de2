package scope

import (
	"fmt"

	"github.com/reelplan/reelplan/internal/asset"
)

// Type selects how a Scope is interpreted.
type Type string

const (
	// TypeProject targets every shot plus all reference image types.
	TypeProject Type = "project"
	// TypeScene targets every shot belonging to one scene.
	TypeScene Type = "scene"
	// TypeShot targets exactly one shot.
	TypeShot Type = "shot"
	// TypeAsset targets all images of one type, independent of shots.
	TypeAsset Type = "asset"
)

// Scope is a regeneration or edit target selector. Exactly one of the
// qualifier fields is meaningful, determined by Type.
type Scope struct {
	Type      Type            `json:"type"`
	SceneID   string          `json:"scene_id,omitempty"`
	ShotID    string          `json:"shot_id,omitempty"`
	AssetType asset.ImageType `json:"asset_type,omitempty"`
}

func (s Scope) String() string {
	switch s.Type {
	case TypeScene:
		return fmt.Sprintf("scene(%s)", s.SceneID)
	case TypeShot:
		return fmt.Sprintf("shot(%s)", s.ShotID)
	case TypeAsset:
		return fmt.Sprintf("asset(%s)", s.AssetType)
	default:
		return string(s.Type)
	}
}

// Resolution is the concrete target set a Scope expands to. ShotIDs preserve
// shot-plan order. AssetTypes lists the image types to regenerate beyond
// per-shot frames; ImageIDs lists pre-existing image stable ids selected by
// an asset scope.
type Resolution struct {
	ShotIDs    []string
	AssetTypes []asset.ImageType
	ImageIDs   []string
}

// Resolve expands a scope against the committed plan and shot plan.
// imageIDsByType holds the existing image stable ids per type, used only by
// asset scopes.
func Resolve(sc Scope, plan *asset.Plan, shotPlan *asset.ShotPlan, imageIDsByType map[asset.ImageType][]string) (*Resolution, error) {
	switch sc.Type {
	case TypeProject:
		res := &Resolution{
			AssetTypes: []asset.ImageType{
				asset.ImageCharacterRef,
				asset.ImageLocationRef,
				asset.ImageStyleFrame,
			},
		}
		if shotPlan != nil {
			for _, shot := range shotPlan.Shots {
				res.ShotIDs = append(res.ShotIDs, shot.ShotID)
			}
		}
		return res, nil

	case TypeScene:
		if plan == nil || !planHasScene(plan, sc.SceneID) {
			return nil, &asset.NotFoundError{Resource: "scene", ID: sc.SceneID}
		}
		res := &Resolution{}
		if shotPlan != nil {
			for _, shot := range shotPlan.Shots {
				if shot.SceneID == sc.SceneID {
					res.ShotIDs = append(res.ShotIDs, shot.ShotID)
				}
			}
		}
		return res, nil

	case TypeShot:
		if shotPlan != nil {
			for _, shot := range shotPlan.Shots {
				if shot.ShotID == sc.ShotID {
					return &Resolution{ShotIDs: []string{shot.ShotID}}, nil
				}
			}
		}
		return nil, &asset.NotFoundError{Resource: "shot", ID: sc.ShotID}

	case TypeAsset:
		if !asset.ValidImageType(sc.AssetType) {
			return nil, &asset.NotFoundError{Resource: "asset_type", ID: string(sc.AssetType)}
		}
		return &Resolution{
			AssetTypes: []asset.ImageType{sc.AssetType},
			ImageIDs:   imageIDsByType[sc.AssetType],
		}, nil

	default:
		return nil, &asset.NotFoundError{Resource: "scope", ID: string(sc.Type)}
	}
}

func planHasScene(plan *asset.Plan, sceneID string) bool {
	for _, scene := range plan.Scenes {
		if scene.SceneID == sceneID {
			return true
		}
	}
	return false
}
