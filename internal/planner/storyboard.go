package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/export"
)

// BuildStoryboard assembles the project's committed head assets into one
// storyboard document. A project with no plan or shot plan yet still
// exports; the missing sections are null.
func (s *Service) BuildStoryboard(ctx context.Context, projectID string) (*export.Storyboard, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	sb := &export.Storyboard{Project: *project}

	plan, _, err := s.loadPlan(ctx, projectID, 0)
	switch {
	case err == nil:
		sb.Plan = plan
	case !asset.IsNotFound(err):
		return nil, err
	}

	sp, _, err := s.loadShotPlan(ctx, projectID, 0)
	switch {
	case err == nil:
		sb.ShotPlan = sp
	case !asset.IsNotFound(err):
		return nil, err
	}

	ids, err := s.store.ListStableIDs(ctx, projectID, asset.KindImage)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		rec, err := s.store.Get(ctx, projectID, asset.KindImage, id, 0)
		if err != nil {
			return nil, err
		}
		var img asset.Image
		if err := json.Unmarshal(rec.Payload, &img); err != nil {
			return nil, fmt.Errorf("decode image %s v%d: %w", id, rec.Version, err)
		}
		sb.Images = append(sb.Images, export.ImageEntry{
			StableID: id,
			Version:  rec.Version,
			Status:   rec.Status,
			Image:    img,
		})
	}
	return sb, nil
}
