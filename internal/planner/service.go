package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/config"
	"github.com/reelplan/reelplan/internal/store"
)

// Stable ids of the singleton assets every project carries. Image assets
// get derived stable ids instead (see imageStableID).
const (
	scriptStableID   = "script_main"
	planStableID     = "plan_main"
	shotPlanStableID = "shotplan_main"
)

// Deps wires a Service. Store and Config are required; every other field
// falls back to a working default.
type Deps struct {
	Store       *store.Store
	Config      config.Config
	Logger      *slog.Logger
	IDs         IDGenerator
	Extractor   PlanExtractor
	ShotPlanner ShotPlanner
	Interpreter FeedbackInterpreter
	Images      ImageBackend
}

// Service exposes the planning operations. All methods are safe for
// concurrent use; per-asset write races surface as ConcurrentWriteError
// from the store.
type Service struct {
	store       *store.Store
	cfg         config.Config
	log         *slog.Logger
	ids         IDGenerator
	extractor   PlanExtractor
	shotPlanner ShotPlanner
	interpreter FeedbackInterpreter
	images      ImageBackend
}

// New builds a Service, filling unset collaborators with local defaults.
func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.IDs == nil {
		d.IDs = UUIDv7Generator{}
	}
	if d.Extractor == nil {
		d.Extractor = HeuristicExtractor{}
	}
	if d.ShotPlanner == nil {
		d.ShotPlanner = HeuristicShotPlanner{}
	}
	if d.Interpreter == nil {
		d.Interpreter = LiteralFeedbackInterpreter{}
	}
	if d.Images == nil {
		d.Images = PlaceholderImageBackend{}
	}
	return &Service{
		store:       d.Store,
		cfg:         d.Config,
		log:         d.Logger,
		ids:         d.IDs,
		extractor:   d.Extractor,
		shotPlanner: d.ShotPlanner,
		interpreter: d.Interpreter,
		images:      d.Images,
	}
}

// CreateProject creates an empty project and returns it.
func (s *Service) CreateProject(ctx context.Context, title string) (*asset.Project, error) {
	p := asset.Project{
		ProjectID: s.ids.Generate(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("project created", "project_id", p.ProjectID, "title", title)
	return &p, nil
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, projectID string) (*asset.Project, error) {
	return s.store.GetProject(ctx, projectID)
}

// ListProjects returns all projects ordered by creation time.
func (s *Service) ListProjects(ctx context.Context) ([]asset.Project, error) {
	return s.store.ListProjects(ctx)
}

// CreateOrUpdateScript commits the script text as a new version and points
// the project's active script ref at it. The first call creates version 1;
// later calls append version N+1.
func (s *Service) CreateOrUpdateScript(ctx context.Context, projectID, content string) (int64, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}

	payload, err := marshalPayload(asset.Script{Content: content})
	if err != nil {
		return 0, err
	}
	head, err := s.store.Head(ctx, projectID, asset.KindScript, scriptStableID)
	if err != nil {
		return 0, err
	}
	version, err := s.store.Put(ctx, store.PutRequest{
		ProjectID:   projectID,
		Kind:        asset.KindScript,
		StableID:    scriptStableID,
		BaseVersion: head,
		Payload:     payload,
		Provenance:  []byte(`{"op":"create_or_update_script"}`),
	})
	if err != nil {
		return 0, err
	}

	project.ActiveScriptRef = asset.BuildRef(scriptStableID, version)
	if err := s.store.UpdateProject(ctx, *project); err != nil {
		return 0, err
	}
	s.log.Info("script committed", "project_id", projectID, "version", version)
	return version, nil
}

// startJob records a running job; finishJob flips it to its terminal state.
// Job bookkeeping never fails the operation it describes.
func (s *Service) startJob(ctx context.Context, projectID string, jobType asset.JobType) asset.Job {
	job := asset.Job{
		JobID:     s.ids.Generate(),
		ProjectID: projectID,
		Type:      jobType,
		Status:    asset.JobRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.PutJob(ctx, job); err != nil {
		s.log.Warn("job record failed", "job_id", job.JobID, "error", err)
	}
	return job
}

func (s *Service) finishJob(ctx context.Context, job asset.Job, outputRefs map[string]string, opErr error) {
	now := time.Now().UTC()
	job.CompletedAt = &now
	if opErr != nil {
		job.Status = asset.JobFailed
		job.Error = opErr.Error()
	} else {
		job.Status = asset.JobCompleted
		job.OutputRefs = outputRefs
	}
	if err := s.store.PutJob(ctx, job); err != nil {
		s.log.Warn("job record failed", "job_id", job.JobID, "error", err)
	}
}

func marshalPayload(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return raw, nil
}
