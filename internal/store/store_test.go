package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelplan/reelplan/internal/asset"
)

func newTestStore(t *testing.T, validators map[asset.Kind]Validator) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), validators)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateProject(t *testing.T, s *Store, projectID string) {
	t.Helper()
	err := s.CreateProject(context.Background(), asset.Project{
		ProjectID: projectID,
		Title:     "Test Project",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	s := newTestStore(t, nil)

	checks := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1", // NORMAL
		"foreign_keys": "1",
	}
	for name, want := range checks {
		if err := s.verifyPragma(name, want); err != nil {
			t.Errorf("pragma check failed: %v", err)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path, nil)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	s1.Close()

	s2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	s2.Close()
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	mustCreateProject(t, s, "proj-1")

	v, err := s.Put(ctx, PutRequest{
		ProjectID:  "proj-1",
		Kind:       asset.KindScript,
		StableID:   "script_main",
		Payload:    []byte(`{"content":"INT. OFFICE - DAY"}`),
		Provenance: []byte(`{"source":"user_upload"}`),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if v != 1 {
		t.Errorf("Put() version = %d, want 1", v)
	}

	rec, err := s.Get(ctx, "proj-1", asset.KindScript, "script_main", 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(rec.Payload) != `{"content":"INT. OFFICE - DAY"}` {
		t.Errorf("Get() payload = %s", rec.Payload)
	}
	if rec.Status != asset.StatusDraft {
		t.Errorf("Get() status = %q, want draft", rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Get() created_at is zero")
	}
}

func TestPutVersionsAreMonotonic(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	mustCreateProject(t, s, "proj-1")

	for want := int64(1); want <= 3; want++ {
		v, err := s.Put(ctx, PutRequest{
			ProjectID:   "proj-1",
			Kind:        asset.KindPlan,
			StableID:    "plan_main",
			BaseVersion: want - 1,
			Payload:     []byte(`{"n":1}`),
		})
		if err != nil {
			t.Fatalf("Put() #%d error = %v", want, err)
		}
		if v != want {
			t.Errorf("Put() version = %d, want %d", v, want)
		}
	}

	head, err := s.Head(ctx, "proj-1", asset.KindPlan, "plan_main")
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head != 3 {
		t.Errorf("Head() = %d, want 3", head)
	}
}

func TestPutStaleBaseReturnsConcurrentWrite(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	mustCreateProject(t, s, "proj-1")

	req := PutRequest{
		ProjectID: "proj-1",
		Kind:      asset.KindPlan,
		StableID:  "plan_main",
		Payload:   []byte(`{}`),
	}
	if _, err := s.Put(ctx, req); err != nil {
		t.Fatalf("Put() v1 error = %v", err)
	}
	req.BaseVersion = 1
	if _, err := s.Put(ctx, req); err != nil {
		t.Fatalf("Put() v2 error = %v", err)
	}

	// A writer that read head=1 and now commits loses to the v2 writer.
	req.BaseVersion = 1
	_, err := s.Put(ctx, req)
	if !IsConcurrentWrite(err) {
		t.Fatalf("Put() with stale base error = %v, want ConcurrentWriteError", err)
	}

	// Retry after re-reading the head succeeds.
	head, err := s.Head(ctx, "proj-1", asset.KindPlan, "plan_main")
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	req.BaseVersion = head
	if v, err := s.Put(ctx, req); err != nil || v != 3 {
		t.Fatalf("Put() retry = (%d, %v), want (3, nil)", v, err)
	}
}

func TestPutOldVersionsStayImmutable(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	mustCreateProject(t, s, "proj-1")

	_, err := s.Put(ctx, PutRequest{
		ProjectID: "proj-1", Kind: asset.KindScript, StableID: "script_main",
		Payload: []byte(`{"content":"draft one"}`),
	})
	if err != nil {
		t.Fatalf("Put() v1 error = %v", err)
	}
	_, err = s.Put(ctx, PutRequest{
		ProjectID: "proj-1", Kind: asset.KindScript, StableID: "script_main",
		BaseVersion: 1, Payload: []byte(`{"content":"draft two"}`),
	})
	if err != nil {
		t.Fatalf("Put() v2 error = %v", err)
	}

	rec, err := s.Get(ctx, "proj-1", asset.KindScript, "script_main", 1)
	if err != nil {
		t.Fatalf("Get() v1 error = %v", err)
	}
	if string(rec.Payload) != `{"content":"draft one"}` {
		t.Errorf("v1 payload changed: %s", rec.Payload)
	}

	head, err := s.Get(ctx, "proj-1", asset.KindScript, "script_main", 0)
	if err != nil {
		t.Fatalf("Get() head error = %v", err)
	}
	if head.Version != 2 {
		t.Errorf("head version = %d, want 2", head.Version)
	}
}

func TestPutRunsValidator(t *testing.T) {
	wantErr := errors.New("payload rejected")
	validators := map[asset.Kind]Validator{
		asset.KindScript: func(payload []byte) error { return wantErr },
	}
	s := newTestStore(t, validators)
	ctx := context.Background()
	mustCreateProject(t, s, "proj-1")

	_, err := s.Put(ctx, PutRequest{
		ProjectID: "proj-1", Kind: asset.KindScript, StableID: "script_main",
		Payload: []byte(`{}`),
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Put() error = %v, want validator error", err)
	}

	// A rejected payload must not consume a version number.
	head, err := s.Head(ctx, "proj-1", asset.KindScript, "script_main")
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head != 0 {
		t.Errorf("Head() after rejected put = %d, want 0", head)
	}
}

func TestAcceptIsIdempotent(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	mustCreateProject(t, s, "proj-1")

	_, err := s.Put(ctx, PutRequest{
		ProjectID: "proj-1", Kind: asset.KindImage, StableID: "img_s001",
		Payload: []byte(`{"image_url":"placeholder://x"}`),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.Accept(ctx, "proj-1", asset.KindImage, "img_s001", 1); err != nil {
			t.Fatalf("Accept() call %d error = %v", i+1, err)
		}
	}

	rec, err := s.Get(ctx, "proj-1", asset.KindImage, "img_s001", 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Status != asset.StatusAccepted {
		t.Errorf("status = %q, want accepted", rec.Status)
	}
	if string(rec.Payload) != `{"image_url":"placeholder://x"}` {
		t.Errorf("accept changed payload: %s", rec.Payload)
	}

	// Accepting must not mint a new version.
	versions, err := s.ListVersions(ctx, "proj-1", asset.KindImage, "img_s001")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(versions) != 1 {
		t.Errorf("version count after accept = %d, want 1", len(versions))
	}
}

func TestAcceptUnknownVersion(t *testing.T) {
	s := newTestStore(t, nil)
	mustCreateProject(t, s, "proj-1")

	err := s.Accept(context.Background(), "proj-1", asset.KindImage, "img_missing", 1)
	if !asset.IsNotFound(err) {
		t.Fatalf("Accept() error = %v, want NotFoundError", err)
	}
}

func TestGetUnknownAsset(t *testing.T) {
	s := newTestStore(t, nil)
	mustCreateProject(t, s, "proj-1")

	_, err := s.Get(context.Background(), "proj-1", asset.KindPlan, "plan_missing", 0)
	if !asset.IsNotFound(err) {
		t.Fatalf("Get() error = %v, want NotFoundError", err)
	}
}

func TestListStableIDsIsSorted(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	mustCreateProject(t, s, "proj-1")

	for _, id := range []string{"img_c", "img_a", "img_b"} {
		_, err := s.Put(ctx, PutRequest{
			ProjectID: "proj-1", Kind: asset.KindImage, StableID: id,
			Payload: []byte(`{}`),
		})
		if err != nil {
			t.Fatalf("Put(%s) error = %v", id, err)
		}
	}

	ids, err := s.ListStableIDs(ctx, "proj-1", asset.KindImage)
	if err != nil {
		t.Fatalf("ListStableIDs() error = %v", err)
	}
	want := []string{"img_a", "img_b", "img_c"}
	if len(ids) != len(want) {
		t.Fatalf("ListStableIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestContinuityReportRoundTrip(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	mustCreateProject(t, s, "proj-1")

	report := []byte(`[{"severity":"warning","kind":"state_conflict"}]`)
	if err := s.PutContinuityReport(ctx, "proj-1", "shotplan_main", 2, report); err != nil {
		t.Fatalf("PutContinuityReport() error = %v", err)
	}

	got, err := s.GetContinuityReport(ctx, "proj-1", "shotplan_main", 2)
	if err != nil {
		t.Fatalf("GetContinuityReport() error = %v", err)
	}
	if string(got) != string(report) {
		t.Errorf("report = %s, want %s", got, report)
	}

	_, err = s.GetContinuityReport(ctx, "proj-1", "shotplan_main", 1)
	if !asset.IsNotFound(err) {
		t.Fatalf("GetContinuityReport() for unvalidated version error = %v, want NotFoundError", err)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	created := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	p := asset.Project{ProjectID: "proj-1", Title: "Noir Short", CreatedAt: created}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	p.ActivePlanRef = "plan_main_v2"
	if err := s.UpdateProject(ctx, p); err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}

	got, err := s.GetProject(ctx, "proj-1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Title != "Noir Short" || got.ActivePlanRef != "plan_main_v2" {
		t.Errorf("GetProject() = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created)
	}

	all, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(all) != 1 || all[0].ProjectID != "proj-1" {
		t.Errorf("ListProjects() = %+v", all)
	}
}

func TestUpdateUnknownProject(t *testing.T) {
	s := newTestStore(t, nil)

	err := s.UpdateProject(context.Background(), asset.Project{ProjectID: "missing"})
	if !asset.IsNotFound(err) {
		t.Fatalf("UpdateProject() error = %v, want NotFoundError", err)
	}
}

func TestJobRoundTrip(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	mustCreateProject(t, s, "proj-1")

	job := asset.Job{
		JobID:     "job-1",
		ProjectID: "proj-1",
		Type:      asset.JobGenerateImages,
		Status:    asset.JobRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.PutJob(ctx, job); err != nil {
		t.Fatalf("PutJob() error = %v", err)
	}

	job.Status = asset.JobCompleted
	job.OutputRefs = map[string]string{"image": "img_s001_v1"}
	if err := s.PutJob(ctx, job); err != nil {
		t.Fatalf("PutJob() update error = %v", err)
	}

	got, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != asset.JobCompleted {
		t.Errorf("job status = %q, want completed", got.Status)
	}
	if got.OutputRefs["image"] != "img_s001_v1" {
		t.Errorf("job output refs = %v", got.OutputRefs)
	}

	jobs, err := s.ListJobs(ctx, "proj-1")
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("ListJobs() count = %d, want 1", len(jobs))
	}
}
