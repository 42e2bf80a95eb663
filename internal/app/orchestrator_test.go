package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raysh454/lawtrack/internal/hierarchy"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/store"
	"github.com/raysh454/lawtrack/internal/testutil"
	"github.com/raysh454/lawtrack/internal/tracker"
)

func lawDoc(name, pubDate, body string) *model.Document {
	return &model.Document{
		BasicInfo: &model.BasicInfo{Name: name, PubDate: pubDate, EffectiveDate: pubDate},
		Articles:  []model.Article{{Number: "1", Title: "목적", Content: body}},
	}
}

// newTestOrchestrator builds an orchestrator over a fake statute service and
// an in-memory store.
func newTestOrchestrator(t *testing.T) (*Orchestrator, *testutil.FakeLawSource) {
	t.Helper()

	src := testutil.NewFakeLawSource()
	cfg := DefaultConfig()
	cfg.Storage.Ephemeral = true
	logger := &testutil.DummyLogger{}

	comps, err := NewComponents(cfg, logger, WithLawSource(src), WithStore(store.NewMemory()))
	if err != nil {
		t.Fatalf("NewComponents: %v", err)
	}
	orch, err := NewOrchestrator(cfg, comps, logger)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	t.Cleanup(func() {
		orch.Close()
		comps.Close()
	})
	return orch, src
}

func trackLaw(t *testing.T, o *Orchestrator, src *testutil.FakeLawSource, name string) {
	t.Helper()
	src.Publish(name, "1001-"+name, "20250101", lawDoc(name, "20250101", "공공성을 앙양함"))
	if _, err := o.AddLaw(context.Background(), name); err != nil {
		t.Fatalf("AddLaw(%s): %v", name, err)
	}
}

// drain collects events until the channel closes.
func drain(t *testing.T, events <-chan JobEvent) []JobEvent {
	t.Helper()
	var out []JobEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for job to finish")
			return out
		}
	}
}

// ─── Construction ──────────────────────────────────────────────────────

func TestNewOrchestrator_RequiresDeps(t *testing.T) {
	t.Parallel()
	if _, err := NewOrchestrator(nil, nil, &testutil.DummyLogger{}); err == nil {
		t.Error("expected error for nil components")
	}
	o, _ := newTestOrchestrator(t)
	if _, err := NewOrchestrator(nil, o.Components(), nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestNewOrchestrator_DefaultConfig(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t)
	o2, err := NewOrchestrator(nil, o.Components(), &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	if o2.cfg == nil {
		t.Fatal("expected default config when nil passed")
	}
}

// ─── Delegates ─────────────────────────────────────────────────────────

func TestOrchestrator_AddListRemove(t *testing.T) {
	t.Parallel()
	o, src := newTestOrchestrator(t)
	ctx := context.Background()

	trackLaw(t, o, src, "사립학교법")

	laws, err := o.ListLaws(ctx)
	if err != nil {
		t.Fatalf("ListLaws: %v", err)
	}
	if len(laws) != 1 || laws[0].Name != "사립학교법" {
		t.Fatalf("unexpected laws: %+v", laws)
	}

	if err := o.RemoveLaw(ctx, "사립학교법"); err != nil {
		t.Fatalf("RemoveLaw: %v", err)
	}
	if err := o.RemoveLaw(ctx, "사립학교법"); !errors.Is(err, tracker.ErrNotTracked) {
		t.Errorf("expected ErrNotTracked, got %v", err)
	}
}

func TestOrchestrator_GraphMarksUpdated(t *testing.T) {
	t.Parallel()
	o, src := newTestOrchestrator(t)
	ctx := context.Background()

	trackLaw(t, o, src, "사립학교법")
	trackLaw(t, o, src, "교육기본법")
	src.Publish("사립학교법", "1002", "20250920", lawDoc("사립학교법", "20250920", "공공성과 투명성을 강화함"))

	if _, err := o.CheckUpdates(ctx); err != nil {
		t.Fatalf("CheckUpdates: %v", err)
	}

	g, err := o.Graph(ctx)
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	status := map[string]string{}
	for _, n := range g.Nodes {
		status[n.ID] = n.Status
	}
	if status["사립학교법"] != hierarchy.StatusUpdated {
		t.Errorf("expected 사립학교법 updated, got %q", status["사립학교법"])
	}
	if status["교육기본법"] != hierarchy.StatusTracked {
		t.Errorf("expected 교육기본법 tracked, got %q", status["교육기본법"])
	}
	if status["고등교육법"] != hierarchy.StatusNormal {
		t.Errorf("expected related 고등교육법 normal, got %q", status["고등교육법"])
	}
}

// ─── Jobs ──────────────────────────────────────────────────────────────

func TestCheckJob_RunsCycleAndReportsProgress(t *testing.T) {
	t.Parallel()
	o, src := newTestOrchestrator(t)

	trackLaw(t, o, src, "사립학교법")
	trackLaw(t, o, src, "민법")
	src.Publish("사립학교법", "1002", "20250920", lawDoc("사립학교법", "20250920", "공공성과 투명성을 강화함"))

	job, err := o.StartCheckJob(context.Background())
	if err != nil {
		t.Fatalf("StartCheckJob: %v", err)
	}
	if job.Type != JobTypeCheck || job.Status != JobPending {
		t.Errorf("unexpected initial job: %+v", job)
	}

	events := drain(t, job.Events)
	if len(events) == 0 || events[0].Status != JobPending {
		t.Fatalf("expected pending event first, got %+v", events)
	}
	last := events[len(events)-1]
	if last.Type != JobEventResult || last.Status != JobDone {
		t.Errorf("expected done result last, got %+v", last)
	}

	progress := 0
	for _, ev := range events {
		if ev.Type == JobEventProgress {
			progress++
			if ev.Total != 2 {
				t.Errorf("expected total 2, got %d", ev.Total)
			}
		}
	}
	if progress != 2 {
		t.Errorf("expected 2 progress events, got %d", progress)
	}

	got := o.GetJob(job.ID)
	if got == nil || got.Report == nil {
		t.Fatalf("expected job with report, got %+v", got)
	}
	if got.Report.Succeeded != 1 || got.Report.Unchanged != 1 {
		t.Errorf("unexpected report: %+v", got.Report)
	}
	if got.EndedAt.IsZero() {
		t.Error("expected EndedAt set")
	}
}

func TestCheckJob_OnlyOneAtATime(t *testing.T) {
	t.Parallel()
	o, src := newTestOrchestrator(t)
	trackLaw(t, o, src, "사립학교법")
	src.Gate = make(chan struct{})

	job, err := o.StartCheckJob(context.Background())
	if err != nil {
		t.Fatalf("StartCheckJob: %v", err)
	}
	if _, err := o.StartCheckJob(context.Background()); !errors.Is(err, ErrCheckRunning) {
		t.Fatalf("expected ErrCheckRunning, got %v", err)
	}

	close(src.Gate)
	drain(t, job.Events)

	next, err := o.StartCheckJob(context.Background())
	if err != nil {
		t.Fatalf("expected a new check job after the first finished: %v", err)
	}
	drain(t, next.Events)
}

func TestCheckJob_Cancel(t *testing.T) {
	t.Parallel()
	o, src := newTestOrchestrator(t)
	trackLaw(t, o, src, "사립학교법")
	src.Gate = make(chan struct{})

	job, err := o.StartCheckJob(context.Background())
	if err != nil {
		t.Fatalf("StartCheckJob: %v", err)
	}
	o.CancelJob(job.ID)
	drain(t, job.Events)

	got := o.GetJob(job.ID)
	if got.Status != JobCanceled {
		t.Errorf("expected canceled, got %s", got.Status)
	}
	if got.Error == "" {
		t.Error("expected cancellation error message")
	}
}

func TestCheckJob_OutlivesRequestContext(t *testing.T) {
	t.Parallel()
	o, src := newTestOrchestrator(t)
	trackLaw(t, o, src, "사립학교법")

	ctx, cancel := context.WithCancel(context.Background())
	job, err := o.StartCheckJob(ctx)
	if err != nil {
		t.Fatalf("StartCheckJob: %v", err)
	}
	cancel()
	drain(t, job.Events)

	if got := o.GetJob(job.ID); got.Status != JobDone {
		t.Errorf("expected done, got %s (%s)", got.Status, got.Error)
	}
}

func TestBulkAddJob(t *testing.T) {
	t.Parallel()
	o, src := newTestOrchestrator(t)
	src.Publish("민법", "2001", "20240101", lawDoc("민법", "20240101", "민사에 관하여"))
	trackLaw(t, o, src, "사립학교법")

	job := o.StartBulkAddJob(context.Background(), []string{"민법", "사립학교법", "없는법"})
	drain(t, job.Events)

	got := o.GetJob(job.ID)
	if got.Status != JobDone {
		t.Fatalf("expected done, got %s", got.Status)
	}
	want := []tracker.BulkStatus{tracker.BulkAdded, tracker.BulkSkipped, tracker.BulkFailed}
	if len(got.BulkResults) != len(want) {
		t.Fatalf("expected %d results, got %+v", len(want), got.BulkResults)
	}
	for i, w := range want {
		if got.BulkResults[i].Status != w {
			t.Errorf("result %d: expected %s, got %s", i, w, got.BulkResults[i].Status)
		}
	}
}

func TestGetJob_Unknown(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t)
	if o.GetJob("missing") != nil {
		t.Error("expected nil for unknown job")
	}
	o.CancelJob("missing")
}

func TestListJobs_NewestFirst(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t)

	first := o.StartBulkAddJob(context.Background(), nil)
	drain(t, first.Events)
	time.Sleep(2 * time.Millisecond)
	second := o.StartBulkAddJob(context.Background(), nil)
	drain(t, second.Events)

	jobs := o.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != second.ID {
		t.Errorf("expected newest job first")
	}
}

func TestOrchestrator_ShutdownWaitsForJobs(t *testing.T) {
	t.Parallel()
	o, src := newTestOrchestrator(t)
	trackLaw(t, o, src, "사립학교법")
	src.Gate = make(chan struct{})

	job, err := o.StartCheckJob(context.Background())
	if err != nil {
		t.Fatalf("StartCheckJob: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := o.GetJob(job.ID); got.Status != JobCanceled {
		t.Errorf("expected canceled after shutdown, got %s", got.Status)
	}
}
