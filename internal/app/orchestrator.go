package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/lawtrack/internal/hierarchy"
	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/store"
	"github.com/raysh454/lawtrack/internal/tracker"
)

// ErrCheckRunning is returned when a check job is already in progress.
var ErrCheckRunning = errors.New("app: a check job is already running")

type JobEventType string

const (
	JobEventStatus   JobEventType = "status"
	JobEventProgress JobEventType = "progress"
	JobEventResult   JobEventType = "result"
)

type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	// For status changes
	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// For progress
	Processed int           `json:"processed,omitempty"`
	Total     int           `json:"total,omitempty"`
	Law       string        `json:"law,omitempty"`
	State     tracker.State `json:"state,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

const (
	JobTypeCheck   = "check"
	JobTypeBulkAdd = "bulk-add"
)

type Job struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"` // "check" | "bulk-add"
	Status    JobStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Events    chan JobEvent `json:"-"`

	// Optional results:
	Report      *tracker.CycleReport `json:"report,omitempty"`
	BulkResults []tracker.BulkResult `json:"bulk_results,omitempty"`
}

const jobEventBuffer = 64

// Orchestrator runs tracker operations for the HTTP and MCP surfaces and
// tracks long-running ones as jobs.
type Orchestrator struct {
	cfg    *Config
	comps  *Components
	logger logging.Logger

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc
	checkJobID string
	jobsWG     sync.WaitGroup
}

func NewOrchestrator(cfg *Config, comps *Components, logger logging.Logger) (*Orchestrator, error) {
	if comps == nil {
		return nil, errors.New("app: nil components provided")
	}
	if logger == nil {
		return nil, errors.New("app: nil logger provided")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Orchestrator{
		cfg:        cfg,
		comps:      comps,
		logger:     logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
		jobs:       make(map[string]*Job),
		jobCancels: make(map[string]context.CancelFunc),
	}, nil
}

// Components exposes the underlying services.
func (o *Orchestrator) Components() *Components { return o.comps }

func (o *Orchestrator) emitJobEvent(jobID string, ev JobEvent) {
	o.jobsMu.Lock()
	job, ok := o.jobs[jobID]
	o.jobsMu.Unlock()
	if !ok || job == nil || job.Events == nil {
		return
	}

	// Non-blocking send; drop if buffer is full.
	select {
	case job.Events <- ev:
	default:
	}
}

func (o *Orchestrator) updateJob(jobID string, fn func(*Job)) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if j, ok := o.jobs[jobID]; ok {
		fn(j)
	}
}

// jobFunc does the work of a job.
type jobFunc func(ctx context.Context, jobID string) error

// startJob registers a job and runs fn in the background. It returns a copy
// of the pending job; its Events channel is closed when the job ends.
func (o *Orchestrator) startJob(ctx context.Context, jobID, jobType string, fn jobFunc) *Job {
	job := &Job{
		ID:        jobID,
		Type:      jobType,
		Status:    JobPending,
		StartedAt: time.Now().UTC(),
		Events:    make(chan JobEvent, jobEventBuffer),
	}
	// Jobs outlive the request that started them.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	o.jobsMu.Lock()
	o.jobs[jobID] = job
	o.jobCancels[jobID] = cancel
	o.jobsMu.Unlock()

	o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobPending})

	snapshot := *job

	o.jobsWG.Add(1)
	go func() {
		defer o.jobsWG.Done()
		defer func() {
			o.jobsMu.Lock()
			if j, ok := o.jobs[jobID]; ok {
				j.EndedAt = time.Now().UTC()
			}
			delete(o.jobCancels, jobID)
			if o.checkJobID == jobID {
				o.checkJobID = ""
			}
			o.jobsMu.Unlock()
			cancel()

			// Close events channel so websocket loop can terminate cleanly
			close(job.Events)
		}()

		o.updateJob(jobID, func(j *Job) { j.Status = JobRunning })
		o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: JobEventStatus, Status: JobRunning})

		err := fn(jobCtx, jobID)
		switch {
		case jobCtx.Err() != nil:
			o.finishJob(jobID, JobCanceled, jobCtx.Err().Error(), JobEventStatus)
		case err != nil:
			o.logger.Warn("job failed",
				logging.Field{Key: "job_id", Value: jobID},
				logging.Field{Key: "error", Value: err.Error()})
			o.finishJob(jobID, JobFailed, err.Error(), JobEventStatus)
		default:
			o.finishJob(jobID, JobDone, "", JobEventResult)
		}
	}()

	return &snapshot
}

func (o *Orchestrator) finishJob(jobID string, status JobStatus, errMsg string, evType JobEventType) {
	o.updateJob(jobID, func(j *Job) {
		j.Status = status
		j.Error = errMsg
	})
	o.emitJobEvent(jobID, JobEvent{JobID: jobID, Type: evType, Status: status, Error: errMsg})
}

// StartCheckJob runs one check cycle in the background. Only one check job
// runs at a time.
func (o *Orchestrator) StartCheckJob(ctx context.Context) (*Job, error) {
	o.jobsMu.Lock()
	if o.checkJobID != "" {
		o.jobsMu.Unlock()
		return nil, ErrCheckRunning
	}
	jobID := uuid.New().String()
	o.checkJobID = jobID
	o.jobsMu.Unlock()

	job := o.startJob(ctx, jobID, JobTypeCheck, func(ctx context.Context, jobID string) error {
		report, err := o.comps.Tracker.RunCycle(ctx, func(done, total int, out tracker.Outcome) {
			o.emitJobEvent(jobID, JobEvent{
				JobID:     jobID,
				Type:      JobEventProgress,
				Processed: done,
				Total:     total,
				Law:       out.Name,
				State:     out.State,
			})
		})
		if err != nil {
			return err
		}
		o.updateJob(jobID, func(j *Job) { j.Report = report })
		return nil
	})
	return job, nil
}

// StartBulkAddJob adds names in the background.
func (o *Orchestrator) StartBulkAddJob(ctx context.Context, names []string) *Job {
	return o.startJob(ctx, uuid.New().String(), JobTypeBulkAdd, func(ctx context.Context, jobID string) error {
		results := make([]tracker.BulkResult, 0, len(names))
		for i, name := range names {
			res := o.comps.Tracker.AddLaws(ctx, []string{name})
			results = append(results, res...)
			o.emitJobEvent(jobID, JobEvent{
				JobID:     jobID,
				Type:      JobEventProgress,
				Processed: i + 1,
				Total:     len(names),
				Law:       name,
			})
		}
		o.updateJob(jobID, func(j *Job) { j.BulkResults = results })
		return nil
	})
}

func (o *Orchestrator) CancelJob(jobID string) {
	o.jobsMu.Lock()
	cancel := o.jobCancels[jobID]
	o.jobsMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// GetJob returns a copy of the job, or nil when unknown.
func (o *Orchestrator) GetJob(jobID string) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

// ListJobs returns copies of every job, newest first.
func (o *Orchestrator) ListJobs() []Job {
	o.jobsMu.Lock()
	out := make([]Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, *j)
	}
	o.jobsMu.Unlock()
	sort.Slice(out, func(a, b int) bool { return out[a].StartedAt.After(out[b].StartedAt) })
	return out
}

// Close cancels running jobs and waits for them to stop.
func (o *Orchestrator) Close() {
	o.jobsMu.Lock()
	for _, cancel := range o.jobCancels {
		cancel()
	}
	o.jobsMu.Unlock()
	o.jobsWG.Wait()
}

// Shutdown is Close bounded by ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ─── Tracked laws ──────────────────────────────────────────────────────

func (o *Orchestrator) AddLaw(ctx context.Context, query string) (model.TrackedLaw, error) {
	return o.comps.Tracker.AddLaw(ctx, query)
}

func (o *Orchestrator) RemoveLaw(ctx context.Context, name string) error {
	return o.comps.Tracker.RemoveLaw(ctx, name)
}

func (o *Orchestrator) ListLaws(ctx context.Context) ([]model.TrackedLaw, error) {
	return o.comps.Tracker.ListLaws(ctx)
}

func (o *Orchestrator) GetLaw(ctx context.Context, name string) (model.TrackedLaw, error) {
	return o.comps.Tracker.GetLaw(ctx, name)
}

func (o *Orchestrator) BulkAdd(ctx context.Context, r io.Reader) ([]tracker.BulkResult, error) {
	return o.comps.Tracker.BulkAdd(ctx, r)
}

func (o *Orchestrator) CheckUpdates(ctx context.Context) (*tracker.CycleReport, error) {
	return o.comps.Tracker.CheckUpdates(ctx)
}

func (o *Orchestrator) History(ctx context.Context, limit int) ([]model.UpdateRecord, error) {
	return o.comps.Tracker.History(ctx, limit)
}

func (o *Orchestrator) Stats(ctx context.Context) (tracker.Stats, error) {
	return o.comps.Tracker.Stats(ctx)
}

// ─── Artifacts ─────────────────────────────────────────────────────────

func (o *Orchestrator) Artifact(ctx context.Context, filename string) ([]byte, error) {
	return o.comps.Tracker.Artifact(ctx, filename)
}

func (o *Orchestrator) Artifacts(ctx context.Context) ([]store.ArtifactInfo, error) {
	return o.comps.Tracker.Artifacts(ctx)
}

// ArtifactPDF prints a stored HTML artifact to PDF.
func (o *Orchestrator) ArtifactPDF(ctx context.Context, filename string) ([]byte, error) {
	html, err := o.comps.Tracker.Artifact(ctx, filename)
	if err != nil {
		return nil, err
	}
	printer, err := o.comps.PDF()
	if err != nil {
		return nil, fmt.Errorf("pdf printer: %w", err)
	}
	return printer.Print(ctx, html)
}

// ExportArtifactPDF prints a stored HTML artifact and writes the PDF
// atomically to target, returning the path written.
func (o *Orchestrator) ExportArtifactPDF(ctx context.Context, filename, target string) (string, error) {
	html, err := o.comps.Tracker.Artifact(ctx, filename)
	if err != nil {
		return "", err
	}
	printer, err := o.comps.PDF()
	if err != nil {
		return "", fmt.Errorf("pdf printer: %w", err)
	}
	return printer.PrintToFile(ctx, html, target)
}

// ─── Relationship graph ────────────────────────────────────────────────

// Graph builds the relationship graph for the tracked set. Laws with at
// least one recorded change are marked updated.
func (o *Orchestrator) Graph(ctx context.Context) (hierarchy.GraphData, error) {
	laws, err := o.comps.Tracker.ListLaws(ctx)
	if err != nil {
		return hierarchy.GraphData{}, err
	}
	tracked := make([]string, 0, len(laws))
	var updated []string
	for _, l := range laws {
		tracked = append(tracked, l.Name)
		if l.ChangeCount > 0 {
			updated = append(updated, l.Name)
		}
	}
	return o.comps.Hierarchy.Graph(tracked, updated), nil
}

func (o *Orchestrator) LawInfo(name string) hierarchy.Info {
	return o.comps.Hierarchy.Info(name)
}
