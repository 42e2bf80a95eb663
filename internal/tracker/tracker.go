// Package tracker drives the change-tracking cycle over the tracked statute
// set: detect, fetch, flatten, diff, render and commit, one law at a time.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/raysh454/lawtrack/internal/compare"
	"github.com/raysh454/lawtrack/internal/lawtext"
	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/seqdiff"
	"github.com/raysh454/lawtrack/internal/store"
	"github.com/raysh454/lawtrack/internal/store/blobstore"
)

var (
	ErrAlreadyTracked = errors.New("tracker: law already tracked")
	ErrNotTracked     = errors.New("tracker: law not tracked")
	ErrLawNotFound    = errors.New("tracker: no statute matches the query")
)

// Notifier delivers update records; the result maps channel name to success.
type Notifier interface {
	Notify(ctx context.Context, updates []model.UpdateRecord) map[string]bool
}

// State is where a law's pipeline ended in a cycle.
type State string

const (
	StateUnchanged State = "unchanged"
	StateRecorded  State = "recorded"
	StateFailed    State = "failed"
)

// Stage names a pipeline step; failures report the stage they stopped at.
type Stage string

const (
	StageChecking   Stage = "checking"
	StageFetching   Stage = "fetching"
	StageDiffing    Stage = "diffing"
	StageRendering  Stage = "rendering"
	StagePersisting Stage = "persisting"
)

// Outcome is the per-law result of a cycle.
type Outcome struct {
	Name   string `json:"name"`
	State  State  `json:"state"`
	Stage  Stage  `json:"stage,omitempty"`
	Reason string `json:"reason,omitempty"`
	// Partial is set when a persistence write failed: the change was real
	// but is not durable.
	Partial bool `json:"partial,omitempty"`
	// RenderError is set when the change was recorded without an artifact.
	RenderError string              `json:"render_error,omitempty"`
	Update      *model.UpdateRecord `json:"update,omitempty"`
}

// CycleReport holds one outcome per attempted law, in name order.
type CycleReport struct {
	Outcomes   []Outcome            `json:"outcomes"`
	Updates    []model.UpdateRecord `json:"updates"`
	Succeeded  int                  `json:"succeeded"`
	Unchanged  int                  `json:"unchanged"`
	Failed     int                  `json:"failed"`
	Notified   map[string]bool      `json:"notified"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

// ProgressFunc is called after each law finishes.
type ProgressFunc func(done, total int, outcome Outcome)

type Config struct {
	// MaxConcurrency bounds how many laws are checked at once; <= 1 checks
	// them one after another.
	MaxConcurrency int
	// ArtifactDir, when set, also receives every rendered artifact as a file.
	ArtifactDir string
	// Now overrides the clock.
	Now func() time.Time
	// Render produces the primary comparison artifact referenced by update
	// records. Defaults to compare.SideBySideHTML.
	Render func(compare.Request) (string, error)
}

type Tracker struct {
	src      LawSource
	store    store.Store
	notifier Notifier
	detector *Detector
	cfg      Config
	logger   logging.Logger

	// writeMu serializes every mutation of the tracked set and the update log.
	writeMu sync.Mutex
}

func New(src LawSource, st store.Store, notifier Notifier, cfg Config, logger logging.Logger) (*Tracker, error) {
	if src == nil {
		return nil, errors.New("tracker: nil law source provided")
	}
	if st == nil {
		return nil, errors.New("tracker: nil store provided")
	}
	if logger == nil {
		return nil, errors.New("tracker: nil logger provided")
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Render == nil {
		cfg.Render = compare.SideBySideHTML
	}
	return &Tracker{
		src:      src,
		store:    st,
		notifier: notifier,
		detector: NewDetector(src),
		cfg:      cfg,
		logger:   logger.With(logging.Field{Key: "component", Value: "tracker"}),
	}, nil
}

var tracer = otel.Tracer("github.com/raysh454/lawtrack/internal/tracker")

// CheckUpdates runs one cycle over the whole tracked set.
func (t *Tracker) CheckUpdates(ctx context.Context) (*CycleReport, error) {
	return t.RunCycle(ctx, nil)
}

// RunCycle is CheckUpdates with a progress callback. The returned error is
// only set when the tracked set itself could not be loaded; per-law failures
// are reported as outcomes.
func (t *Tracker) RunCycle(ctx context.Context, progress ProgressFunc) (*CycleReport, error) {
	ctx, span := tracer.Start(ctx, "tracker.CheckUpdates")
	defer span.End()

	report := &CycleReport{StartedAt: t.cfg.Now(), Notified: map[string]bool{}}

	laws, err := t.store.LoadTrackedLaws(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load tracked laws: %w", err)
	}
	names := make([]string, 0, len(laws))
	for name := range laws {
		names = append(names, name)
	}
	sort.Strings(names)

	t.logger.Info("cycle started", logging.Field{Key: "laws", Value: len(names)})
	span.SetAttributes(attribute.Int("laws.total", len(names)))

	outcomes := make([]Outcome, len(names))
	var (
		wg       sync.WaitGroup
		progMu   sync.Mutex
		finished int
	)
	sem := make(chan struct{}, t.cfg.MaxConcurrency)

	for i, name := range names {
		wg.Add(1)
		go func(i int, law model.TrackedLaw) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[i] = t.processLaw(ctx, law)

			if progress != nil {
				progMu.Lock()
				finished++
				progress(finished, len(names), outcomes[i])
				progMu.Unlock()
			}
		}(i, laws[name])
	}
	wg.Wait()

	for _, o := range outcomes {
		switch o.State {
		case StateRecorded:
			report.Succeeded++
			report.Updates = append(report.Updates, *o.Update)
		case StateUnchanged:
			report.Unchanged++
		default:
			report.Failed++
		}
	}
	report.Outcomes = outcomes

	if len(report.Updates) > 0 && t.notifier != nil {
		report.Notified = t.notifier.Notify(ctx, report.Updates)
	}
	report.FinishedAt = t.cfg.Now()

	span.SetAttributes(
		attribute.Int("laws.recorded", report.Succeeded),
		attribute.Int("laws.unchanged", report.Unchanged),
		attribute.Int("laws.failed", report.Failed),
	)
	t.logger.Info("cycle finished",
		logging.Field{Key: "recorded", Value: report.Succeeded},
		logging.Field{Key: "unchanged", Value: report.Unchanged},
		logging.Field{Key: "failed", Value: report.Failed})
	return report, nil
}

// processLaw is the per-law pipeline boundary: every error and panic below it
// becomes an Outcome.
func (t *Tracker) processLaw(ctx context.Context, law model.TrackedLaw) (out Outcome) {
	ctx, span := tracer.Start(ctx, "tracker.checkLaw")
	defer span.End()
	span.SetAttributes(attribute.String("law.name", law.Name))

	logger := t.logger.With(logging.Field{Key: "law", Value: law.Name})
	defer func() {
		if r := recover(); r != nil {
			out = failed(law.Name, StageDiffing, fmt.Errorf("panic: %v", r))
		}
		span.SetAttributes(attribute.String("law.state", string(out.State)))
		switch {
		case out.State == StateFailed:
			span.SetStatus(codes.Error, out.Reason)
			logger.Warn("law check failed",
				logging.Field{Key: "stage", Value: string(out.Stage)},
				logging.Field{Key: "partial", Value: out.Partial},
				logging.Field{Key: "reason", Value: out.Reason})
		case out.RenderError != "":
			logger.Warn("change recorded without artifact",
				logging.Field{Key: "render_error", Value: out.RenderError})
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(law.Name, StageChecking, err)
	}

	det, err := t.detector.Check(ctx, law)
	if err != nil {
		return failed(law.Name, StageChecking, err)
	}
	now := t.cfg.Now()

	if !det.Changed {
		updated := law.Clone()
		updated.LastChecked = &now
		if updated.LastPubDate == "" {
			updated.LastPubDate = det.PubDate
		}
		if base := t.missingBaseline(ctx, logger, law, det); base != nil {
			err = t.commit(ctx, store.ChangeSet{
				Snapshot: model.Snapshot{LawName: law.Name, SequenceID: base.SequenceID, SavedAt: now, Document: base.Document},
				Law:      updated,
			})
		} else {
			err = t.commitLaw(ctx, updated)
		}
		if err != nil {
			o := failed(law.Name, StagePersisting, err)
			o.Partial = !errors.Is(err, ErrNotTracked)
			return o
		}
		logger.Debug("law unchanged", logging.Field{Key: "pub_date", Value: det.PubDate})
		return Outcome{Name: law.Name, State: StateUnchanged}
	}

	logger.Info("change detected",
		logging.Field{Key: "prev_pub_date", Value: law.LastPubDate},
		logging.Field{Key: "pub_date", Value: det.PubDate},
		logging.Field{Key: "sequence_id", Value: det.SequenceID})

	doc, err := t.src.FetchDetail(ctx, det.SequenceID)
	if err == nil && doc == nil {
		err = errors.New("empty detail document")
	}
	if err != nil {
		return failed(law.Name, StageFetching, err)
	}

	var oldLines []string
	prev, err := t.store.GetLatestSnapshot(ctx, law.Name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		oldLines = []string{}
	case err != nil:
		return failed(law.Name, StageDiffing, fmt.Errorf("load previous snapshot: %w", err))
	default:
		oldLines = lawtext.Flatten(prev.Document)
	}
	newLines := lawtext.Flatten(doc)

	ops := seqdiff.Diff(oldLines, newLines)
	if prev != nil && !seqdiff.Changed(ops) {
		logger.Info("publication date changed with identical text",
			logging.Field{Key: "pub_date", Value: det.PubDate})
	}
	req := compare.Request{
		Label:       law.Name,
		Old:         oldLines,
		New:         newLines,
		Ops:         ops,
		GeneratedAt: now,
	}
	artifacts, artifactName, renderErr := t.render(req, det.PubDate)

	record := model.UpdateRecord{
		LawName:        law.Name,
		PrevPubDate:    law.LastPubDate,
		CurPubDate:     det.PubDate,
		PrevSequenceID: law.SequenceID,
		CurSequenceID:  det.SequenceID,
		CheckedAt:      now,
		Artifact:       artifactName,
	}

	updated := law.Clone()
	updated.PushHistory(model.HistoryEntry{
		CheckedAt:   now,
		Description: fmt.Sprintf("공포일자 변경 (%s -> %s)", law.LastPubDate, det.PubDate),
		Artifact:    artifactName,
	})
	updated.ChangeCount++
	updated.SequenceID = det.SequenceID
	updated.PubDate = det.PubDate
	updated.LastPubDate = det.PubDate
	if det.Result.LawID != "" {
		updated.LawID = det.Result.LawID
	}
	if det.Result.EffectiveDate != "" {
		updated.EffectiveDate = det.Result.EffectiveDate
	}
	updated.LastChecked = &now

	err = t.commit(ctx, store.ChangeSet{
		Snapshot:  model.Snapshot{LawName: law.Name, SequenceID: det.SequenceID, SavedAt: now, Document: doc},
		Artifacts: artifacts,
		Law:       updated,
		Records:   []model.UpdateRecord{record},
	})
	if err != nil {
		o := failed(law.Name, StagePersisting, err)
		o.Partial = !errors.Is(err, ErrNotTracked) && ctx.Err() == nil
		return o
	}

	if t.cfg.ArtifactDir != "" && renderErr == nil {
		t.exportArtifacts(logger, artifacts)
	}

	out = Outcome{Name: law.Name, State: StateRecorded, Update: &record}
	if renderErr != nil {
		out.Stage = StageRendering
		out.RenderError = renderErr.Error()
	}
	return out
}

// missingBaseline fetches the current version of an unchanged law that has
// no snapshot yet, so its next amendment diffs against real text. It returns
// nil when a snapshot exists or the fetch fails; a failure is retried on the
// next cycle.
func (t *Tracker) missingBaseline(ctx context.Context, logger logging.Logger, law model.TrackedLaw, det Detection) *model.Snapshot {
	_, err := t.store.GetLatestSnapshot(ctx, law.Name)
	if !errors.Is(err, store.ErrNotFound) {
		if err != nil {
			logger.Warn("snapshot lookup failed", logging.Field{Key: "error", Value: err})
		}
		return nil
	}
	seq := det.SequenceID
	if seq == "" {
		seq = law.SequenceID
	}
	doc, err := t.src.FetchDetail(ctx, seq)
	if err == nil && doc == nil {
		err = errors.New("empty detail document")
	}
	if err != nil {
		logger.Warn("baseline fetch failed",
			logging.Field{Key: "sequence_id", Value: seq},
			logging.Field{Key: "error", Value: err})
		return nil
	}
	logger.Info("baseline snapshot stored", logging.Field{Key: "sequence_id", Value: seq})
	return &model.Snapshot{SequenceID: seq, Document: doc}
}

// render produces the primary artifact, referenced by the update record, and
// its unified text companion. A panic while rendering is returned as an error
// so the change itself is still recorded.
func (t *Tracker) render(req compare.Request, pubDate string) (artifacts map[string][]byte, name *string, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifacts, name, err = nil, nil, fmt.Errorf("render panic: %v", r)
		}
	}()
	html, err := t.cfg.Render(req)
	if err != nil {
		return nil, nil, err
	}
	primary := compare.ArtifactName(req.Label, pubDate)
	artifacts = map[string][]byte{primary: []byte(html)}
	artifacts[compare.TextArtifactName(req.Label, pubDate)] = []byte(compare.UnifiedText(req))
	return artifacts, &primary, nil
}

func (t *Tracker) exportArtifacts(logger logging.Logger, artifacts map[string][]byte) {
	for name, data := range artifacts {
		target := filepath.Join(t.cfg.ArtifactDir, name)
		if err := blobstore.AtomicWriteFile(target, data, 0o644); err != nil {
			logger.Warn("artifact export failed",
				logging.Field{Key: "target", Value: target},
				logging.Field{Key: "error", Value: err})
		}
	}
}

// commitLaw writes a single law record if it is still tracked.
func (t *Tracker) commitLaw(ctx context.Context, law model.TrackedLaw) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.ensureTracked(ctx, law.Name); err != nil {
		return err
	}
	return t.store.UpsertTrackedLaw(ctx, law)
}

// commit applies a recorded change as one unit. A law removed while its
// pipeline was running is not resurrected.
func (t *Tracker) commit(ctx context.Context, cs store.ChangeSet) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.ensureTracked(ctx, cs.Law.Name); err != nil {
		return err
	}
	_, err := t.store.CommitChange(ctx, cs)
	return err
}

func (t *Tracker) ensureTracked(ctx context.Context, name string) error {
	laws, err := t.store.LoadTrackedLaws(ctx)
	if err != nil {
		return err
	}
	if _, ok := laws[name]; !ok {
		return ErrNotTracked
	}
	return nil
}

func failed(name string, stage Stage, err error) Outcome {
	return Outcome{Name: name, State: StateFailed, Stage: stage, Reason: shortReason(err)}
}

// shortReason keeps the first line of an error message.
func shortReason(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
