package tracker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/store"
)

// AddLaw searches for query, adopts the best hit and starts tracking it with
// an initial snapshot. A detail fetch failure still adds the law; the next
// cycle that finds it unchanged stores the missing snapshot.
func (t *Tracker) AddLaw(ctx context.Context, query string) (model.TrackedLaw, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.TrackedLaw{}, ErrLawNotFound
	}
	ctx, span := tracer.Start(ctx, "tracker.AddLaw")
	defer span.End()

	results, err := t.src.Search(ctx, query)
	if err != nil {
		return model.TrackedLaw{}, fmt.Errorf("search %q: %w", query, err)
	}
	hit, ok := pickResult(results, query)
	if !ok {
		return model.TrackedLaw{}, fmt.Errorf("%w: %s", ErrLawNotFound, query)
	}
	name := hit.Name
	if name == "" {
		name = query
	}

	doc, err := t.src.FetchDetail(ctx, hit.SequenceID)
	if err != nil {
		t.logger.Warn("initial detail fetch failed",
			logging.Field{Key: "law", Value: name},
			logging.Field{Key: "error", Value: err})
		doc = nil
	}

	now := t.cfg.Now()
	law := model.TrackedLaw{
		Name:          name,
		SequenceID:    hit.SequenceID,
		LawID:         hit.LawID,
		PubDate:       hit.PubDate,
		EffectiveDate: hit.EffectiveDate,
		LastPubDate:   hit.PubDate,
		AddedAt:       now,
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	laws, err := t.store.LoadTrackedLaws(ctx)
	if err != nil {
		return model.TrackedLaw{}, fmt.Errorf("load tracked laws: %w", err)
	}
	if _, exists := laws[name]; exists {
		return model.TrackedLaw{}, fmt.Errorf("%w: %s", ErrAlreadyTracked, name)
	}

	if doc != nil {
		_, err = t.store.CommitChange(ctx, store.ChangeSet{
			Snapshot: model.Snapshot{LawName: name, SequenceID: hit.SequenceID, SavedAt: now, Document: doc},
			Law:      law,
		})
	} else {
		err = t.store.UpsertTrackedLaw(ctx, law)
	}
	if err != nil {
		return model.TrackedLaw{}, fmt.Errorf("save %q: %w", name, err)
	}

	t.logger.Info("law added",
		logging.Field{Key: "law", Value: name},
		logging.Field{Key: "sequence_id", Value: hit.SequenceID},
		logging.Field{Key: "pub_date", Value: hit.PubDate},
		logging.Field{Key: "snapshot", Value: doc != nil})
	return law, nil
}

// RemoveLaw stops tracking name. Snapshots and artifacts are kept.
func (t *Tracker) RemoveLaw(ctx context.Context, name string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	err := t.store.DeleteTrackedLaw(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotTracked, name)
	}
	if err != nil {
		return fmt.Errorf("remove %q: %w", name, err)
	}
	t.logger.Info("law removed", logging.Field{Key: "law", Value: name})
	return nil
}

// ListLaws returns the tracked set ordered by name.
func (t *Tracker) ListLaws(ctx context.Context) ([]model.TrackedLaw, error) {
	laws, err := t.store.LoadTrackedLaws(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracked laws: %w", err)
	}
	out := make([]model.TrackedLaw, 0, len(laws))
	for _, l := range laws {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *Tracker) GetLaw(ctx context.Context, name string) (model.TrackedLaw, error) {
	laws, err := t.store.LoadTrackedLaws(ctx)
	if err != nil {
		return model.TrackedLaw{}, fmt.Errorf("load tracked laws: %w", err)
	}
	law, ok := laws[name]
	if !ok {
		return model.TrackedLaw{}, fmt.Errorf("%w: %s", ErrNotTracked, name)
	}
	return law, nil
}

// History returns the global update log, newest first.
func (t *Tracker) History(ctx context.Context, limit int) ([]model.UpdateRecord, error) {
	return t.store.UpdateHistory(ctx, limit)
}

// Artifact returns a stored comparison artifact by file name.
func (t *Tracker) Artifact(ctx context.Context, filename string) ([]byte, error) {
	return t.store.GetArtifact(ctx, filename)
}

func (t *Tracker) Artifacts(ctx context.Context) ([]store.ArtifactInfo, error) {
	return t.store.ListArtifacts(ctx)
}

// LatestSnapshot returns the most recent snapshot of a law.
func (t *Tracker) LatestSnapshot(ctx context.Context, name string) (*model.Snapshot, error) {
	return t.store.GetLatestSnapshot(ctx, name)
}

const recentUpdates = 5

// Stats summarizes the tracked set for dashboards.
type Stats struct {
	Tracked       int                  `json:"tracked"`
	TotalChanges  int                  `json:"total_changes"`
	LastCheck     *time.Time           `json:"last_check"`
	RecentUpdates []model.UpdateRecord `json:"recent_updates"`
}

func (t *Tracker) Stats(ctx context.Context) (Stats, error) {
	laws, err := t.store.LoadTrackedLaws(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load tracked laws: %w", err)
	}
	st := Stats{Tracked: len(laws)}
	for _, l := range laws {
		st.TotalChanges += l.ChangeCount
		if l.LastChecked != nil && (st.LastCheck == nil || l.LastChecked.After(*st.LastCheck)) {
			lc := *l.LastChecked
			st.LastCheck = &lc
		}
	}
	st.RecentUpdates, err = t.store.UpdateHistory(ctx, recentUpdates)
	if err != nil {
		return Stats{}, fmt.Errorf("load update history: %w", err)
	}
	return st, nil
}

// BulkStatus is the result of adding one name from a list.
type BulkStatus string

const (
	BulkAdded   BulkStatus = "added"
	BulkSkipped BulkStatus = "skipped"
	BulkFailed  BulkStatus = "failed"
)

type BulkResult struct {
	Query  string     `json:"query"`
	Name   string     `json:"name,omitempty"`
	Status BulkStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// ParseLawList reads one law name per line. Blank lines and lines starting
// with '#' are skipped, and so are repeated names.
func ParseLawList(r io.Reader) ([]string, error) {
	var names []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read law list: %w", err)
	}
	return names, nil
}

// BulkAdd adds every name in the list, skipping ones already tracked.
func (t *Tracker) BulkAdd(ctx context.Context, r io.Reader) ([]BulkResult, error) {
	names, err := ParseLawList(r)
	if err != nil {
		return nil, err
	}
	return t.AddLaws(ctx, names), nil
}

// AddLaws adds each name in order and reports per-name results.
func (t *Tracker) AddLaws(ctx context.Context, names []string) []BulkResult {
	// AddLaw rejects duplicates itself; this is only the fast path.
	tracked, _ := t.store.LoadTrackedLaws(ctx)
	out := make([]BulkResult, 0, len(names))
	for _, q := range names {
		if ctx.Err() != nil {
			out = append(out, BulkResult{Query: q, Status: BulkFailed, Error: ctx.Err().Error()})
			continue
		}
		if _, ok := tracked[q]; ok {
			out = append(out, BulkResult{Query: q, Name: q, Status: BulkSkipped})
			continue
		}
		law, err := t.AddLaw(ctx, q)
		switch {
		case errors.Is(err, ErrAlreadyTracked):
			out = append(out, BulkResult{Query: q, Status: BulkSkipped, Error: err.Error()})
		case err != nil:
			out = append(out, BulkResult{Query: q, Status: BulkFailed, Error: err.Error()})
		default:
			out = append(out, BulkResult{Query: q, Name: law.Name, Status: BulkAdded})
		}
	}
	return out
}
