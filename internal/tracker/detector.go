package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raysh454/lawtrack/internal/model"
)

// ErrUndetermined means the detector could not tell whether a law changed:
// the lookup failed, the response was unusable or the search found nothing.
// It is distinct from "unchanged".
var ErrUndetermined = errors.New("tracker: change could not be determined")

// LawSource is the statute service as seen by the tracker.
type LawSource interface {
	Search(ctx context.Context, name string) ([]model.SearchResult, error)
	FetchDetail(ctx context.Context, sequenceID string) (*model.Document, error)
}

// Detection is the result of one check.
type Detection struct {
	Changed    bool
	PubDate    string
	SequenceID string
	Result     model.SearchResult
}

// Detector compares a tracked law's stored publication date with the one the
// statute service reports now.
type Detector struct {
	src LawSource
}

func NewDetector(src LawSource) *Detector {
	return &Detector{src: src}
}

// Check searches for law by name and adopts the hit whose name matches
// exactly, or the first hit when none does. The law changed when the
// publication date of the adopted hit differs from the stored one. An empty stored value is a
// first observation, not a change.
func (d *Detector) Check(ctx context.Context, law model.TrackedLaw) (Detection, error) {
	results, err := d.src.Search(ctx, law.Name)
	if err != nil {
		return Detection{}, fmt.Errorf("%w: %w", ErrUndetermined, err)
	}
	hit, ok := pickResult(results, law.Name)
	if !ok {
		return Detection{}, fmt.Errorf("%w: no search results for %q", ErrUndetermined, law.Name)
	}
	if strings.TrimSpace(hit.PubDate) == "" {
		return Detection{}, fmt.Errorf("%w: search hit for %q has no publication date", ErrUndetermined, law.Name)
	}

	return Detection{
		Changed:    law.LastPubDate != "" && law.LastPubDate != hit.PubDate,
		PubDate:    hit.PubDate,
		SequenceID: hit.SequenceID,
		Result:     hit,
	}, nil
}

// pickResult prefers a hit whose name is exactly name and falls back to the
// first hit.
func pickResult(results []model.SearchResult, name string) (model.SearchResult, bool) {
	if len(results) == 0 {
		return model.SearchResult{}, false
	}
	for _, r := range results {
		if r.Name == name {
			return r, true
		}
	}
	return results[0], true
}
