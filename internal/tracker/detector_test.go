package tracker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/testutil"
	"github.com/raysh454/lawtrack/internal/tracker"
)

func TestDetector_Check(t *testing.T) {
	t.Parallel()
	src := testutil.NewFakeLawSource()
	src.Publish("사립학교법", "200", "20250920", nil)
	d := tracker.NewDetector(src)

	tests := []struct {
		name        string
		stored      string
		wantChanged bool
	}{
		{"same date", "20250920", false},
		{"new date", "20250814", true},
		{"first observation", "", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			det, err := d.Check(context.Background(), model.TrackedLaw{Name: "사립학교법", LastPubDate: tt.stored})
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, det.Changed)
			assert.Equal(t, "20250920", det.PubDate)
			assert.Equal(t, "200", det.SequenceID)
		})
	}
}

func TestDetector_Undetermined(t *testing.T) {
	t.Parallel()
	src := testutil.NewFakeLawSource()
	boom := errors.New("boom")
	src.FailSearch("a", boom)
	src.SetResults("c", []model.SearchResult{{SequenceID: "1", Name: "c"}})
	d := tracker.NewDetector(src)

	_, err := d.Check(context.Background(), model.TrackedLaw{Name: "a", LastPubDate: "1"})
	assert.ErrorIs(t, err, tracker.ErrUndetermined)
	assert.ErrorIs(t, err, boom)

	_, err = d.Check(context.Background(), model.TrackedLaw{Name: "b", LastPubDate: "1"})
	assert.ErrorIs(t, err, tracker.ErrUndetermined)

	_, err = d.Check(context.Background(), model.TrackedLaw{Name: "c", LastPubDate: "1"})
	assert.ErrorIs(t, err, tracker.ErrUndetermined)
}

func TestDetector_PrefersExactName(t *testing.T) {
	t.Parallel()
	src := testutil.NewFakeLawSource()
	src.SetResults("민법", []model.SearchResult{
		{SequenceID: "1", Name: "난민법", PubDate: "20240101"},
		{SequenceID: "2", Name: "민법", PubDate: "20250101"},
	})
	det, err := tracker.NewDetector(src).Check(context.Background(), model.TrackedLaw{Name: "민법", LastPubDate: "20250101"})
	require.NoError(t, err)
	assert.False(t, det.Changed)
	assert.Equal(t, "2", det.SequenceID)
}

func TestDetector_FallsBackToFirstHit(t *testing.T) {
	t.Parallel()
	src := testutil.NewFakeLawSource()
	src.SetResults("민법", []model.SearchResult{
		{SequenceID: "7", Name: "민법 시행령", PubDate: "20250301"},
		{SequenceID: "8", Name: "난민법", PubDate: "20240101"},
	})
	det, err := tracker.NewDetector(src).Check(context.Background(), model.TrackedLaw{Name: "민법", LastPubDate: "20250101"})
	require.NoError(t, err)
	assert.True(t, det.Changed)
	assert.Equal(t, "7", det.SequenceID)
	assert.Equal(t, "20250301", det.PubDate)
}
