// Package store persists tracked statutes, their snapshots, the global update
// log and rendered comparison artifacts.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/raysh454/lawtrack/internal/model"
)

// ErrNotFound is returned when a requested law, snapshot or artifact does not
// exist.
var ErrNotFound = errors.New("store: not found")

// ErrInvalidName rejects artifact names that are empty or look like paths.
var ErrInvalidName = errors.New("store: invalid artifact name")

// DefaultHistoryLimit is used by UpdateHistory when limit <= 0.
const DefaultHistoryLimit = 100

// ArtifactInfo describes a stored artifact without its content.
type ArtifactInfo struct {
	Filename  string    `json:"filename" db:"filename"`
	Size      int64     `json:"size" db:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChangeSet is everything a recorded change writes. CommitChange applies it
// as one unit: either all of it is visible afterwards or none of it is.
type ChangeSet struct {
	// Snapshot is the freshly fetched document; ID and SavedAt are assigned
	// by the store when empty.
	Snapshot  model.Snapshot
	Artifacts map[string][]byte
	Law       model.TrackedLaw
	Records   []model.UpdateRecord
}

// Store is the persistence boundary of the tracker.
type Store interface {
	LoadTrackedLaws(ctx context.Context) (map[string]model.TrackedLaw, error)
	// SaveTrackedLaws replaces the whole tracked set.
	SaveTrackedLaws(ctx context.Context, laws map[string]model.TrackedLaw) error
	UpsertTrackedLaw(ctx context.Context, law model.TrackedLaw) error
	DeleteTrackedLaw(ctx context.Context, name string) error

	SaveSnapshot(ctx context.Context, lawName, sequenceID string, doc *model.Document) (*model.Snapshot, error)
	// GetLatestSnapshot returns ErrNotFound when the law has no snapshot.
	GetLatestSnapshot(ctx context.Context, lawName string) (*model.Snapshot, error)

	AppendUpdateHistory(ctx context.Context, records []model.UpdateRecord) error
	// UpdateHistory returns the most recent records, newest first.
	UpdateHistory(ctx context.Context, limit int) ([]model.UpdateRecord, error)

	SaveArtifact(ctx context.Context, filename string, content []byte) error
	GetArtifact(ctx context.Context, filename string) ([]byte, error)
	ListArtifacts(ctx context.Context) ([]ArtifactInfo, error)

	CommitChange(ctx context.Context, cs ChangeSet) (*model.Snapshot, error)

	Close() error
}
