package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/lawtrack/internal/model"
)

// Memory is an in-process Store. Values are copied on the way in and out so
// callers never share state with the store.
type Memory struct {
	mu        sync.RWMutex
	laws      map[string]model.TrackedLaw
	snapshots []model.Snapshot
	history   []model.UpdateRecord
	artifacts map[string]memArtifact
	now       func() time.Time
}

type memArtifact struct {
	data      []byte
	updatedAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		laws:      map[string]model.TrackedLaw{},
		artifacts: map[string]memArtifact{},
		now:       time.Now,
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) LoadTrackedLaws(ctx context.Context) (map[string]model.TrackedLaw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]model.TrackedLaw, len(m.laws))
	for k, v := range m.laws {
		out[k] = v.Clone()
	}
	return out, nil
}

func (m *Memory) SaveTrackedLaws(ctx context.Context, laws map[string]model.TrackedLaw) error {
	next := make(map[string]model.TrackedLaw, len(laws))
	for _, v := range laws {
		if strings.TrimSpace(v.Name) == "" {
			return fmt.Errorf("store: tracked law without name")
		}
		next[v.Name] = v.Clone()
	}
	m.mu.Lock()
	m.laws = next
	m.mu.Unlock()
	return nil
}

func (m *Memory) UpsertTrackedLaw(ctx context.Context, law model.TrackedLaw) error {
	if strings.TrimSpace(law.Name) == "" {
		return fmt.Errorf("store: tracked law without name")
	}
	m.mu.Lock()
	m.laws[law.Name] = law.Clone()
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeleteTrackedLaw(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.laws[name]; !ok {
		return ErrNotFound
	}
	delete(m.laws, name)
	return nil
}

func (m *Memory) SaveSnapshot(ctx context.Context, lawName, sequenceID string, doc *model.Document) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertSnapshot(model.Snapshot{LawName: lawName, SequenceID: sequenceID, Document: doc})
}

func (m *Memory) insertSnapshot(snap model.Snapshot) (*model.Snapshot, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = m.now()
	}
	doc, err := copyDocument(snap.Document)
	if err != nil {
		return nil, err
	}
	snap.Document = doc
	m.snapshots = append(m.snapshots, snap)
	out := snap
	return &out, nil
}

func (m *Memory) GetLatestSnapshot(ctx context.Context, lawName string) (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := -1
	for i, s := range m.snapshots {
		// Later inserts win ties on SavedAt.
		if s.LawName == lawName && (idx < 0 || !s.SavedAt.Before(m.snapshots[idx].SavedAt)) {
			idx = i
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}
	snap := m.snapshots[idx]
	doc, err := copyDocument(snap.Document)
	if err != nil {
		return nil, err
	}
	snap.Document = doc
	return &snap, nil
}

// SnapshotCount reports how many snapshots exist for lawName.
func (m *Memory) SnapshotCount(lawName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.snapshots {
		if s.LawName == lawName {
			n++
		}
	}
	return n
}

func (m *Memory) AppendUpdateHistory(ctx context.Context, records []model.UpdateRecord) error {
	m.mu.Lock()
	m.history = append(m.history, records...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) UpdateHistory(ctx context.Context, limit int) ([]model.UpdateRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.UpdateRecord, 0, min(limit, len(m.history)))
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.history[i])
	}
	return out, nil
}

func (m *Memory) SaveArtifact(ctx context.Context, filename string, content []byte) error {
	if err := validateFilename(filename); err != nil {
		return err
	}
	m.mu.Lock()
	m.putArtifact(filename, content)
	m.mu.Unlock()
	return nil
}

func (m *Memory) putArtifact(filename string, content []byte) {
	m.artifacts[filename] = memArtifact{data: append([]byte(nil), content...), updatedAt: m.now()}
}

func (m *Memory) GetArtifact(ctx context.Context, filename string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[filename]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), a.data...), nil
}

func (m *Memory) ListArtifacts(ctx context.Context) ([]ArtifactInfo, error) {
	m.mu.RLock()
	out := make([]ArtifactInfo, 0, len(m.artifacts))
	for name, a := range m.artifacts {
		out = append(out, ArtifactInfo{Filename: name, Size: int64(len(a.data)), UpdatedAt: a.updatedAt})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Filename < out[j].Filename
	})
	return out, nil
}

func (m *Memory) CommitChange(ctx context.Context, cs ChangeSet) (*model.Snapshot, error) {
	if strings.TrimSpace(cs.Law.Name) == "" {
		return nil, fmt.Errorf("store: tracked law without name")
	}
	for name := range cs.Artifacts {
		if err := validateFilename(name); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, err := m.insertSnapshot(cs.Snapshot)
	if err != nil {
		return nil, err
	}
	for name, content := range cs.Artifacts {
		m.putArtifact(name, content)
	}
	m.laws[cs.Law.Name] = cs.Law.Clone()
	m.history = append(m.history, cs.Records...)
	return snap, nil
}

// copyDocument deep-copies through JSON, the same path the SQLite store takes.
func copyDocument(doc *model.Document) (*model.Document, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot document: %w", err)
	}
	var out model.Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode snapshot document: %w", err)
	}
	return &out, nil
}
