// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/store"
	"github.com/raysh454/lawtrack/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns how many warnings were logged with msg.
func (l *DummyLogger) WarnCount(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return count(l.Warns, msg)
}

// InfoCount returns how many info entries were logged with msg.
func (l *DummyLogger) InfoCount(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return count(l.Infos, msg)
}

func count(msgs []string, msg string) int {
	n := 0
	for _, m := range msgs {
		if m == msg {
			n++
		}
	}
	return n
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient.
// It answers with the first Bodies entry whose key is a substring of the URL,
// or "ok:<url>" with status 200. Set FailURLs[url] = true to force an error.
type DummyWebClient struct {
	ResponseDelay time.Duration
	FailURLs      map[string]bool
	Bodies        map[string][]byte
	mu            sync.Mutex
	Requests      []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if d.FailURLs != nil && d.FailURLs[req.URL] {
		return nil, errors.New("dummy fetch fail for " + req.URL)
	}

	body := []byte("ok:" + req.URL)
	for key, b := range d.Bodies {
		if strings.Contains(req.URL, key) {
			body = b
			break
		}
	}
	return &webclient.Response{
		Request:    req,
		Body:       body,
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: "GET", URL: url})
}

func (d *DummyWebClient) Close() error { return nil }

// ─── Statute service ───────────────────────────────────────────────────

// FakeLawSource is an in-memory statute service. Publish makes a version the
// current search hit for a name.
type FakeLawSource struct {
	mu        sync.Mutex
	results   map[string][]model.SearchResult
	details   map[string]*model.Document
	searchErr map[string]error
	detailErr map[string]error

	// Gate, when set, holds every Search until a value is received or the
	// context ends.
	Gate chan struct{}

	SearchCalls int
	DetailCalls int
}

func NewFakeLawSource() *FakeLawSource {
	return &FakeLawSource{
		results:   map[string][]model.SearchResult{},
		details:   map[string]*model.Document{},
		searchErr: map[string]error{},
		detailErr: map[string]error{},
	}
}

// Publish sets name's current version.
func (f *FakeLawSource) Publish(name, sequenceID, pubDate string, doc *model.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[name] = []model.SearchResult{{
		SequenceID:    sequenceID,
		LawID:         "ID-" + name,
		Name:          name,
		PubDate:       pubDate,
		EffectiveDate: pubDate,
	}}
	f.details[sequenceID] = doc
}

// SetResults replaces the raw search hits for a query.
func (f *FakeLawSource) SetResults(query string, results []model.SearchResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[query] = results
}

// FailSearch makes Search(name) fail with err; nil clears it.
func (f *FakeLawSource) FailSearch(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchErr[name] = err
}

// FailDetail makes FetchDetail(sequenceID) fail with err; nil clears it.
func (f *FakeLawSource) FailDetail(sequenceID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailErr[sequenceID] = err
}

func (f *FakeLawSource) Search(ctx context.Context, name string) ([]model.SearchResult, error) {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SearchCalls++
	if err := f.searchErr[name]; err != nil {
		return nil, err
	}
	return append([]model.SearchResult{}, f.results[name]...), nil
}

func (f *FakeLawSource) FetchDetail(ctx context.Context, sequenceID string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DetailCalls++
	if err := f.detailErr[sequenceID]; err != nil {
		return nil, err
	}
	doc, ok := f.details[sequenceID]
	if !ok {
		return nil, errors.New("unknown sequence id " + sequenceID)
	}
	return doc, nil
}

// ─── Notifier ──────────────────────────────────────────────────────────

// DummyNotifier records every Notify call and reports Result.
type DummyNotifier struct {
	mu     sync.Mutex
	Calls  [][]model.UpdateRecord
	Result map[string]bool
}

func (n *DummyNotifier) Notify(_ context.Context, updates []model.UpdateRecord) map[string]bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls = append(n.Calls, append([]model.UpdateRecord(nil), updates...))
	out := map[string]bool{}
	for k, v := range n.Result {
		out[k] = v
	}
	return out
}

// ─── Store ─────────────────────────────────────────────────────────────

// FailingStore wraps a store.Store and fails selected writes.
type FailingStore struct {
	store.Store
	mu        sync.Mutex
	CommitErr map[string]error
	UpsertErr map[string]error
}

func NewFailingStore(inner store.Store) *FailingStore {
	return &FailingStore{Store: inner, CommitErr: map[string]error{}, UpsertErr: map[string]error{}}
}

func (s *FailingStore) CommitChange(ctx context.Context, cs store.ChangeSet) (*model.Snapshot, error) {
	s.mu.Lock()
	err := s.CommitErr[cs.Law.Name]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.CommitChange(ctx, cs)
}

func (s *FailingStore) UpsertTrackedLaw(ctx context.Context, law model.TrackedLaw) error {
	s.mu.Lock()
	err := s.UpsertErr[law.Name]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.UpsertTrackedLaw(ctx, law)
}
