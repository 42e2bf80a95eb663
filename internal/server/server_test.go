package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raysh454/lawtrack/internal/app"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/server"
	"github.com/raysh454/lawtrack/internal/store"
	"github.com/raysh454/lawtrack/internal/testutil"
)

func lawDoc(name, pubDate, body string) *model.Document {
	return &model.Document{
		BasicInfo: &model.BasicInfo{Name: name, PubDate: pubDate, EffectiveDate: pubDate},
		Articles:  []model.Article{{Number: "1", Title: "목적", Content: body}},
	}
}

func newTestServer(t *testing.T) (*server.Server, *testutil.FakeLawSource) {
	t.Helper()

	src := testutil.NewFakeLawSource()
	cfg := app.DefaultConfig()
	cfg.Storage.Ephemeral = true
	logger := &testutil.DummyLogger{}

	comps, err := app.NewComponents(cfg, logger, app.WithLawSource(src), app.WithStore(store.NewMemory()))
	if err != nil {
		t.Fatalf("NewComponents: %v", err)
	}
	orch, err := app.NewOrchestrator(cfg, comps, logger)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	s, err := server.NewServer(server.Config{ListenAddr: ":0"}, orch, logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		comps.Close()
	})
	return s, src
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

func addLaw(t *testing.T, s *server.Server, src *testutil.FakeLawSource, name, pubDate string) {
	t.Helper()
	src.Publish(name, "1001-"+name, pubDate, lawDoc(name, pubDate, "공공성을 앙양함"))
	rec := doJSON(t, s, "POST", "/api/add-law", `{"법령명":"`+name+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add-law %s: expected 201, got %d: %s", name, rec.Code, rec.Body.String())
	}
}

// amend publishes a new version of name and runs one cycle synchronously.
func amend(t *testing.T, s *server.Server, src *testutil.FakeLawSource, name, pubDate string) {
	t.Helper()
	src.Publish(name, "2002-"+name, pubDate, lawDoc(name, pubDate, "공공성과 투명성을 강화함"))
	if _, err := s.Orchestrator().CheckUpdates(context.Background()); err != nil {
		t.Fatalf("CheckUpdates: %v", err)
	}
}

func waitJob(t *testing.T, s *server.Server, id string) app.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := doJSON(t, s, "GET", "/api/jobs/"+id, "")
		var job app.Job
		decodeJSON(t, rec, &job)
		switch job.Status {
		case app.JobDone, app.JobFailed, app.JobCanceled:
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return app.Job{}
}

// ─── Construction ──────────────────────────────────────────────────────

func TestNewServer_RequiresDeps(t *testing.T) {
	t.Parallel()
	if _, err := server.NewServer(server.Config{}, nil, &testutil.DummyLogger{}); err == nil {
		t.Error("expected error for nil orchestrator")
	}
	s, _ := newTestServer(t)
	if _, err := server.NewServer(server.Config{}, s.Orchestrator(), nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestServer_HTTPServerAddr(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	if got := s.HTTPServer().Addr; got != ":0" {
		t.Errorf("expected addr :0, got %q", got)
	}
}

// ─── CORS ──────────────────────────────────────────────────────────────

func TestServer_CORS_HeaderPresent(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/laws", "")

	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin *, got %q", origin)
	}
}

func TestServer_CORS_Preflight(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "OPTIONS", "/api/add-law", "")

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "POST" {
		t.Errorf("expected allow methods POST, got %q", got)
	}
}

// ─── Tracked laws ──────────────────────────────────────────────────────

func TestServer_ListLaws_Empty(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/laws", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp server.TrackedLawsResponse
	decodeJSON(t, rec, &resp)
	if resp.Total != 0 || len(resp.Laws) != 0 {
		t.Errorf("expected empty list, got %+v", resp)
	}
}

func TestServer_AddLaw_ThenList(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)

	addLaw(t, s, src, "사립학교법", "20250101")

	rec := doJSON(t, s, "GET", "/api/laws", "")
	var resp server.TrackedLawsResponse
	decodeJSON(t, rec, &resp)
	if resp.Total != 1 {
		t.Fatalf("expected 1 law, got %d", resp.Total)
	}
	if resp.Laws[0].Name != "사립학교법" || resp.Laws[0].LastPubDate != "20250101" {
		t.Errorf("unexpected law %+v", resp.Laws[0])
	}
}

func TestServer_AddLaw_Errors(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)
	addLaw(t, s, src, "사립학교법", "20250101")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{invalid}`, http.StatusBadRequest},
		{"missing name", `{"법령명":"  "}`, http.StatusBadRequest},
		{"unknown law", `{"법령명":"없는법"}`, http.StatusNotFound},
		{"duplicate", `{"법령명":"사립학교법"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		rec := doJSON(t, s, "POST", "/api/add-law", tt.body)
		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d: %s", tt.name, tt.want, rec.Code, rec.Body.String())
		}
	}
}

func TestServer_RemoveLaw(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)
	addLaw(t, s, src, "사립학교법", "20250101")

	rec := doJSON(t, s, "POST", "/api/remove-law", `{"법령명":"사립학교법"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var msg server.MessageResponse
	decodeJSON(t, rec, &msg)
	if !msg.Success {
		t.Errorf("expected success, got %+v", msg)
	}

	rec = doJSON(t, s, "POST", "/api/remove-law", `{"법령명":"사립학교법"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for untracked law, got %d", rec.Code)
	}
}

func TestServer_LawDetail(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)
	addLaw(t, s, src, "사립학교법", "20250101")

	rec := doJSON(t, s, "GET", "/api/law-detail?name="+url.QueryEscape("사립학교법"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var law model.TrackedLaw
	decodeJSON(t, rec, &law)
	if law.SequenceID != "1001-사립학교법" {
		t.Errorf("unexpected sequence id %q", law.SequenceID)
	}

	if rec := doJSON(t, s, "GET", "/api/law-detail", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without name, got %d", rec.Code)
	}
	if rec := doJSON(t, s, "GET", "/api/law-detail?name=x", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for untracked, got %d", rec.Code)
	}
}

// ─── Cycle results ─────────────────────────────────────────────────────

func TestServer_UpdatesHistoryAndStatistics(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)
	addLaw(t, s, src, "사립학교법", "20250101")
	addLaw(t, s, src, "교육기본법", "20250101")
	amend(t, s, src, "사립학교법", "20250601")

	rec := doJSON(t, s, "GET", "/api/law-updates", "")
	var updates []server.LawUpdateSummary
	decodeJSON(t, rec, &updates)
	if len(updates) != 1 || updates[0].Name != "사립학교법" || updates[0].ChangeCount != 1 {
		t.Fatalf("unexpected updates %+v", updates)
	}

	rec = doJSON(t, s, "GET", "/api/history?limit=10", "")
	var history []model.UpdateRecord
	decodeJSON(t, rec, &history)
	if len(history) != 1 {
		t.Fatalf("expected 1 record, got %d", len(history))
	}
	if history[0].PrevPubDate != "20250101" || history[0].CurPubDate != "20250601" {
		t.Errorf("unexpected record %+v", history[0])
	}

	rec = doJSON(t, s, "GET", "/api/statistics", "")
	var stats server.StatisticsResponse
	decodeJSON(t, rec, &stats)
	if stats.TotalLaws != 2 || stats.UpdatedLaws != 1 || stats.TotalChanges != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Categories == 0 {
		t.Error("expected at least one category")
	}
	if stats.LastCheck == nil {
		t.Error("expected last check to be set")
	}
}

func TestServer_Statistics_Empty(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/statistics", "")
	var stats server.StatisticsResponse
	decodeJSON(t, rec, &stats)
	if stats.TotalLaws != 0 || stats.Categories != 0 || stats.LastCheck != nil {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// ─── Artifacts ─────────────────────────────────────────────────────────

func TestServer_LawDiff(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)
	addLaw(t, s, src, "사립학교법", "20250101")
	amend(t, s, src, "사립학교법", "20250601")

	rec := doJSON(t, s, "GET", "/api/diffs", "")
	var infos []store.ArtifactInfo
	decodeJSON(t, rec, &infos)
	if len(infos) != 2 {
		t.Fatalf("expected html and text artifacts, got %+v", infos)
	}

	rec = doJSON(t, s, "GET", "/api/law-diff?filename="+url.QueryEscape("사립학교법_20250601_diff.html"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "투명성") {
		t.Error("expected artifact to contain the amended text")
	}

	rec = doJSON(t, s, "GET", "/api/law-diff?filename="+url.QueryEscape("사립학교법_20250601_diff.txt"), "")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text content type, got %q", ct)
	}
}

func TestServer_LawDiff_RejectsBadNames(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	for _, name := range []string{"", "..%2Fsecret.html", "a%2Fb.html", "a%5Cb.html", "..html"} {
		rec := doJSON(t, s, "GET", "/api/law-diff?filename="+name, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("filename %q: expected 400, got %d", name, rec.Code)
		}
	}
	rec := doJSON(t, s, "GET", "/api/law-diff?filename=missing_diff.html", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing artifact, got %d", rec.Code)
	}
	rec = doJSON(t, s, "GET", "/api/law-diff/pdf?filename=x_diff.txt", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-html pdf source, got %d", rec.Code)
	}
}

// ─── Relationships ─────────────────────────────────────────────────────

func TestServer_Hierarchy(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)
	addLaw(t, s, src, "교육기본법", "20250101")
	addLaw(t, s, src, "대한민국헌법", "20250101")

	rec := doJSON(t, s, "GET", "/api/law-hierarchy", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var graph struct {
		Nodes []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"nodes"`
		Links []struct {
			Source string `json:"source"`
			Target string `json:"target"`
		} `json:"links"`
	}
	decodeJSON(t, rec, &graph)

	tracked := 0
	for _, n := range graph.Nodes {
		if n.Status == "tracked" {
			tracked++
		}
	}
	if tracked != 2 {
		t.Errorf("expected 2 tracked nodes, got %d of %d", tracked, len(graph.Nodes))
	}
	found := false
	for _, l := range graph.Links {
		if l.Source == "교육기본법" && l.Target == "대한민국헌법" {
			found = true
		}
	}
	if !found {
		t.Error("expected a link between 교육기본법 and 대한민국헌법")
	}
}

func TestServer_LawInfo(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/law-info?name="+url.QueryEscape("사립학교법"), "")
	var info map[string]any
	decodeJSON(t, rec, &info)
	if info["known"] != true || info["category"] == "" {
		t.Errorf("unexpected info %+v", info)
	}

	if rec := doJSON(t, s, "GET", "/api/law-info", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without name, got %d", rec.Code)
	}
}

// ─── Jobs ──────────────────────────────────────────────────────────────

func TestServer_CheckUpdatesJob(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)
	addLaw(t, s, src, "사립학교법", "20250101")
	src.Publish("사립학교법", "2002", "20250601", lawDoc("사립학교법", "20250601", "개정"))

	rec := doJSON(t, s, "POST", "/api/check-updates", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var job app.Job
	decodeJSON(t, rec, &job)
	if job.ID == "" || job.Type != app.JobTypeCheck {
		t.Fatalf("unexpected job %+v", job)
	}

	final := waitJob(t, s, job.ID)
	if final.Status != app.JobDone {
		t.Fatalf("expected done, got %s (%s)", final.Status, final.Error)
	}
	if final.Report == nil || final.Report.Succeeded != 1 || len(final.Report.Updates) != 1 {
		t.Errorf("unexpected report %+v", final.Report)
	}

	rec = doJSON(t, s, "GET", "/api/jobs", "")
	var jobs []app.Job
	decodeJSON(t, rec, &jobs)
	if len(jobs) != 1 {
		t.Errorf("expected 1 job, got %d", len(jobs))
	}
}

func TestServer_CheckUpdatesJob_Conflict(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)
	addLaw(t, s, src, "사립학교법", "20250101")
	src.Gate = make(chan struct{})

	rec := doJSON(t, s, "POST", "/api/check-updates", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var job app.Job
	decodeJSON(t, rec, &job)

	rec = doJSON(t, s, "POST", "/api/check-updates", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while a check runs, got %d", rec.Code)
	}

	rec = doJSON(t, s, "DELETE", "/api/jobs/"+job.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if final := waitJob(t, s, job.ID); final.Status != app.JobCanceled {
		t.Errorf("expected canceled, got %s", final.Status)
	}
}

func TestServer_BulkAddJob(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)
	src.Publish("사립학교법", "1", "20250101", lawDoc("사립학교법", "20250101", "a"))
	src.Publish("교육기본법", "2", "20250101", lawDoc("교육기본법", "20250101", "b"))

	rec := doJSON(t, s, "POST", "/api/bulk-add", `{"법령목록":["사립학교법","# comment","교육기본법","없는법",""]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var job app.Job
	decodeJSON(t, rec, &job)

	final := waitJob(t, s, job.ID)
	if len(final.BulkResults) != 3 {
		t.Fatalf("expected 3 results, got %+v", final.BulkResults)
	}

	rec = doJSON(t, s, "GET", "/api/laws", "")
	var resp server.TrackedLawsResponse
	decodeJSON(t, rec, &resp)
	if resp.Total != 2 {
		t.Errorf("expected 2 tracked laws, got %d", resp.Total)
	}
}

func TestServer_BulkAddJob_Empty(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	if rec := doJSON(t, s, "POST", "/api/bulk-add", `{"법령목록":[]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, s, "POST", "/api/bulk-add", `nope`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_GetJob_NotFound(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	if rec := doJSON(t, s, "GET", "/api/jobs/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────────

func TestServer_CheckWS_StreamsUntilDone(t *testing.T) {
	t.Parallel()
	s, src := newTestServer(t)
	addLaw(t, s, src, "사립학교법", "20250101")

	ts := httptest.NewServer(s)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/check-updates", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first app.Job
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read job: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected job id in first frame")
	}

	sawProgress, sawResult := false, false
	for !sawResult {
		var ev app.JobEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		switch ev.Type {
		case app.JobEventProgress:
			sawProgress = ev.Law == "사립학교법" && ev.Total == 1
		case app.JobEventResult:
			sawResult = true
		}
	}
	if !sawProgress {
		t.Error("expected a progress event for the tracked law")
	}
}

// ─── Swagger ───────────────────────────────────────────────────────────

func TestServer_SwaggerDoc(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/swagger/doc.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]any
	decodeJSON(t, rec, &doc)
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/api/check-updates"]; !ok {
		t.Error("expected /api/check-updates in swagger paths")
	}
}
