package lawapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/raysh454/lawtrack/internal/lawapi"
	"github.com/raysh454/lawtrack/internal/lawtext"
	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/testutil"
	"github.com/raysh454/lawtrack/internal/webclient"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func newClient(t *testing.T, cfg lawapi.Config) *lawapi.Client {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), nil)
	require.NoError(t, err)
	c, err := lawapi.New(wc, cfg, logging.Nop())
	require.NoError(t, err)
	return c
}

// ─── Search ────────────────────────────────────────────────────────────

func TestSearch_ParsesResultsAndSendsParams(t *testing.T) {
	t.Parallel()
	var query map[string][]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lawSearch.do", r.URL.Path)
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(fixture(t, "search.xml"))
	}))
	defer ts.Close()

	c := newClient(t, lawapi.Config{BaseURLs: []string{ts.URL + "/"}, APIKey: "key123"})
	res, err := c.Search(context.Background(), "사립학교법")
	require.NoError(t, err)

	assert.Equal(t, []string{"law"}, query["target"])
	assert.Equal(t, []string{"사립학교법"}, query["query"])
	assert.Equal(t, []string{"5"}, query["display"])
	assert.Equal(t, []string{"XML"}, query["type"])
	assert.Equal(t, []string{"key123"}, query["OC"])

	require.Len(t, res, 2)
	assert.Equal(t, "270001", res[0].SequenceID)
	assert.Equal(t, "000153", res[0].LawID)
	assert.Equal(t, "사립학교법", res[0].Name)
	assert.Equal(t, "20250920", res[0].PubDate)
	assert.Equal(t, "20260301", res[0].EffectiveDate)
	assert.Equal(t, "사립학교법 시행령", res[1].Name)
}

func TestSearch_NoHitsIsEmpty(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(fixture(t, "search_empty.xml"))
	}))
	defer ts.Close()

	c := newClient(t, lawapi.Config{BaseURLs: []string{ts.URL}})
	res, err := c.Search(context.Background(), "없는법")
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestSearch_DeclaredCharsetIsHonored(t *testing.T) {
	t.Parallel()
	body, err := korean.EUCKR.NewEncoder().String(
		`<?xml version="1.0" encoding="EUC-KR"?><LawSearch><law><법령일련번호>1</법령일련번호><법령명한글>민법</법령명한글></law></LawSearch>`)
	require.NoError(t, err)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	c := newClient(t, lawapi.Config{BaseURLs: []string{ts.URL}})
	res, err := c.Search(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "1", res[0].SequenceID)
	assert.Equal(t, "민법", res[0].Name)
}

// ─── FetchDetail ───────────────────────────────────────────────────────

func TestFetchDetail_NormalizesDocument(t *testing.T) {
	t.Parallel()
	var mst string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lawService.do", r.URL.Path)
		mst = r.URL.Query().Get("MST")
		_, _ = w.Write(fixture(t, "detail.xml"))
	}))
	defer ts.Close()

	c := newClient(t, lawapi.Config{BaseURLs: []string{ts.URL}})
	doc, err := c.FetchDetail(context.Background(), " 270001 ")
	require.NoError(t, err)
	assert.Equal(t, "270001", mst)

	require.NotNil(t, doc.BasicInfo)
	assert.Equal(t, "사립학교법", doc.BasicInfo.Name)
	assert.Equal(t, "교육부", doc.BasicInfo.Ministry)
	assert.Equal(t, "일부개정", doc.BasicInfo.RevisionType)

	require.Len(t, doc.Articles, 2)
	assert.Equal(t, "제1조(목적) 이 법은 사립학교의 공공성을 높임을 목적으로 한다.", doc.Articles[0].Content)
	require.Len(t, doc.Articles[1].Paragraphs, 1)
	require.Len(t, doc.Articles[1].Paragraphs[0].Clauses, 2)
	assert.Equal(t, "1. 사립학교 & 설치자", doc.Articles[1].Paragraphs[0].Clauses[0].Content)

	lines := lawtext.Flatten(doc)
	assert.Equal(t, []string{
		"법령명: 사립학교법",
		"공포일자: 20250920",
		"시행일자: 20260301",
		"",
		"1 목적 제1조(목적) 이 법은 사립학교의 공공성을 높임을 목적으로 한다.",
		"2 정의 제2조(정의)",
		`  ① 이 법에서 "학교법인"이란 다음 각 호를 말한다.`,
		"    1. 사립학교 & 설치자",
		"    2. 그 밖의 법인",
	}, lines)
}

func TestFetchDetail_EmptySequence(t *testing.T) {
	t.Parallel()
	c := newClient(t, lawapi.Config{})
	_, err := c.FetchDetail(context.Background(), "  ")
	assert.ErrorIs(t, err, lawapi.ErrEmptySequence)
}

// ─── Errors ────────────────────────────────────────────────────────────

func TestGet_Non200IsErrStatus(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := newClient(t, lawapi.Config{BaseURLs: []string{ts.URL}})
	_, err := c.Search(context.Background(), "x")
	assert.ErrorIs(t, err, lawapi.ErrStatus)
}

func TestGet_HTMLErrorPageIsErrAPI(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(fixture(t, "error.html"))
	}))
	defer ts.Close()

	c := newClient(t, lawapi.Config{BaseURLs: []string{ts.URL}})
	_, err := c.FetchDetail(context.Background(), "1")
	require.ErrorIs(t, err, lawapi.ErrAPI)
	assert.Contains(t, err.Error(), "사용자 정보 검증에 실패하였습니다.")
}

func TestGet_MalformedXML(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<LawSearch><law>"))
	}))
	defer ts.Close()

	c := newClient(t, lawapi.Config{BaseURLs: []string{ts.URL}})
	_, err := c.Search(context.Background(), "x")
	assert.Error(t, err)
}

// ─── Base URL fallback ─────────────────────────────────────────────────

func TestGet_FallsBackAndRemembersBase(t *testing.T) {
	t.Parallel()
	var downHits, upHits atomic.Int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upHits.Add(1)
		_, _ = w.Write(fixture(t, "search_empty.xml"))
	}))
	defer up.Close()

	c := newClient(t, lawapi.Config{BaseURLs: []string{down.URL, up.URL}})
	for i := 0; i < 3; i++ {
		_, err := c.Search(context.Background(), "x")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), downHits.Load())
	assert.Equal(t, int32(3), upHits.Load())
}

func TestGet_AllBasesDown(t *testing.T) {
	t.Parallel()
	c := newClient(t, lawapi.Config{BaseURLs: []string{"http://127.0.0.1:1", "http://127.0.0.1:2"}})
	_, err := c.Search(context.Background(), "x")
	assert.Error(t, err)
}

func TestGet_FailoverThroughWebClient(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{
		Bodies:   map[string][]byte{"lawSearch.do": fixture(t, "search.xml")},
		FailURLs: map[string]bool{},
	}
	c, err := lawapi.New(wc, lawapi.Config{BaseURLs: []string{"http://primary", "http://backup"}, APIKey: "k"}, logging.Nop())
	require.NoError(t, err)
	wc.FailURLs["http://primary/lawSearch.do?OC=k&display=5&query=x&target=law&type=XML"] = true

	res, err := c.Search(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, res, 2)

	_, err = c.Search(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, wc.Requests, 3)
	assert.Contains(t, wc.Requests[0].URL, "http://primary/")
	assert.Contains(t, wc.Requests[1].URL, "http://backup/")
	assert.Contains(t, wc.Requests[2].URL, "http://backup/")
}

func TestGet_CancelStopsFailover(t *testing.T) {
	t.Parallel()
	arrived := make(chan struct{})
	hung := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
	}))
	defer hung.Close()
	var backupHits atomic.Int32
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupHits.Add(1)
		_, _ = w.Write(fixture(t, "search.xml"))
	}))
	defer backup.Close()

	c := newClient(t, lawapi.Config{BaseURLs: []string{hung.URL, backup.URL}})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-arrived
		cancel()
	}()
	_, err := c.Search(ctx, "사립학교법")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, backupHits.Load())
}

func TestNew_RequiresDeps(t *testing.T) {
	t.Parallel()
	_, err := lawapi.New(nil, lawapi.Config{}, logging.Nop())
	assert.Error(t, err)
	wc, _ := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), nil)
	_, err = lawapi.New(wc, lawapi.Config{}, nil)
	assert.Error(t, err)
}
