package webclient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/webclient"
)

func newClient(t *testing.T, cfg webclient.Config) *webclient.NetHTTPClient {
	t.Helper()
	c, err := webclient.NewNetHTTPClient(cfg, logging.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// ─── Construction ──────────────────────────────────────────────────────

func TestNewWebClient_Backends(t *testing.T) {
	t.Parallel()
	for _, backend := range []string{"", "nethttp", " NetHTTP "} {
		wc, err := webclient.NewWebClient(webclient.Config{Backend: backend}, logging.Nop())
		require.NoError(t, err, "backend %q", backend)
		assert.IsType(t, &webclient.NetHTTPClient{}, wc)
		_ = wc.Close()
	}

	_, err := webclient.NewWebClient(webclient.Config{Backend: "chromedp"}, logging.Nop())
	assert.ErrorIs(t, err, webclient.ErrUnknownBackend)
}

func TestNewNetHTTPClient_Defaults(t *testing.T) {
	t.Parallel()
	c := newClient(t, webclient.Config{})
	assert.Equal(t, webclient.DefaultTimeout, c.HTTPClient().Timeout)

	c = newClient(t, webclient.Config{Timeout: 3 * time.Second})
	assert.Equal(t, 3*time.Second, c.HTTPClient().Timeout)

	_, err := webclient.NewNetHTTPClient(webclient.Config{}, nil, nil)
	assert.Error(t, err)
}

// ─── Statute service requests ──────────────────────────────────────────

func TestGet_SendsConfiguredUserAgent(t *testing.T) {
	t.Parallel()
	agents := make(chan string, 2)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = io.WriteString(w, "<LawSearch/>")
	}))
	defer ts.Close()

	_, err := newClient(t, webclient.Config{UserAgent: "lawtrack/0.1"}).Get(context.Background(), ts.URL+"/lawSearch.do")
	require.NoError(t, err)
	assert.Equal(t, "lawtrack/0.1", <-agents)

	_, err = newClient(t, webclient.Config{}).Get(context.Background(), ts.URL+"/lawSearch.do")
	require.NoError(t, err)
	assert.Equal(t, webclient.DefaultUserAgent, <-agents)
}

func TestGet_KeepsEUCKRBodyBytes(t *testing.T) {
	t.Parallel()
	var article strings.Builder
	article.WriteString(`<?xml version="1.0" encoding="EUC-KR"?><법령><조문>`)
	for i := 0; i < 20000; i++ {
		article.WriteString("<조문단위><조문내용>사립학교의 공공성을 앙양한다.</조문내용></조문단위>")
	}
	article.WriteString("</조문></법령>")
	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte(article.String()))
	require.NoError(t, err)
	require.Greater(t, len(encoded), 1<<20)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml;charset=EUC-KR")
		_, _ = w.Write(encoded)
	}))
	defer ts.Close()

	resp, err := newClient(t, webclient.Config{}).Get(context.Background(), ts.URL+"/lawService.do")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.Equal(encoded, resp.Body), "body must be passed through untranscoded")
	assert.Equal(t, "text/xml;charset=EUC-KR", resp.Headers.Get("Content-Type"))
}

func TestGet_BodyOverCap(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 4096))
	}))
	defer ts.Close()

	_, err := newClient(t, webclient.Config{MaxBodyBytes: 1024}).Get(context.Background(), ts.URL)
	assert.ErrorIs(t, err, webclient.ErrBodyTooLarge)

	resp, err := newClient(t, webclient.Config{MaxBodyBytes: 4096}).Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Len(t, resp.Body, 4096)
}

func TestGet_ServerErrorIsAResponse(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	resp, err := newClient(t, webclient.Config{}).Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "maintenance")
}

func TestGet_TimeoutFromConfig(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	start := time.Now()
	_, err := newClient(t, webclient.Config{Timeout: 50 * time.Millisecond}).Get(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGet_ContextCanceledMidRequest(t *testing.T) {
	t.Parallel()
	arrived := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-arrived
		cancel()
	}()
	_, err := newClient(t, webclient.Config{}).Get(ctx, ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestGet_UnreachableHost(t *testing.T) {
	t.Parallel()
	_, err := newClient(t, webclient.Config{Timeout: time.Second}).Get(context.Background(), "http://127.0.0.1:1/lawSearch.do")
	assert.Error(t, err)
}

// ─── Notification requests ─────────────────────────────────────────────

func TestDo_PostsSignedWebhook(t *testing.T) {
	t.Parallel()
	type got struct {
		method, contentType, signature, agent string
		payload                               map[string]any
	}
	received := make(chan got, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g := got{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			signature:   r.Header.Get("X-Lawtrack-Signature"),
			agent:       r.UserAgent(),
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&g.payload))
		received <- g
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Lawtrack-Signature", "sha256=abc")
	headers.Set("User-Agent", "lawtrack-notify")
	resp, err := newClient(t, webclient.Config{}).Do(context.Background(), &webclient.Request{
		Method:  "post",
		URL:     ts.URL + "/hook",
		Headers: headers,
		Body:    []byte(`{"count":1,"laws":["사립학교법"]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	g := <-received
	assert.Equal(t, http.MethodPost, g.method)
	assert.Equal(t, "application/json", g.contentType)
	assert.Equal(t, "sha256=abc", g.signature)
	assert.Equal(t, "lawtrack-notify", g.agent, "explicit user agent wins")
	assert.Equal(t, []any{"사립학교법"}, g.payload["laws"])
}

func TestDo_NilRequest(t *testing.T) {
	t.Parallel()
	_, err := newClient(t, webclient.Config{}).Do(context.Background(), nil)
	assert.ErrorIs(t, err, webclient.ErrNilRequest)
}
