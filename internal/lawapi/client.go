// Package lawapi talks to the national statute information service: name
// search (lawSearch.do) and full detail by sequence id (lawService.do).
package lawapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/webclient"
)

// DefaultBaseURL is the public DRF endpoint.
const DefaultBaseURL = "http://www.law.go.kr/DRF"

const defaultDisplay = 5

var (
	// ErrStatus is returned when the service answers with a non-200 status.
	ErrStatus = errors.New("lawapi: unexpected status")
	// ErrAPI is returned when the service answers with an error page
	// instead of XML, e.g. for an unregistered key.
	ErrAPI = errors.New("lawapi: service error")
	// ErrEmptySequence is returned by FetchDetail for a blank sequence id.
	ErrEmptySequence = errors.New("lawapi: empty sequence id")
)

// Config configures the client.
type Config struct {
	// BaseURLs are tried in order; the first one that answers is preferred
	// for later calls.
	BaseURLs []string
	// APIKey is sent as the OC parameter.
	APIKey string
	// Display caps the number of search hits requested.
	Display int
}

// Client implements the search and detail operations of the tracker.
type Client struct {
	wc     webclient.WebClient
	cfg    Config
	logger logging.Logger

	mu        sync.Mutex
	preferred int
}

func New(wc webclient.WebClient, cfg Config, logger logging.Logger) (*Client, error) {
	if wc == nil {
		return nil, errors.New("lawapi: nil webclient provided")
	}
	if logger == nil {
		return nil, errors.New("lawapi: nil logger provided")
	}
	bases := make([]string, 0, len(cfg.BaseURLs))
	for _, b := range cfg.BaseURLs {
		if b = strings.TrimRight(strings.TrimSpace(b), "/"); b != "" {
			bases = append(bases, b)
		}
	}
	if len(bases) == 0 {
		bases = []string{DefaultBaseURL}
	}
	cfg.BaseURLs = bases
	if cfg.Display <= 0 {
		cfg.Display = defaultDisplay
	}
	return &Client{
		wc:     wc,
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "lawapi"}),
	}, nil
}

var tracer = otel.Tracer("github.com/raysh454/lawtrack/internal/lawapi")

// Search looks statutes up by name. No hits is an empty slice and a nil error.
func (c *Client) Search(ctx context.Context, name string) ([]model.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "lawapi.Search")
	defer span.End()
	span.SetAttributes(attribute.String("law.query", name))

	q := url.Values{}
	q.Set("target", "law")
	q.Set("query", name)
	q.Set("display", strconv.Itoa(c.cfg.Display))
	q.Set("type", "XML")
	q.Set("OC", c.cfg.APIKey)

	body, err := c.get(ctx, "lawSearch.do", q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("search %q: %w", name, err)
	}

	var res searchXML
	if err := decodeXML(body, &res); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search %q: %w", name, err)
	}
	out := res.results()
	span.SetAttributes(attribute.Int("law.hits", len(out)))
	c.logger.Debug("search done",
		logging.Field{Key: "query", Value: name},
		logging.Field{Key: "hits", Value: len(out)})
	return out, nil
}

// FetchDetail retrieves the full document of one statute version.
func (c *Client) FetchDetail(ctx context.Context, sequenceID string) (*model.Document, error) {
	sequenceID = strings.TrimSpace(sequenceID)
	if sequenceID == "" {
		return nil, ErrEmptySequence
	}
	ctx, span := tracer.Start(ctx, "lawapi.FetchDetail")
	defer span.End()
	span.SetAttributes(attribute.String("law.sequence_id", sequenceID))

	q := url.Values{}
	q.Set("target", "law")
	q.Set("MST", sequenceID)
	q.Set("type", "XML")
	q.Set("OC", c.cfg.APIKey)

	body, err := c.get(ctx, "lawService.do", q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("detail %s: %w", sequenceID, err)
	}

	var res detailXML
	if err := decodeXML(body, &res); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("detail %s: %w", sequenceID, err)
	}
	doc := res.document()
	span.SetAttributes(attribute.Int("law.articles", len(doc.Articles)))
	return doc, nil
}

// get tries each base URL starting from the preferred one. Transport errors
// and 5xx answers move on to the next base; anything else is final.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	c.mu.Lock()
	start := c.preferred
	c.mu.Unlock()

	var lastErr error
	n := len(c.cfg.BaseURLs)
	for k := 0; k < n; k++ {
		idx := (start + k) % n
		base := c.cfg.BaseURLs[idx]
		resp, err := c.wc.Get(ctx, base+"/"+endpoint+"?"+q.Encode())
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("base url unreachable",
				logging.Field{Key: "base", Value: base},
				logging.Field{Key: "error", Value: err})
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
		}
		if msg, ok := errorPage(resp.Body); ok {
			return nil, fmt.Errorf("%w: %s", ErrAPI, msg)
		}

		if idx != start {
			c.mu.Lock()
			c.preferred = idx
			c.mu.Unlock()
			c.logger.Info("switched base url", logging.Field{Key: "base", Value: base})
		}
		return resp.Body, nil
	}
	return nil, lastErr
}

// errorPage reports whether body is an HTML page rather than XML and, if so,
// the human-readable message it carries.
func errorPage(body []byte) (string, bool) {
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	if !bytes.HasPrefix(head, []byte("<!doctype html")) && !bytes.Contains(head, []byte("<html")) {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "unreadable error page", true
	}
	msg := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if msg == "" {
		msg = strings.TrimSpace(doc.Find("title").Text())
	}
	if msg == "" {
		msg = "empty error page"
	}
	return msg, true
}
