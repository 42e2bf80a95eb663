package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/raysh454/lawtrack/internal/compare"
	"github.com/raysh454/lawtrack/internal/hierarchy"
	"github.com/raysh454/lawtrack/internal/lawapi"
	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/notify"
	"github.com/raysh454/lawtrack/internal/store"
	"github.com/raysh454/lawtrack/internal/tracker"
	"github.com/raysh454/lawtrack/internal/webclient"
)

// Components are the long-lived services shared by the CLI, the HTTP server
// and the MCP server.
type Components struct {
	WebClient webclient.WebClient
	Source    tracker.LawSource
	Store     store.Store
	Notifier  *notify.Dispatcher
	Tracker   *tracker.Tracker
	Hierarchy *hierarchy.Hierarchy

	pdfCfg  compare.PDFConfig
	logger  logging.Logger
	pdfOnce sync.Once
	pdf     *compare.PDFPrinter
	pdfErr  error
}

// ComponentOption replaces a component, mostly for tests.
type ComponentOption func(*componentOverrides)

type componentOverrides struct {
	source tracker.LawSource
	store  store.Store
}

// WithLawSource bypasses the law.go.kr client.
func WithLawSource(src tracker.LawSource) ComponentOption {
	return func(o *componentOverrides) { o.source = src }
}

// WithStore uses st instead of opening one from cfg.Storage.
func WithStore(st store.Store) ComponentOption {
	return func(o *componentOverrides) { o.store = st }
}

// NewComponents builds webclient → lawapi → store → notify → tracker.
func NewComponents(cfg *Config, logger logging.Logger, opts ...ComponentOption) (*Components, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		return nil, errors.New("app: nil logger provided")
	}
	var o componentOverrides
	for _, opt := range opts {
		opt(&o)
	}

	wc, err := webclient.NewWebClient(webclient.Config{
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("new webclient: %w", err)
	}

	src := o.source
	if src == nil {
		client, err := lawapi.New(wc, lawapi.Config{BaseURLs: cfg.API.BaseURLs, APIKey: cfg.API.Key}, logger)
		if err != nil {
			_ = wc.Close()
			return nil, fmt.Errorf("new law api client: %w", err)
		}
		src = client
	}

	st := o.store
	if st == nil {
		if cfg.Storage.Ephemeral {
			st = store.NewMemory()
		} else {
			sq, err := store.OpenSQLite(cfg.Storage.Root, logger)
			if err != nil {
				_ = wc.Close()
				return nil, fmt.Errorf("open store: %w", err)
			}
			st = sq
		}
	}

	n, err := notify.New(cfg.Notifications, wc, logger)
	if err != nil {
		_ = st.Close()
		_ = wc.Close()
		return nil, fmt.Errorf("new notifier: %w", err)
	}

	tr, err := tracker.New(src, st, n, tracker.Config{
		MaxConcurrency: cfg.Tracking.MaxConcurrency,
		ArtifactDir:    cfg.Tracking.OutputDir,
	}, logger)
	if err != nil {
		_ = st.Close()
		_ = wc.Close()
		return nil, fmt.Errorf("new tracker: %w", err)
	}

	return &Components{
		WebClient: wc,
		Source:    src,
		Store:     st,
		Notifier:  n,
		Tracker:   tr,
		Hierarchy: hierarchy.Default(),
		pdfCfg: compare.PDFConfig{
			ExecPath:  cfg.PDF.ChromePath,
			Timeout:   cfg.PDF.Timeout,
			Landscape: true,
		},
		logger: logger,
	}, nil
}

// PDF returns the shared PDF printer, starting it on first use.
func (c *Components) PDF() (*compare.PDFPrinter, error) {
	c.pdfOnce.Do(func() {
		c.pdf, c.pdfErr = compare.NewPDFPrinter(c.pdfCfg, c.logger)
	})
	return c.pdf, c.pdfErr
}

// Close releases every component. The first error is returned.
func (c *Components) Close() error {
	var firstErr error
	if c.pdf != nil {
		if err := c.pdf.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close pdf printer: %w", err)
		}
	}
	if err := c.WebClient.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close webclient: %w", err)
	}
	if err := c.Store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}
	return firstErr
}
