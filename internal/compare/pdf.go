package compare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/lawtrack/internal/logging"
)

// PDFConfig controls the headless browser used for PDF export.
type PDFConfig struct {
	// ExecPath overrides the Chrome/Chromium binary; empty uses the default lookup.
	ExecPath string
	Timeout  time.Duration
	// Landscape prints the two-column table sideways.
	Landscape bool
}

// PDFPrinter prints rendered HTML artifacts to PDF with headless Chrome.
type PDFPrinter struct {
	cfg         PDFConfig
	logger      logging.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewPDFPrinter prepares a browser allocator. The browser itself starts on
// the first Print call.
func NewPDFPrinter(cfg PDFConfig, logger logging.Logger) (*PDFPrinter, error) {
	if logger == nil {
		return nil, errors.New("compare: nil logger provided")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &PDFPrinter{
		cfg:         cfg,
		logger:      logger.With(logging.Field{Key: "component", Value: "pdf"}),
		allocCtx:    allocCtx,
		allocCancel: cancel,
	}, nil
}

// Print loads html into a blank tab and returns the printed PDF bytes.
func (p *PDFPrinter) Print(ctx context.Context, html []byte) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(p.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, p.cfg.Timeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(p.cfg.Landscape).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("print to pdf: %w", err)
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		p.logger.Warn("pdf export failed", logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("chromedp run: %w", err)
	}
	p.logger.Debug("pdf exported", logging.Field{Key: "bytes", Value: len(pdf)})
	return pdf, nil
}

// PrintToFile prints html and writes the PDF atomically to target.
func (p *PDFPrinter) PrintToFile(ctx context.Context, html []byte, target string) (string, error) {
	pdf, err := p.Print(ctx, html)
	if err != nil {
		return "", err
	}
	return writeArtifact(target, pdf)
}

// Close shuts the browser down.
func (p *PDFPrinter) Close() error {
	p.allocCancel()
	return nil
}
