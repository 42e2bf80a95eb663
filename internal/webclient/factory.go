package webclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raysh454/lawtrack/internal/logging"
)

// BackendNetHTTP is the only transport. Statute XML needs no JavaScript, so
// headless Chrome is kept for PDF printing alone.
const BackendNetHTTP = "nethttp"

var ErrUnknownBackend = errors.New("webclient: unknown backend")

// NewWebClient builds the configured client with defaults filled in.
func NewWebClient(cfg Config, logger logging.Logger) (WebClient, error) {
	if b := strings.ToLower(strings.TrimSpace(cfg.Backend)); b != "" && b != BackendNetHTTP {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, cfg.Backend)
	}
	return NewNetHTTPClient(cfg, logger, nil)
}
