package compare_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/lawtrack/internal/compare"
	"github.com/raysh454/lawtrack/internal/logging"
)

func findChrome(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no chrome binary available")
	return ""
}

func TestNewPDFPrinter_NilLogger(t *testing.T) {
	t.Parallel()
	_, err := compare.NewPDFPrinter(compare.PDFConfig{}, nil)
	assert.Error(t, err)
}

func TestPDFPrinter_PrintToFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	exe := findChrome(t)

	p, err := compare.NewPDFPrinter(compare.PDFConfig{ExecPath: exe, Timeout: 30 * time.Second}, logging.Nop())
	require.NoError(t, err)
	defer p.Close()

	html, err := compare.SideBySideHTML(amendmentRequest())
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "law.pdf")
	got, err := p.PrintToFile(context.Background(), []byte(html), target)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
