package compare

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/raysh454/lawtrack/internal/seqdiff"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

type sideBySideRow struct {
	Class string
	OldNo int
	NewNo int
	Old   template.HTML
	New   template.HTML
}

type sideBySidePage struct {
	Label       string
	GeneratedAt string
	OldHeading  string
	NewHeading  string
	Stats       seqdiff.Stats
	Percent     float64
	Rows        []sideBySideRow
}

// SideBySideHTML renders the two-column table as a self-contained HTML page.
// Row cells carry the row Kind as their CSS class.
func SideBySideHTML(req Request) (string, error) {
	table := BuildRequest(req)
	page := sideBySidePage{
		Label:       req.Label,
		GeneratedAt: req.generatedAt().Format("2006년 01월 02일 15:04:05"),
		OldHeading:  oldSideLabel,
		NewHeading:  newSideLabel,
		Stats:       table.Stats,
		Percent:     table.Similarity * 100,
		Rows:        make([]sideBySideRow, 0, len(table.Rows)),
	}
	for _, r := range table.Rows {
		page.Rows = append(page.Rows, sideBySideRow{
			Class: string(r.Kind),
			OldNo: r.OldNo,
			NewNo: r.NewNo,
			Old:   template.HTML(Escape(r.Old)),
			New:   template.HTML(Escape(r.New)),
		})
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "side_by_side.html.tmpl", page); err != nil {
		return "", fmt.Errorf("render side-by-side: %w", err)
	}
	return buf.String(), nil
}

// RenderSideBySide writes SideBySideHTML to target and returns target.
func RenderSideBySide(req Request, target string) (string, error) {
	html, err := SideBySideHTML(req)
	if err != nil {
		return "", err
	}
	return writeArtifact(target, []byte(html))
}
