package compare

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/lawtrack/internal/seqdiff"
)

// Class is the style hook attached to every line of the rich view.
type Class string

const (
	ClassContext Class = "context"
	ClassRemoved Class = "removed"
	ClassAdded   Class = "added"
	ClassChanged Class = "changed"
)

// SegmentOp marks a piece of a line as kept, deleted or inserted.
type SegmentOp string

const (
	SegEqual  SegmentOp = "equal"
	SegDelete SegmentOp = "delete"
	SegInsert SegmentOp = "insert"
)

// Segment is a run of characters within a line.
type Segment struct {
	Op   SegmentOp `json:"op"`
	Text string    `json:"text"`
}

// RichLine is one line of the highlighted unified view. Marker is ' ', '-'
// or '+'. Number is the line number in the side the line comes from.
type RichLine struct {
	Class    Class     `json:"class"`
	Marker   string    `json:"marker"`
	Number   int       `json:"number"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Rich classifies every line of the unified view. Lines of a replace block
// are paired in order and their segments carry a character-level diff.
func Rich(req Request) []RichLine {
	var lines []RichLine
	for _, op := range req.ops() {
		switch op.Tag {
		case seqdiff.Equal:
			for i := op.I1; i < op.I2; i++ {
				lines = append(lines, wholeLine(ClassContext, " ", i+1, req.Old[i], SegEqual))
			}
		case seqdiff.Delete:
			for i := op.I1; i < op.I2; i++ {
				lines = append(lines, wholeLine(ClassRemoved, "-", i+1, req.Old[i], SegDelete))
			}
		case seqdiff.Insert:
			for j := op.J1; j < op.J2; j++ {
				lines = append(lines, wholeLine(ClassAdded, "+", j+1, req.New[j], SegInsert))
			}
		case seqdiff.Replace:
			lines = append(lines, replaceLines(req.Old, req.New, op)...)
		}
	}
	return lines
}

func wholeLine(c Class, marker string, n int, text string, op SegmentOp) RichLine {
	return RichLine{Class: c, Marker: marker, Number: n, Text: text, Segments: []Segment{{Op: op, Text: text}}}
}

func replaceLines(old, new []string, op seqdiff.Op) []RichLine {
	nOld, nNew := op.I2-op.I1, op.J2-op.J1
	paired := min(nOld, nNew)

	oldLines := make([]RichLine, 0, nOld)
	newLines := make([]RichLine, 0, nNew)
	for k := 0; k < paired; k++ {
		o, n := old[op.I1+k], new[op.J1+k]
		oldSegs, newSegs := intraLine(o, n)
		oldLines = append(oldLines, RichLine{Class: ClassChanged, Marker: "-", Number: op.I1 + k + 1, Text: o, Segments: oldSegs})
		newLines = append(newLines, RichLine{Class: ClassChanged, Marker: "+", Number: op.J1 + k + 1, Text: n, Segments: newSegs})
	}
	for k := paired; k < nOld; k++ {
		oldLines = append(oldLines, wholeLine(ClassChanged, "-", op.I1+k+1, old[op.I1+k], SegDelete))
	}
	for k := paired; k < nNew; k++ {
		newLines = append(newLines, wholeLine(ClassChanged, "+", op.J1+k+1, new[op.J1+k], SegInsert))
	}
	return append(oldLines, newLines...)
}

// intraLine splits a changed pair into old-side and new-side segments.
func intraLine(old, new string) (oldSegs, newSegs []Segment) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(old, new, false))
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldSegs = append(oldSegs, Segment{Op: SegEqual, Text: d.Text})
			newSegs = append(newSegs, Segment{Op: SegEqual, Text: d.Text})
		case diffmatchpatch.DiffDelete:
			oldSegs = append(oldSegs, Segment{Op: SegDelete, Text: d.Text})
		case diffmatchpatch.DiffInsert:
			newSegs = append(newSegs, Segment{Op: SegInsert, Text: d.Text})
		}
	}
	return oldSegs, newSegs
}

// RichOptions customizes rich rendering.
type RichOptions struct {
	// ClassName maps a line class to the CSS class emitted in HTML.
	// Defaults to the class name itself.
	ClassName func(Class) string
}

func (o RichOptions) className(c Class) string {
	if o.ClassName != nil {
		return o.ClassName(c)
	}
	return string(c)
}

type richHTMLLine struct {
	Class     Class
	ClassName string
	Marker    string
	Number    int
	HTML      template.HTML
}

// SegmentsHTML renders segments with <del>/<ins> around changed runs.
func SegmentsHTML(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		switch s.Op {
		case SegDelete:
			b.WriteString("<del>" + Escape(s.Text) + "</del>")
		case SegInsert:
			b.WriteString("<ins>" + Escape(s.Text) + "</ins>")
		default:
			b.WriteString(Escape(s.Text))
		}
	}
	return b.String()
}

// RichHTML renders the highlighted view as an HTML page.
func RichHTML(req Request, opts RichOptions) (string, error) {
	lines := Rich(req)
	page := struct {
		Label       string
		GeneratedAt string
		Lines       []richHTMLLine
	}{
		Label:       req.Label,
		GeneratedAt: req.generatedAt().Format("2006-01-02 15:04:05"),
		Lines:       make([]richHTMLLine, 0, len(lines)),
	}
	for _, l := range lines {
		page.Lines = append(page.Lines, richHTMLLine{
			Class:     l.Class,
			ClassName: opts.className(l.Class),
			Marker:    l.Marker,
			Number:    l.Number,
			HTML:      template.HTML(SegmentsHTML(l.Segments)),
		})
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "rich.html.tmpl", page); err != nil {
		return "", fmt.Errorf("render rich view: %w", err)
	}
	return buf.String(), nil
}

// RenderRich writes RichHTML to target and returns target.
func RenderRich(req Request, opts RichOptions, target string) (string, error) {
	html, err := RichHTML(req, opts)
	if err != nil {
		return "", err
	}
	return writeArtifact(target, []byte(html))
}

var (
	termStyles = map[Class]lipgloss.Style{
		ClassContext: lipgloss.NewStyle().Faint(true),
		ClassRemoved: lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C")),
		ClassAdded:   lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71")),
		ClassChanged: lipgloss.NewStyle().Foreground(lipgloss.Color("#F1C40F")),
	}
	termDeleted  = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("#E74C3C"))
	termInserted = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("#2ECC71"))
	termNumber   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// RenderTerminal writes the highlighted view to w with ANSI styling. Styling
// degrades to plain text when w is not a color terminal.
func RenderTerminal(w io.Writer, req Request) error {
	for _, l := range Rich(req) {
		style := termStyles[l.Class]
		var text strings.Builder
		for _, s := range l.Segments {
			switch {
			case l.Class == ClassChanged && s.Op == SegDelete:
				text.WriteString(termDeleted.Render(s.Text))
			case l.Class == ClassChanged && s.Op == SegInsert:
				text.WriteString(termInserted.Render(s.Text))
			default:
				text.WriteString(style.Render(s.Text))
			}
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\n", termNumber.Render(fmt.Sprintf("%5d", l.Number)), style.Render(l.Marker), text.String()); err != nil {
			return err
		}
	}
	return nil
}
