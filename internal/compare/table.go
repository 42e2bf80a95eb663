// Package compare renders old/new statute text comparisons (신구대조표).
//
// Every renderer works from the same intermediate Table built from the two
// line sequences and their seqdiff operations. Artifacts are written through
// blobstore.AtomicWriteFile so a target is either complete or untouched.
package compare

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/raysh454/lawtrack/internal/seqdiff"
	"github.com/raysh454/lawtrack/internal/store/blobstore"
)

// ErrNoTarget is returned when a renderer is asked to write without a target.
var ErrNoTarget = errors.New("compare: no output target")

// Kind classifies a side-by-side row.
type Kind string

const (
	Unchanged Kind = "unchanged"
	Removed   Kind = "removed"
	Added     Kind = "added"
	Changed   Kind = "changed"
)

// Row is one line pair of the side-by-side table. A line number of 0 means
// that side is empty for this row.
type Row struct {
	Kind  Kind   `json:"kind"`
	OldNo int    `json:"old_no,omitempty"`
	NewNo int    `json:"new_no,omitempty"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Table is the renderer-independent comparison model.
type Table struct {
	Rows  []Row         `json:"rows"`
	Stats seqdiff.Stats `json:"stats"`
	// Similarity is seqdiff.Ratio of the two sides, in [0, 1].
	Similarity float64 `json:"similarity"`
}

// Request is the input shared by every renderer.
type Request struct {
	// Label names the compared document, usually the statute name.
	Label string
	Old   []string
	New   []string

	// Ops are computed from Old and New when nil.
	Ops []seqdiff.Op

	// GeneratedAt is printed in artifact headers; zero means now.
	GeneratedAt time.Time
}

func (r Request) ops() []seqdiff.Op {
	if r.Ops != nil {
		return r.Ops
	}
	return seqdiff.Diff(r.Old, r.New)
}

func (r Request) generatedAt() time.Time {
	if r.GeneratedAt.IsZero() {
		return time.Now()
	}
	return r.GeneratedAt
}

// Build lays ops out as rows. Replace spans are paired index by index and the
// shorter side is padded with empty cells up to the longer span.
func Build(old, new []string, ops []seqdiff.Op) *Table {
	t := &Table{Stats: seqdiff.Summarize(ops), Similarity: seqdiff.Ratio(old, new)}
	for _, op := range ops {
		switch op.Tag {
		case seqdiff.Equal:
			for i := op.I1; i < op.I2; i++ {
				j := op.J1 + i - op.I1
				t.Rows = append(t.Rows, Row{Kind: Unchanged, OldNo: i + 1, NewNo: j + 1, Old: old[i], New: new[j]})
			}
		case seqdiff.Delete:
			for i := op.I1; i < op.I2; i++ {
				t.Rows = append(t.Rows, Row{Kind: Removed, OldNo: i + 1, Old: old[i]})
			}
		case seqdiff.Insert:
			for j := op.J1; j < op.J2; j++ {
				t.Rows = append(t.Rows, Row{Kind: Added, NewNo: j + 1, New: new[j]})
			}
		case seqdiff.Replace:
			n := max(op.I2-op.I1, op.J2-op.J1)
			for k := 0; k < n; k++ {
				row := Row{Kind: Changed}
				if i := op.I1 + k; i < op.I2 {
					row.OldNo, row.Old = i+1, old[i]
				}
				if j := op.J1 + k; j < op.J2 {
					row.NewNo, row.New = j+1, new[j]
				}
				t.Rows = append(t.Rows, row)
			}
		}
	}
	return t
}

// BuildRequest is Build applied to a Request.
func BuildRequest(req Request) *Table {
	return Build(req.Old, req.New, req.ops())
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Escape makes s safe to embed in HTML text or attribute values.
func Escape(s string) string {
	return escaper.Replace(s)
}

var nameReplacer = strings.NewReplacer("/", "_", `\`, "_", "..", "_", ":", "_")

// ArtifactName is the deterministic file name of a law's comparison artifact
// for a given publication date.
func ArtifactName(label, pubDate string) string {
	return nameReplacer.Replace(fmt.Sprintf("%s_%s_diff.html", strings.TrimSpace(label), strings.TrimSpace(pubDate)))
}

// TextArtifactName is the companion unified-text artifact name.
func TextArtifactName(label, pubDate string) string {
	return strings.TrimSuffix(ArtifactName(label, pubDate), ".html") + ".txt"
}

func writeArtifact(target string, data []byte) (string, error) {
	if strings.TrimSpace(target) == "" {
		return "", ErrNoTarget
	}
	if err := blobstore.AtomicWriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", target, err)
	}
	return target, nil
}

// ReadLines loads a text file as lines, dropping one trailing newline.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return SplitLines(string(data)), nil
}

// SplitLines splits on \n (tolerating \r\n). An empty string has no lines.
func SplitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
