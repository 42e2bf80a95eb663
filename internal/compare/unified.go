package compare

import (
	"fmt"
	"strings"

	"github.com/raysh454/lawtrack/internal/seqdiff"
)

const (
	oldSideLabel = "개정 전"
	newSideLabel = "개정 후"
	bannerWidth  = 80
)

// UnifiedText renders a patch-style comparison with full context: every
// line of both versions appears once, in a single hunk.
func UnifiedText(req Request) string {
	var b strings.Builder
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(&b, "%s\n법령 신구대조표: %s\n생성일시: %s\n%s\n\n",
		rule, req.Label, req.generatedAt().Format("2006-01-02 15:04:05"), rule)

	fmt.Fprintf(&b, "--- %s\n+++ %s\n", oldSideLabel, newSideLabel)
	fmt.Fprintf(&b, "@@ -%s +%s @@\n", hunkRange(0, len(req.Old)), hunkRange(0, len(req.New)))

	for _, op := range req.ops() {
		switch op.Tag {
		case seqdiff.Equal:
			for _, line := range req.Old[op.I1:op.I2] {
				b.WriteString(" " + line + "\n")
			}
		case seqdiff.Delete:
			for _, line := range req.Old[op.I1:op.I2] {
				b.WriteString("-" + line + "\n")
			}
		case seqdiff.Insert:
			for _, line := range req.New[op.J1:op.J2] {
				b.WriteString("+" + line + "\n")
			}
		case seqdiff.Replace:
			for _, line := range req.Old[op.I1:op.I2] {
				b.WriteString("-" + line + "\n")
			}
			for _, line := range req.New[op.J1:op.J2] {
				b.WriteString("+" + line + "\n")
			}
		}
	}
	return b.String()
}

// hunkRange formats a 0-based start and a length the way unified diffs do:
// "3" for a single line, "0,0" for an empty file, "1,4" otherwise.
func hunkRange(start, length int) string {
	begin := start + 1
	switch length {
	case 1:
		return fmt.Sprintf("%d", begin)
	case 0:
		begin--
	}
	return fmt.Sprintf("%d,%d", begin, length)
}

// RenderUnified writes UnifiedText to target and returns target.
func RenderUnified(req Request, target string) (string, error) {
	return writeArtifact(target, []byte(UnifiedText(req)))
}
