// Package lawtext turns a statute's hierarchical detail document into an
// ordered list of plain-text lines suitable for line-based comparison.
package lawtext

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raysh454/lawtrack/internal/model"
)

const (
	paragraphIndent = "  "
	clauseIndent    = "    "
)

// Flatten emits one line per unit of meaning in document order. A nil
// document yields an empty slice.
func Flatten(doc *model.Document) []string {
	lines := []string{}
	if doc == nil {
		return lines
	}

	if info := doc.BasicInfo; info != nil {
		lines = append(lines,
			"법령명: "+info.Name,
			"공포일자: "+info.PubDate,
			"시행일자: "+info.EffectiveDate,
			"",
		)
	}

	for _, a := range doc.Articles {
		if line := articleLine(a.Number, a.Title, a.Content); line != "" {
			lines = append(lines, line)
		}
		for _, p := range a.Paragraphs {
			if c := strings.TrimSpace(p.Content); c != "" {
				lines = append(lines, paragraphIndent+c)
			}
			for _, cl := range p.Clauses {
				if c := strings.TrimSpace(cl.Content); c != "" {
					lines = append(lines, clauseIndent+c)
				}
			}
		}
	}
	return lines
}

func articleLine(number, title, content string) string {
	heading := strings.TrimSpace(number + " " + title)
	return strings.TrimSpace(heading + " " + strings.TrimSpace(content))
}

// DecodeDocument decodes detail JSON into a Document. Input whose nodes hold
// a single object where a list is expected is decoded through DocumentFromRaw.
func DecodeDocument(data []byte) (*model.Document, error) {
	var doc *model.Document
	err := json.Unmarshal(data, &doc)
	if err == nil {
		return doc, nil
	}
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return DocumentFromRaw(raw), nil
}

// DocumentFromRaw converts a loosely typed detail tree into a Document.
// Unknown or mistyped fields are ignored.
func DocumentFromRaw(raw map[string]any) *model.Document {
	if raw == nil {
		return nil
	}
	doc := &model.Document{}

	if info, ok := raw["기본정보"].(map[string]any); ok {
		doc.BasicInfo = &model.BasicInfo{
			Name:          str(info["법령명_한글"]),
			PubDate:       str(info["공포일자"]),
			PubNumber:     str(info["공포번호"]),
			EffectiveDate: str(info["시행일자"]),
			RevisionType:  str(info["제개정구분"]),
			Ministry:      str(info["소관부처"]),
			Phone:         str(info["전화번호"]),
		}
	}

	articles := raw["조문"]
	// The API wraps articles in 조문 → 조문단위.
	if wrapper, ok := articles.(map[string]any); ok {
		if units, ok := wrapper["조문단위"]; ok {
			articles = units
		}
	}
	for _, a := range asList(articles) {
		art := model.Article{
			Number:  str(a["조문번호"]),
			Title:   str(a["조문제목"]),
			Content: str(a["조문내용"]),
		}
		for _, p := range asList(a["항"]) {
			para := model.Paragraph{Number: str(p["항번호"]), Content: str(p["항내용"])}
			for _, c := range asList(p["호"]) {
				para.Clauses = append(para.Clauses, model.Clause{Number: str(c["호번호"]), Content: str(c["호내용"])})
			}
			art.Paragraphs = append(art.Paragraphs, para)
		}
		doc.Articles = append(doc.Articles, art)
	}
	return doc
}

// asList normalizes a single object or a list of objects into a list.
func asList(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case []map[string]any:
		return t
	default:
		return nil
	}
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		// XML-to-map converters put element text under #text when the
		// element also carries attributes.
		return str(t["#text"])
	default:
		return fmt.Sprint(t)
	}
}
