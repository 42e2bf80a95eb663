package lawapi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/charset"

	"github.com/raysh454/lawtrack/internal/model"
)

// Search response: <LawSearch><totalCnt/><law>...</law>...</LawSearch>
type searchXML struct {
	TotalCount string       `xml:"totalCnt"`
	Laws       []searchItem `xml:"law"`
}

type searchItem struct {
	SequenceID    string `xml:"법령일련번호"`
	LawID         string `xml:"법령ID"`
	Name          string `xml:"법령명한글"`
	PubDate       string `xml:"공포일자"`
	EffectiveDate string `xml:"시행일자"`
}

// Detail response: <법령><기본정보/><조문><조문단위/>...</조문></법령>
type detailXML struct {
	BasicInfo *basicInfoXML `xml:"기본정보"`
	Articles  struct {
		Units []articleXML `xml:"조문단위"`
	} `xml:"조문"`
}

type basicInfoXML struct {
	Name          string `xml:"법령명_한글"`
	PubDate       string `xml:"공포일자"`
	PubNumber     string `xml:"공포번호"`
	EffectiveDate string `xml:"시행일자"`
	RevisionType  string `xml:"제개정구분"`
	Ministry      string `xml:"소관부처"`
	Phone         string `xml:"전화번호"`
}

type articleXML struct {
	Number     string         `xml:"조문번호"`
	Title      string         `xml:"조문제목"`
	Content    string         `xml:"조문내용"`
	Paragraphs []paragraphXML `xml:"항"`
}

type paragraphXML struct {
	Number  string      `xml:"항번호"`
	Content string      `xml:"항내용"`
	Clauses []clauseXML `xml:"호"`
}

type clauseXML struct {
	Number  string `xml:"호번호"`
	Content string `xml:"호내용"`
}

func decodeXML(body []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode xml: %w", err)
	}
	return nil
}

var textPolicy = bluemonday.StrictPolicy()

// cleanText strips inline markup that the service embeds in CDATA sections
// and collapses surrounding whitespace.
func cleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func (s searchXML) results() []model.SearchResult {
	out := make([]model.SearchResult, 0, len(s.Laws))
	for _, l := range s.Laws {
		out = append(out, model.SearchResult{
			SequenceID:    cleanText(l.SequenceID),
			LawID:         cleanText(l.LawID),
			Name:          cleanText(l.Name),
			PubDate:       cleanText(l.PubDate),
			EffectiveDate: cleanText(l.EffectiveDate),
		})
	}
	return out
}

func (d detailXML) document() *model.Document {
	doc := &model.Document{}
	if b := d.BasicInfo; b != nil {
		doc.BasicInfo = &model.BasicInfo{
			Name:          cleanText(b.Name),
			PubDate:       cleanText(b.PubDate),
			PubNumber:     cleanText(b.PubNumber),
			EffectiveDate: cleanText(b.EffectiveDate),
			RevisionType:  cleanText(b.RevisionType),
			Ministry:      cleanText(b.Ministry),
			Phone:         cleanText(b.Phone),
		}
	}
	for _, a := range d.Articles.Units {
		art := model.Article{
			Number:  cleanText(a.Number),
			Title:   cleanText(a.Title),
			Content: cleanText(a.Content),
		}
		for _, p := range a.Paragraphs {
			para := model.Paragraph{Number: cleanText(p.Number), Content: cleanText(p.Content)}
			for _, c := range p.Clauses {
				para.Clauses = append(para.Clauses, model.Clause{Number: cleanText(c.Number), Content: cleanText(c.Content)})
			}
			art.Paragraphs = append(art.Paragraphs, para)
		}
		doc.Articles = append(doc.Articles, art)
	}
	return doc
}
