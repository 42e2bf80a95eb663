package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"

	"github.com/raysh454/lawtrack/internal/model"
)

//go:embed templates/message.html.tmpl
var templateFS embed.FS

var messageTemplate = template.Must(template.ParseFS(templateFS, "templates/message.html.tmpl"))

// Summary counts a batch of updates. A record with no previous publication
// date is a newly observed statute.
type Summary struct {
	Total   int `json:"total"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

func summarize(updates []model.UpdateRecord) Summary {
	s := Summary{Total: len(updates)}
	for _, u := range updates {
		if u.PrevPubDate == "" {
			s.New++
		} else {
			s.Updated++
		}
	}
	return s
}

// Message is rendered once per Notify call and shared by every channel.
type Message struct {
	Subject  string
	Summary  Summary
	Updates  []model.UpdateRecord
	SentAt   time.Time
	HTML     string
	Markdown string
}

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

func buildMessage(updates []model.UpdateRecord, now time.Time) (*Message, error) {
	msg := &Message{
		Subject: fmt.Sprintf("⚖️ 법령 변경 알림 (%d건)", len(updates)),
		Summary: summarize(updates),
		Updates: updates,
		SentAt:  now,
	}

	var buf bytes.Buffer
	err := messageTemplate.Execute(&buf, struct {
		Subject string
		Summary Summary
		Updates []model.UpdateRecord
		SentAt  string
	}{msg.Subject, msg.Summary, updates, now.Format("2006-01-02 15:04")})
	if err != nil {
		return nil, fmt.Errorf("render message: %w", err)
	}
	msg.HTML = buf.String()

	md, err := mdConverter.ConvertString(msg.HTML)
	if err != nil {
		return nil, fmt.Errorf("convert message: %w", err)
	}
	msg.Markdown = strings.TrimSpace(md)
	return msg, nil
}

// chatMarkdown rewrites CommonMark bold to the single-asterisk form used by
// Slack mrkdwn and Telegram's legacy Markdown.
func (m *Message) chatMarkdown() string {
	return strings.ReplaceAll(m.Markdown, "**", "*")
}

// lawLines lists at most limit laws, then a "... 외 N건" tail.
func (m *Message) lawLines(limit int, bold bool) string {
	var b strings.Builder
	for i, u := range m.Updates {
		if i == limit {
			fmt.Fprintf(&b, "\n... 외 %d건", len(m.Updates)-limit)
			break
		}
		name := u.LawName
		if bold {
			name = "**" + name + "**"
		}
		fmt.Fprintf(&b, "• %s (%s)\n", name, u.CurPubDate)
	}
	return strings.TrimRight(b.String(), "\n")
}
