package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/webclient"
)

// SignatureHeader carries "sha256=<hex hmac>" of the webhook body.
const SignatureHeader = "X-Lawtrack-Signature"

const (
	senderName   = "법령 추적 시스템"
	embedColor   = 0x667eea
	discordLimit = 5
	telegramMax  = 10
)

var (
	// ErrNotConfigured is returned when an enabled channel lacks its endpoint.
	ErrNotConfigured = errors.New("notify: channel not configured")
	// ErrDelivery wraps a non-2xx answer from a channel endpoint.
	ErrDelivery = errors.New("notify: delivery rejected")
)

// Channel delivers a rendered message to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

func postJSON(ctx context.Context, wc webclient.WebClient, url string, payload any, headers http.Header) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return postBody(ctx, wc, url, body, headers)
}

func postBody(ctx context.Context, wc webclient.WebClient, url string, body []byte, headers http.Header) error {
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Content-Type", "application/json")
	resp, err := wc.Do(ctx, &webclient.Request{Method: http.MethodPost, URL: url, Headers: headers, Body: body})
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrDelivery, resp.StatusCode)
	}
	return nil
}

// ─── Webhook ───────────────────────────────────────────────────────────

type webhookChannel struct {
	cfg WebhookConfig
	wc  webclient.WebClient
}

type webhookPayload struct {
	Timestamp string               `json:"timestamp"`
	Changes   []model.UpdateRecord `json:"changes"`
	Summary   Summary              `json:"summary"`
}

func (c *webhookChannel) Name() string { return "webhook" }

func (c *webhookChannel) Send(ctx context.Context, msg *Message) error {
	if c.cfg.URL == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(webhookPayload{
		Timestamp: msg.SentAt.Format(time.RFC3339),
		Changes:   msg.Updates,
		Summary:   msg.Summary,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	headers := http.Header{}
	if c.cfg.Secret != "" {
		headers.Set(SignatureHeader, "sha256="+Sign(c.cfg.Secret, body))
	}
	return postBody(ctx, c.wc, c.cfg.URL, body, headers)
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ─── Slack ─────────────────────────────────────────────────────────────

type slackChannel struct {
	cfg SlackConfig
	wc  webclient.WebClient
}

func (c *slackChannel) Name() string { return "slack" }

func (c *slackChannel) Send(ctx context.Context, msg *Message) error {
	if c.cfg.WebhookURL == "" {
		return ErrNotConfigured
	}
	text := msg.chatMarkdown()
	payload := map[string]any{
		"text": msg.Subject,
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]any{"type": "plain_text", "text": "⚖️ 법령 변경 알림"},
			},
			{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": text},
			},
		},
	}
	return postJSON(ctx, c.wc, c.cfg.WebhookURL, payload, nil)
}

// ─── Discord ───────────────────────────────────────────────────────────

type discordChannel struct {
	cfg DiscordConfig
	wc  webclient.WebClient
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Color       int               `json:"color"`
	Timestamp   string            `json:"timestamp"`
	Fields      []discordField    `json:"fields"`
	Footer      map[string]string `json:"footer"`
}

func (c *discordChannel) Name() string { return "discord" }

func (c *discordChannel) Send(ctx context.Context, msg *Message) error {
	if c.cfg.WebhookURL == "" {
		return ErrNotConfigured
	}
	embed := discordEmbed{
		Title:       "⚖️ 법령 변경 알림",
		Description: fmt.Sprintf("총 **%d건**의 변경사항이 발견되었습니다.", msg.Summary.Total),
		Color:       embedColor,
		Timestamp:   msg.SentAt.Format(time.RFC3339),
		Fields: []discordField{
			{Name: "🆕 신규", Value: strconv.Itoa(msg.Summary.New), Inline: true},
			{Name: "📝 개정", Value: strconv.Itoa(msg.Summary.Updated), Inline: true},
			{Name: "❌ 폐지", Value: strconv.Itoa(msg.Summary.Deleted), Inline: true},
		},
		Footer: map[string]string{"text": senderName},
	}
	if len(msg.Updates) > 0 {
		embed.Fields = append(embed.Fields, discordField{Name: "변경된 법령", Value: msg.lawLines(discordLimit, true)})
	}
	payload := map[string]any{"username": senderName, "embeds": []discordEmbed{embed}}
	return postJSON(ctx, c.wc, c.cfg.WebhookURL, payload, nil)
}

// ─── Telegram ──────────────────────────────────────────────────────────

type telegramChannel struct {
	cfg TelegramConfig
	wc  webclient.WebClient
}

func (c *telegramChannel) Name() string { return "telegram" }

func (c *telegramChannel) Send(ctx context.Context, msg *Message) error {
	if c.cfg.BotToken == "" || c.cfg.ChatID == "" {
		return ErrNotConfigured
	}
	base := strings.TrimRight(c.cfg.APIBase, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	text := msg.chatMarkdown()
	if len(msg.Updates) > telegramMax {
		// Message size limit.
		text = fmt.Sprintf("⚖️ *법령 변경 알림*\n\n총 *%d건*의 변경사항이 발견되었습니다.\n\n*변경된 법령:*\n%s",
			msg.Summary.Total, msg.lawLines(telegramMax, false))
	}
	payload := map[string]string{
		"chat_id":    c.cfg.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	return postJSON(ctx, c.wc, base+"/bot"+c.cfg.BotToken+"/sendMessage", payload, nil)
}

// ─── Email ─────────────────────────────────────────────────────────────

// SendMailFunc matches smtp.SendMail, which upgrades with STARTTLS when the
// server offers it.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type emailChannel struct {
	cfg      EmailConfig
	sendMail SendMailFunc
}

func (c *emailChannel) Name() string { return "email" }

func (c *emailChannel) Send(ctx context.Context, msg *Message) error {
	if c.cfg.SMTPServer == "" || len(c.cfg.Recipients) == 0 {
		return ErrNotConfigured
	}
	port := c.cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	from := c.cfg.Sender
	if from == "" {
		from = c.cfg.Username
	}
	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.SMTPServer)
	}

	addr := net.JoinHostPort(c.cfg.SMTPServer, strconv.Itoa(port))
	raw := mimeMessage(from, c.cfg.Recipients, msg)

	// net/smtp has no context support; abandon the send on cancellation.
	done := make(chan error, 1)
	go func() { done <- c.sendMail(addr, auth, from, c.cfg.Recipients, raw) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func mimeMessage(from string, to []string, msg *Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.BEncoding.Encode("UTF-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + msg.SentAt.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}
