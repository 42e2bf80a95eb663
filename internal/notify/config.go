package notify

import "time"

// DefaultTimeout bounds a single channel delivery.
const DefaultTimeout = 10 * time.Second

// Config enables and configures each delivery channel. A channel that is
// enabled but missing its endpoint is still attempted and reported false.
type Config struct {
	Webhook  WebhookConfig  `mapstructure:"webhook" json:"webhook"`
	Slack    SlackConfig    `mapstructure:"slack" json:"slack"`
	Discord  DiscordConfig  `mapstructure:"discord" json:"discord"`
	Telegram TelegramConfig `mapstructure:"telegram" json:"telegram"`
	Email    EmailConfig    `mapstructure:"email" json:"email"`

	// Timeout applies per channel; zero means DefaultTimeout.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	URL     string `mapstructure:"url" json:"url"`
	// Secret signs the body with HMAC-SHA256 when set.
	Secret string `mapstructure:"secret" json:"-"`
}

type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled" json:"enabled"`
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url"`
}

type DiscordConfig struct {
	Enabled    bool   `mapstructure:"enabled" json:"enabled"`
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	BotToken string `mapstructure:"bot_token" json:"-"`
	ChatID   string `mapstructure:"chat_id" json:"chat_id"`
	// APIBase defaults to https://api.telegram.org.
	APIBase string `mapstructure:"api_base" json:"api_base"`
}

type EmailConfig struct {
	Enabled    bool     `mapstructure:"enabled" json:"enabled"`
	SMTPServer string   `mapstructure:"smtp_server" json:"smtp_server"`
	SMTPPort   int      `mapstructure:"smtp_port" json:"smtp_port"`
	Username   string   `mapstructure:"smtp_username" json:"smtp_username"`
	Password   string   `mapstructure:"smtp_password" json:"-"`
	Sender     string   `mapstructure:"sender" json:"sender"`
	Recipients []string `mapstructure:"recipients" json:"recipients"`
}

// Any reports whether at least one channel is enabled.
func (c Config) Any() bool {
	return c.Webhook.Enabled || c.Slack.Enabled || c.Discord.Enabled || c.Telegram.Enabled || c.Email.Enabled
}
