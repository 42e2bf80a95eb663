// Package notify fans a batch of update records out to the configured
// delivery channels.
package notify

import (
	"context"
	"errors"
	"net/smtp"
	"time"

	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/model"
	"github.com/raysh454/lawtrack/internal/webclient"
)

// Dispatcher sends one message per Notify call to every enabled channel.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	now      func() time.Time
	logger   logging.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithSendMail replaces smtp.SendMail for the email channel.
func WithSendMail(fn SendMailFunc) Option {
	return func(d *Dispatcher) {
		for _, ch := range d.channels {
			if e, ok := ch.(*emailChannel); ok {
				e.sendMail = fn
			}
		}
	}
}

// WithChannel adds a custom channel after the configured ones.
func WithChannel(ch Channel) Option {
	return func(d *Dispatcher) { d.channels = append(d.channels, ch) }
}

// New builds a dispatcher for the enabled channels in cfg. HTTP channels
// share wc.
func New(cfg Config, wc webclient.WebClient, logger logging.Logger, opts ...Option) (*Dispatcher, error) {
	if logger == nil {
		return nil, errors.New("notify: nil logger provided")
	}
	if wc == nil && (cfg.Webhook.Enabled || cfg.Slack.Enabled || cfg.Discord.Enabled || cfg.Telegram.Enabled) {
		return nil, errors.New("notify: nil webclient provided")
	}

	d := &Dispatcher{
		timeout: cfg.Timeout,
		now:     time.Now,
		logger:  logger.With(logging.Field{Key: "component", Value: "notify"}),
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}

	if cfg.Discord.Enabled {
		d.channels = append(d.channels, &discordChannel{cfg: cfg.Discord, wc: wc})
	}
	if cfg.Telegram.Enabled {
		d.channels = append(d.channels, &telegramChannel{cfg: cfg.Telegram, wc: wc})
	}
	if cfg.Slack.Enabled {
		d.channels = append(d.channels, &slackChannel{cfg: cfg.Slack, wc: wc})
	}
	if cfg.Email.Enabled {
		d.channels = append(d.channels, &emailChannel{cfg: cfg.Email, sendMail: smtp.SendMail})
	}
	if cfg.Webhook.Enabled {
		d.channels = append(d.channels, &webhookChannel{cfg: cfg.Webhook, wc: wc})
	}

	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Channels returns the names of the active channels in send order.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.channels))
	for i, ch := range d.channels {
		names[i] = ch.Name()
	}
	return names
}

// Notify delivers updates to every channel and reports per-channel success.
// An empty batch sends nothing.
func (d *Dispatcher) Notify(ctx context.Context, updates []model.UpdateRecord) map[string]bool {
	results := make(map[string]bool, len(d.channels))
	if len(updates) == 0 || len(d.channels) == 0 {
		return results
	}

	msg, err := buildMessage(updates, d.now())
	if err != nil {
		d.logger.Error("failed to build notification", logging.Field{Key: "error", Value: err.Error()})
		for _, ch := range d.channels {
			results[ch.Name()] = false
		}
		return results
	}

	for _, ch := range d.channels {
		results[ch.Name()] = d.send(ctx, ch, msg)
	}
	return results
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, msg *Message) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := ch.Send(ctx, msg); err != nil {
		d.logger.Warn("notification failed",
			logging.Field{Key: "channel", Value: ch.Name()},
			logging.Field{Key: "error", Value: err.Error()})
		return false
	}
	d.logger.Info("notification sent",
		logging.Field{Key: "channel", Value: ch.Name()},
		logging.Field{Key: "updates", Value: len(msg.Updates)})
	return true
}
