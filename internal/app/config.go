package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/raysh454/lawtrack/internal/lawapi"
	"github.com/raysh454/lawtrack/internal/notify"
	"github.com/raysh454/lawtrack/internal/telemetry"
	"github.com/raysh454/lawtrack/internal/webclient"
)

// EnvPrefix namespaces environment overrides, e.g. LAWTRACK_API_KEY.
const EnvPrefix = "LAWTRACK"

// Config contains the runtime configuration for every component.
type Config struct {
	API           APIConfig        `mapstructure:"api"`
	Storage       StorageConfig    `mapstructure:"storage"`
	Tracking      TrackingConfig   `mapstructure:"tracking"`
	Server        ServerConfig     `mapstructure:"server"`
	Notifications notify.Config    `mapstructure:"notifications"`
	Telemetry     telemetry.Config `mapstructure:"telemetry"`
	Log           LogConfig        `mapstructure:"log"`
	PDF           PDFConfig        `mapstructure:"pdf"`
}

type APIConfig struct {
	// Key is the law.go.kr OC value. LAW_API_KEY is honored when unset.
	Key       string        `mapstructure:"key"`
	BaseURLs  []string      `mapstructure:"base_urls"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type StorageConfig struct {
	// Root holds lawtrack.db and the blob directory.
	Root string `mapstructure:"root"`
	// Ephemeral keeps everything in memory.
	Ephemeral bool `mapstructure:"ephemeral"`
}

type TrackingConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// OutputDir additionally receives every rendered artifact as a file.
	OutputDir string `mapstructure:"output_dir"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type PDFConfig struct {
	ChromePath string        `mapstructure:"chrome_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURLs:  []string{lawapi.DefaultBaseURL, "https://www.law.go.kr/DRF"},
			Timeout:   webclient.DefaultTimeout,
			UserAgent: "lawtrack/" + Version,
		},
		Storage: StorageConfig{
			Root: "~/.config/lawtrack",
		},
		Tracking: TrackingConfig{
			MaxConcurrency: 4,
			OutputDir:      "",
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Notifications: notify.Config{
			Timeout: notify.DefaultTimeout,
			Email:   notify.EmailConfig{SMTPPort: 587},
		},
		Log: LogConfig{Level: "info"},
		PDF: PDFConfig{Timeout: 60 * time.Second},
	}
}

// LoadConfig layers defaults, an optional config file, a .env file and
// LAWTRACK_* environment variables, in increasing priority. An empty path
// looks for lawtrack.yaml in the working directory and ~/.config/lawtrack.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("lawtrack")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "lawtrack"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.API.Key == "" {
		cfg.API.Key = os.Getenv("LAW_API_KEY")
	}

	root, err := expandPath(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("expanding storage root path: %w", err)
	}
	cfg.Storage.Root = root
	if cfg.Tracking.OutputDir, err = expandPath(cfg.Tracking.OutputDir); err != nil {
		return nil, fmt.Errorf("expanding output dir: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.key", d.API.Key)
	v.SetDefault("api.base_urls", d.API.BaseURLs)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.user_agent", d.API.UserAgent)

	v.SetDefault("storage.root", d.Storage.Root)
	v.SetDefault("storage.ephemeral", d.Storage.Ephemeral)

	v.SetDefault("tracking.max_concurrency", d.Tracking.MaxConcurrency)
	v.SetDefault("tracking.output_dir", d.Tracking.OutputDir)

	v.SetDefault("server.listen_addr", d.Server.ListenAddr)

	n := d.Notifications
	v.SetDefault("notifications.timeout", n.Timeout)
	v.SetDefault("notifications.webhook.enabled", n.Webhook.Enabled)
	v.SetDefault("notifications.webhook.url", n.Webhook.URL)
	v.SetDefault("notifications.webhook.secret", n.Webhook.Secret)
	v.SetDefault("notifications.slack.enabled", n.Slack.Enabled)
	v.SetDefault("notifications.slack.webhook_url", n.Slack.WebhookURL)
	v.SetDefault("notifications.discord.enabled", n.Discord.Enabled)
	v.SetDefault("notifications.discord.webhook_url", n.Discord.WebhookURL)
	v.SetDefault("notifications.telegram.enabled", n.Telegram.Enabled)
	v.SetDefault("notifications.telegram.bot_token", n.Telegram.BotToken)
	v.SetDefault("notifications.telegram.chat_id", n.Telegram.ChatID)
	v.SetDefault("notifications.telegram.api_base", n.Telegram.APIBase)
	v.SetDefault("notifications.email.enabled", n.Email.Enabled)
	v.SetDefault("notifications.email.smtp_server", n.Email.SMTPServer)
	v.SetDefault("notifications.email.smtp_port", n.Email.SMTPPort)
	v.SetDefault("notifications.email.smtp_username", n.Email.Username)
	v.SetDefault("notifications.email.smtp_password", n.Email.Password)
	v.SetDefault("notifications.email.sender", n.Email.Sender)
	v.SetDefault("notifications.email.recipients", n.Email.Recipients)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)

	v.SetDefault("log.level", d.Log.Level)

	v.SetDefault("pdf.chrome_path", d.PDF.ChromePath)
	v.SetDefault("pdf.timeout", d.PDF.Timeout)
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
