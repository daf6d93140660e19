package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Database  DatabaseConfig  `yaml:"database"`
	Notify    NotifyConfig    `yaml:"notify"`
	Locale    string          `yaml:"locale"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the local HTTP API configuration.
type ServerConfig struct {
	Addr            string  `yaml:"addr"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateBurst       int     `yaml:"rate_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// SchedulerConfig holds the tick/poll cadence and auto-join tolerances.
type SchedulerConfig struct {
	TickSeconds                 int `yaml:"tick_seconds"`
	PollSeconds                 int `yaml:"poll_seconds"`
	GraceMinutes                int `yaml:"grace_minutes"`
	PreOpenDelayMs              int `yaml:"pre_open_delay_ms"`
	DefaultMinutesBefore        int `yaml:"default_minutes_before"`
	DefaultTrayCountdownMinutes int `yaml:"default_tray_countdown_minutes"`

	Tick         time.Duration `yaml:"-"`
	Poll         time.Duration `yaml:"-"`
	PreOpenDelay time.Duration `yaml:"-"`

	gracePresent bool
	leadPresent  bool
	trayPresent  bool
	delayPresent bool
}

// UnmarshalYAML records which zero-valued keys were set explicitly, since 0 is a
// meaningful value for the grace window, lead time, tray threshold and delay.
func (s *SchedulerConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain SchedulerConfig
	if err := node.Decode((*plain)(s)); err != nil {
		return err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "grace_minutes":
			s.gracePresent = true
		case "default_minutes_before":
			s.leadPresent = true
		case "default_tray_countdown_minutes":
			s.trayPresent = true
		case "pre_open_delay_ms":
			s.delayPresent = true
		}
	}
	return nil
}

// CalendarConfig selects and configures the calendar provider.
type CalendarConfig struct {
	Provider                 string       `yaml:"provider"`
	CallTimeoutSeconds       int          `yaml:"call_timeout_seconds"`
	PermissionTimeoutSeconds int          `yaml:"permission_timeout_seconds"`
	ICal                     ICalConfig   `yaml:"ical"`
	Google                   GoogleConfig `yaml:"google"`

	CallTimeout       time.Duration `yaml:"-"`
	PermissionTimeout time.Duration `yaml:"-"`
}

// ICalConfig lists iCalendar feeds.
type ICalConfig struct {
	Sources []ICalSource `yaml:"sources"`
}

// ICalSource is one iCalendar feed, fetched over HTTP(S) or read from a local path.
type ICalSource struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// GoogleConfig holds the Google Calendar OAuth client settings.
type GoogleConfig struct {
	CredentialsFile string   `yaml:"credentials_file"`
	TokenFile       string   `yaml:"token_file"`
	CalendarIDs     []string `yaml:"calendar_ids"`
	CallbackAddr    string   `yaml:"callback_addr"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// NotifyConfig holds the notification worker pool and its senders.
type NotifyConfig struct {
	WorkerPoolSize int           `yaml:"worker_pool_size"`
	QueueSize      int           `yaml:"queue_size"`
	Push           PushConfig    `yaml:"push"`
	SNS            SNSConfig     `yaml:"sns"`
	Discord        DiscordConfig `yaml:"discord"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// SNSConfig publishes notices to an AWS SNS topic when TopicARN is set.
type SNSConfig struct {
	TopicARN string `yaml:"topic_arn"`
	Region   string `yaml:"region"`
}

// DiscordConfig posts notices to a Discord webhook when both fields are set.
type DiscordConfig struct {
	WebhookID    string `yaml:"webhook_id"`
	WebhookToken string `yaml:"webhook_token"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envOverrides are the GALOPEN_* variables that take precedence over the file.
type envOverrides struct {
	Addr              string `env:"GALOPEN_SERVER_ADDR"`
	Provider          string `env:"GALOPEN_CALENDAR_PROVIDER"`
	GoogleCredentials string `env:"GALOPEN_GOOGLE_CREDENTIALS_FILE"`
	GoogleToken       string `env:"GALOPEN_GOOGLE_TOKEN_FILE"`
	DSN               string `env:"GALOPEN_DATABASE_DSN"`
	VAPIDPublicKey    string `env:"GALOPEN_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey   string `env:"GALOPEN_VAPID_PRIVATE_KEY"`
	SNSTopicARN       string `env:"GALOPEN_SNS_TOPIC_ARN"`
	SNSRegion         string `env:"GALOPEN_SNS_REGION"`
	DiscordWebhookID  string `env:"GALOPEN_DISCORD_WEBHOOK_ID"`
	DiscordToken      string `env:"GALOPEN_DISCORD_WEBHOOK_TOKEN"`
	Locale            string `env:"GALOPEN_LOCALE"`
	LogLevel          string `env:"GALOPEN_LOG_LEVEL"`
	LogFormat         string `env:"GALOPEN_LOG_FORMAT"`
}

// Load reads the configuration from the given path. An empty path skips the file
// and yields defaults plus environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Server.Addr, o.Addr)
	set(&cfg.Calendar.Provider, o.Provider)
	set(&cfg.Calendar.Google.CredentialsFile, o.GoogleCredentials)
	set(&cfg.Calendar.Google.TokenFile, o.GoogleToken)
	set(&cfg.Database.DSN, o.DSN)
	set(&cfg.Notify.Push.PublicKey, o.VAPIDPublicKey)
	set(&cfg.Notify.Push.PrivateKey, o.VAPIDPrivateKey)
	set(&cfg.Notify.SNS.TopicARN, o.SNSTopicARN)
	set(&cfg.Notify.SNS.Region, o.SNSRegion)
	set(&cfg.Notify.Discord.WebhookID, o.DiscordWebhookID)
	set(&cfg.Notify.Discord.WebhookToken, o.DiscordToken)
	set(&cfg.Locale, o.Locale)
	set(&cfg.Log.Level, o.LogLevel)
	set(&cfg.Log.Format, o.LogFormat)
	return nil
}

func validate(cfg *Config) error {
	s := cfg.Scheduler
	for name, v := range map[string]int{
		"scheduler.tick_seconds":                   s.TickSeconds,
		"scheduler.poll_seconds":                   s.PollSeconds,
		"scheduler.grace_minutes":                  s.GraceMinutes,
		"scheduler.pre_open_delay_ms":              s.PreOpenDelayMs,
		"scheduler.default_minutes_before":         s.DefaultMinutesBefore,
		"scheduler.default_tray_countdown_minutes": s.DefaultTrayCountdownMinutes,
		"calendar.call_timeout_seconds":            cfg.Calendar.CallTimeoutSeconds,
		"calendar.permission_timeout_seconds":      cfg.Calendar.PermissionTimeoutSeconds,
		"server.cache_ttl_seconds":                 cfg.Server.CacheTTLSeconds,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}

	switch cfg.Calendar.Provider {
	case "", "ical", "google":
	default:
		return fmt.Errorf("unknown calendar provider %q", cfg.Calendar.Provider)
	}
	switch cfg.Locale {
	case "", "auto", "en", "ja":
	default:
		return fmt.Errorf("unknown locale %q", cfg.Locale)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:7575"
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 5
	}
	if cfg.Server.CacheTTLSeconds == 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	s := &cfg.Scheduler
	if s.TickSeconds == 0 {
		s.TickSeconds = 10
	}
	if s.PollSeconds == 0 {
		s.PollSeconds = 300
	}
	if s.GraceMinutes == 0 && !s.gracePresent {
		s.GraceMinutes = 2
	}
	if s.PreOpenDelayMs == 0 && !s.delayPresent {
		s.PreOpenDelayMs = 3000
	}
	if s.DefaultMinutesBefore == 0 && !s.leadPresent {
		s.DefaultMinutesBefore = 1
	}
	if s.DefaultTrayCountdownMinutes == 0 && !s.trayPresent {
		s.DefaultTrayCountdownMinutes = 30
	}
	s.Tick = time.Duration(s.TickSeconds) * time.Second
	s.Poll = time.Duration(s.PollSeconds) * time.Second
	s.PreOpenDelay = time.Duration(s.PreOpenDelayMs) * time.Millisecond

	c := &cfg.Calendar
	if c.Provider == "" {
		c.Provider = "ical"
	}
	if c.CallTimeoutSeconds == 0 {
		c.CallTimeoutSeconds = 30
	}
	if c.PermissionTimeoutSeconds == 0 {
		c.PermissionTimeoutSeconds = 300
	}
	c.CallTimeout = time.Duration(c.CallTimeoutSeconds) * time.Second
	c.PermissionTimeout = time.Duration(c.PermissionTimeoutSeconds) * time.Second
	if c.Google.CallbackAddr == "" {
		c.Google.CallbackAddr = "127.0.0.1:8085"
	}
	if c.Google.TokenFile == "" {
		c.Google.TokenFile = "galopen-token.json"
	}
	if len(c.Google.CalendarIDs) == 0 {
		c.Google.CalendarIDs = []string{"primary"}
	}
	for i := range c.ICal.Sources {
		src := &c.ICal.Sources[i]
		if src.ID == "" {
			src.ID = src.URL
		}
		if src.Name == "" {
			src.Name = src.ID
		}
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:galopen.db"
	}

	n := &cfg.Notify
	if n.WorkerPoolSize <= 0 {
		n.WorkerPoolSize = 1
	}
	if n.QueueSize <= 0 {
		n.QueueSize = 16
	}
	if n.Push.TTL <= 0 {
		n.Push.TTL = 3600
	}
	if n.Push.Subject == "" {
		n.Push.Subject = "mailto:galopen@localhost"
	}
	if n.SNS.Region == "" {
		n.SNS.Region = "us-east-1"
	}

	if cfg.Locale == "" {
		cfg.Locale = "auto"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
