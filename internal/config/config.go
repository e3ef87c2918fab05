package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"storage-watch/internal/logging"
)

// Message formats understood by the notifier.
const (
	FormatEmbed = "embed"
	FormatText  = "text"
)

// Fetch failure policies.
const (
	PolicyEmpty = "empty"
	PolicySkip  = "skip"
)

// Alert sinks.
const (
	SinkDiscord  = "discord"
	SinkTelegram = "telegram"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	API      APIConfig      `mapstructure:"api"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Database DatabaseConfig `mapstructure:"database"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DiscordConfig covers the bot session and its destination channels.
type DiscordConfig struct {
	Token         string `mapstructure:"token"`
	ChannelID     string `mapstructure:"channel_id"`
	DevChannelID  string `mapstructure:"dev_channel_id"`
	CommandPrefix string `mapstructure:"command_prefix"`
	MentionRoleID string `mapstructure:"mention_role_id"`
}

// APIConfig describes the inventory endpoint.
type APIConfig struct {
	URL            string        `mapstructure:"url"`
	Endpoint       string        `mapstructure:"endpoint"`
	FactoryID      string        `mapstructure:"factory_id"`
	DevURL         string        `mapstructure:"dev_url"`
	BearerToken    string        `mapstructure:"bearer_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// MonitorConfig governs polling cadence and alert thresholds.
type MonitorConfig struct {
	DevelopmentMode    bool          `mapstructure:"development_mode"`
	ThresholdWeight    int64         `mapstructure:"threshold_weight"`
	MaxWeight          int64         `mapstructure:"max_weight"`
	Interval           time.Duration `mapstructure:"interval"`
	DevInterval        time.Duration `mapstructure:"dev_interval"`
	MessageFormat      string        `mapstructure:"message_format"`
	FetchFailurePolicy string        `mapstructure:"fetch_failure_policy"`
}

// DatabaseConfig encapsulates the optional PostgreSQL event journal.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AlertingConfig selects where notifications are delivered.
type AlertingConfig struct {
	Sink     string         `mapstructure:"sink"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the alternative Telegram sink.
type TelegramConfig struct {
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// legacyEnv maps config keys onto the variable names the bot has always used.
var legacyEnv = map[string]string{
	"discord.token":                "DISCORD_TOKEN",
	"discord.channel_id":           "CHANNEL_ID",
	"discord.dev_channel_id":       "DEV_CHANNEL_ID",
	"discord.command_prefix":       "COMMAND_PREFIX",
	"discord.mention_role_id":      "MENTION_ROLE_ID",
	"api.url":                      "API_URL",
	"api.endpoint":                 "API_ENDPOINT",
	"api.factory_id":               "API_FACTORY_ID",
	"api.dev_url":                  "DEV_API_URL",
	"api.bearer_token":             "API_BEARER_TOKEN",
	"api.request_timeout":          "API_REQUEST_TIMEOUT",
	"monitor.development_mode":     "DEVELOPMENT_MODE",
	"monitor.threshold_weight":     "THRESHOLD_WEIGHT",
	"monitor.max_weight":           "MAX_WEIGHT",
	"monitor.interval":             "POLL_INTERVAL",
	"monitor.dev_interval":         "DEV_POLL_INTERVAL",
	"monitor.message_format":       "MESSAGE_FORMAT",
	"monitor.fetch_failure_policy": "FETCH_FAILURE_POLICY",
	"app.name":                     "APP_NAME",
	"logging.level":                "LOG_LEVEL",
	"logging.format":               "LOG_FORMAT",
	"database.dsn":                 "DATABASE_DSN",
	"alerting.sink":                "ALERT_SINK",
	"alerting.telegram.bot_token":  "TELEGRAM_BOT_TOKEN",
	"alerting.telegram.chat_id":    "TELEGRAM_CHAT_ID",
	"alerting.telegram.api_base":   "TELEGRAM_API_BASE",
}

// LoadEnvFile exports a dotenv file into the process environment. Variables
// already present win, and a missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STORAGEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "StateV")
	v.SetDefault("app.environment", "production")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("discord.command_prefix", "!")
	v.SetDefault("discord.mention_role_id", "1222362557495382047")

	v.SetDefault("api.request_timeout", "30s")
	v.SetDefault("api.user_agent", "storagewatch/1.0")

	v.SetDefault("monitor.development_mode", false)
	v.SetDefault("monitor.threshold_weight", 1500)
	v.SetDefault("monitor.max_weight", 1850)
	v.SetDefault("monitor.interval", "600s")
	v.SetDefault("monitor.dev_interval", "1s")
	v.SetDefault("monitor.message_format", FormatEmbed)
	v.SetDefault("monitor.fetch_failure_policy", PolicyEmpty)

	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("alerting.sink", SinkDiscord)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be greater than zero")
	}
	if c.Monitor.DevInterval <= 0 {
		return fmt.Errorf("monitor.dev_interval must be greater than zero")
	}
	if c.Monitor.MaxWeight <= 0 {
		return fmt.Errorf("monitor.max_weight must be greater than zero")
	}
	if c.Monitor.ThresholdWeight < 0 {
		return fmt.Errorf("monitor.threshold_weight cannot be negative")
	}
	if c.API.RequestTimeout < 0 {
		return fmt.Errorf("api.request_timeout cannot be negative")
	}
	switch c.Monitor.MessageFormat {
	case FormatEmbed, FormatText:
	default:
		return fmt.Errorf("monitor.message_format must be %q or %q, got %q", FormatEmbed, FormatText, c.Monitor.MessageFormat)
	}
	switch c.Monitor.FetchFailurePolicy {
	case PolicyEmpty, PolicySkip:
	default:
		return fmt.Errorf("monitor.fetch_failure_policy must be %q or %q, got %q", PolicyEmpty, PolicySkip, c.Monitor.FetchFailurePolicy)
	}
	switch c.Alerting.Sink {
	case SinkDiscord:
	case SinkTelegram:
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required for the telegram sink")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required for the telegram sink")
		}
	default:
		return fmt.Errorf("alerting.sink must be %q or %q, got %q", SinkDiscord, SinkTelegram, c.Alerting.Sink)
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ValidateRun checks the settings only the long-running bot needs.
func (c *Config) ValidateRun() error {
	if err := c.ValidateDiscord(); err != nil {
		return err
	}
	return c.ValidateAPI()
}

// ValidateDiscord checks the bot token and, for the Discord sink, the
// destination channel.
func (c *Config) ValidateDiscord() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token (DISCORD_TOKEN) is required")
	}
	if c.Alerting.Sink == SinkDiscord && c.DestinationChannel() == "" {
		if c.Monitor.DevelopmentMode {
			return fmt.Errorf("discord.dev_channel_id (DEV_CHANNEL_ID) is required in development mode")
		}
		return fmt.Errorf("discord.channel_id (CHANNEL_ID) is required")
	}
	return nil
}

// ValidateAPI checks that an inventory endpoint can be derived.
func (c *Config) ValidateAPI() error {
	if c.Endpoint() == "" {
		if c.Monitor.DevelopmentMode {
			return fmt.Errorf("api.dev_url (DEV_API_URL) is required in development mode")
		}
		return fmt.Errorf("api.url (API_URL) is required")
	}
	return nil
}

// Endpoint resolves the inventory URL for the active mode.
func (c *Config) Endpoint() string {
	if c.Monitor.DevelopmentMode {
		return c.API.DevURL
	}
	if c.API.URL == "" {
		return ""
	}
	return c.API.URL + c.API.Endpoint + c.API.FactoryID
}

// DestinationChannel resolves the Discord channel notifications go to.
func (c *Config) DestinationChannel() string {
	if c.Monitor.DevelopmentMode {
		return c.Discord.DevChannelID
	}
	return c.Discord.ChannelID
}

// PollInterval resolves the polling cadence for the active mode.
func (c *Config) PollInterval() time.Duration {
	if c.Monitor.DevelopmentMode {
		return c.Monitor.DevInterval
	}
	return c.Monitor.Interval
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
