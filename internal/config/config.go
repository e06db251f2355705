package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/pipboard/internal/alert"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/pnl"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Log       LogConfig                 `mapstructure:"log"`
	Storage   StorageConfig             `mapstructure:"storage"`
	State     StateConfig               `mapstructure:"state"`
	Schedule  ScheduleConfig            `mapstructure:"schedule"`
	Pairs     []PairConfig              `mapstructure:"pairs"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Alerts    AlertsConfig              `mapstructure:"alerts"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig selects the zap preset and optional rotating file output.
type LogConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// StorageConfig is where pages are published.
type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
	PublicURL string `mapstructure:"public_url"`
}

// StateConfig is where watermarks are kept between runs.
type StateConfig struct {
	Type string `mapstructure:"type"` // "badger" or "memory"
	Path string `mapstructure:"path"`
}

type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// PairConfig describes one dashboard.
type PairConfig struct {
	Key                 string          `mapstructure:"key"`
	Title               string          `mapstructure:"title"`
	Decimals            int             `mapstructure:"decimals"`
	TickCount           int             `mapstructure:"tick_count"`
	TradeLimit          int             `mapstructure:"trade_limit"`
	TimezoneOffsetHours int             `mapstructure:"timezone_offset_hours"`
	HomeURL             string          `mapstructure:"home_url"`
	PnL                 PnLConfig       `mapstructure:"pnl"`
	Pages               PagesConfig     `mapstructure:"pages"`
	Source              SourceConfig    `mapstructure:"source"`
	Strategies          []core.Strategy `mapstructure:"strategies"`
}

type PnLConfig struct {
	Mode string `mapstructure:"mode"` // "window" or "union"
	Days int    `mapstructure:"days"`
}

// PagesConfig holds the object keys pages are published under.
type PagesConfig struct {
	Dashboard string `mapstructure:"dashboard"`
	PnLOnly   string `mapstructure:"pnl_only"`
	Snapshot  string `mapstructure:"snapshot"`
}

// SourceConfig selects where ticks and trades are read from.
type SourceConfig struct {
	Type    string              `mapstructure:"type"` // "archive" or "sql"
	Archive ArchiveSourceConfig `mapstructure:"archive"`
	SQL     SQLSourceConfig     `mapstructure:"sql"`
}

type ArchiveSourceConfig struct {
	Type         string   `mapstructure:"type"` // "localfs" or "s3"
	Path         string   `mapstructure:"path"`
	S3           S3Config `mapstructure:"s3"`
	TicksPrefix  string   `mapstructure:"ticks_prefix"`
	TradesPrefix string   `mapstructure:"trades_prefix"`
}

type SQLSourceConfig struct {
	Driver      string            `mapstructure:"driver"` // "postgres" or "sqlite"
	DSN         string            `mapstructure:"dsn"`
	RatesTable  string            `mapstructure:"rates_table"`
	TradeTables map[string]string `mapstructure:"trade_tables"`
}

type NotifierConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIURL   string `mapstructure:"api_url"`
	URL      string `mapstructure:"url"`
	// Email notifier fields
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	// Webhook notifier fields
	Headers map[string]string `mapstructure:"headers"`
}

// Params flattens the notifier fields into the map notifiers are initialised with.
func (n NotifierConfig) Params() map[string]any {
	params := map[string]any{}
	set := func(k, v string) {
		if v != "" {
			params[k] = v
		}
	}
	set("bot_token", n.BotToken)
	set("chat_id", n.ChatID)
	set("api_url", n.APIURL)
	set("url", n.URL)
	set("host", n.Host)
	set("username", n.Username)
	set("password", n.Password)
	set("from", n.From)
	if n.Port != 0 {
		params["port"] = n.Port
	}
	if len(n.To) > 0 {
		params["to"] = n.To
	}
	if len(n.Headers) > 0 {
		params["headers"] = n.Headers
	}
	return params
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AlertsConfig holds alerts configuration.
type AlertsConfig struct {
	Enabled  bool             `mapstructure:"enabled"`
	Cooldown time.Duration    `mapstructure:"cooldown"`
	Streak   alert.StreakRule `mapstructure:"streak"`
	Rules    []alert.Rule     `mapstructure:"rules"`
	// HistorySize bounds the fired alerts kept for the API.
	HistorySize int `mapstructure:"history_size"`
}

// Load reads configuration from file. Values missing from the file keep
// their Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			v.Set(key, expandRef(val))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.applyPairDefaults()

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Storage: StorageConfig{
			Type: "localfs",
			Path: "./output",
		},
		State: StateConfig{
			Type: "badger",
			Path: "./data/state",
		},
		Schedule: ScheduleConfig{
			Interval: time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Alerts: AlertsConfig{
			Enabled:     false,
			Cooldown:    10 * time.Minute,
			Streak:      alert.DefaultStreakRule(),
			HistorySize: 1000,
		},
	}
}

// DefaultPair returns the settings of the USD/JPY dashboard.
func DefaultPair() PairConfig {
	return PairConfig{
		Key:                 "usdjpy",
		Title:               "USD/JPY",
		Decimals:            3,
		TickCount:           15,
		TradeLimit:          300,
		TimezoneOffsetHours: 2,
		PnL:                 PnLConfig{Mode: string(pnl.ModeWindow), Days: pnl.DefaultWindowDays},
		Source:              SourceConfig{Type: "archive"},
		Strategies: []core.Strategy{
			{Key: "classic", Title: "Strategia 1 – Klasyczna", Color: "rgba(255, 99, 132, 1)"},
			{Key: "anomaly", Title: "Strategia 2 – Anomalie", Color: "rgba(54, 162, 235, 1)"},
			{Key: "fractal", Title: "Strategia 3 – Fraktal + SMA", Color: "rgba(75, 192, 192, 1)"},
		},
	}
}

func (c *Config) applyPairDefaults() {
	for i := range c.Pairs {
		p := &c.Pairs[i]
		if p.Title == "" {
			p.Title = strings.ToUpper(p.Key)
		}
		if p.Decimals == 0 {
			p.Decimals = 3
		}
		if p.TickCount == 0 {
			p.TickCount = 15
		}
		if p.TradeLimit == 0 {
			p.TradeLimit = 300
		}
		if p.PnL.Mode == "" {
			p.PnL.Mode = string(pnl.ModeWindow)
		}
		if p.PnL.Days == 0 {
			p.PnL.Days = pnl.DefaultWindowDays
		}
		if p.Pages.Dashboard == "" {
			p.Pages.Dashboard = p.Key + "_dashboard_index.html"
		}
		if p.Pages.PnLOnly == "" {
			p.Pages.PnLOnly = p.Key + "_pnl_chart_only.html"
		}
		if p.Pages.Snapshot == "" {
			p.Pages.Snapshot = p.Key + "_pnl.png"
		}
		if p.Source.Type == "" {
			p.Source.Type = "archive"
		}
		if p.Source.Type == "sql" {
			if p.Source.SQL.RatesTable == "" {
				p.Source.SQL.RatesTable = p.Key + "_rates"
			}
			if p.Source.SQL.TradeTables == nil {
				p.Source.SQL.TradeTables = make(map[string]string, len(p.Strategies))
			}
			for _, s := range p.Strategies {
				if _, ok := p.Source.SQL.TradeTables[s.Key]; !ok {
					p.Source.SQL.TradeTables[s.Key] = p.Key + "_" + s.Key + "_trades"
				}
			}
		}
		// list entries are not visited by the key walk in Load
		p.Source.SQL.DSN = expandRef(p.Source.SQL.DSN)
		p.Source.Archive.S3.AccessKey = expandRef(p.Source.Archive.S3.AccessKey)
		p.Source.Archive.S3.SecretKey = expandRef(p.Source.Archive.S3.SecretKey)
	}
}

// expandRef resolves a whole-value "${NAME}" reference from the environment.
func expandRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}"))
	}
	return val
}

// Pair returns the configured pair with the given key.
func (c *Config) Pair(key string) (PairConfig, bool) {
	for _, p := range c.Pairs {
		if p.Key == key {
			return p, true
		}
	}
	return PairConfig{}, false
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if err := validateStore("storage", c.Storage.Type, c.Storage.Path, c.Storage.S3.Bucket); err != nil {
		return err
	}

	switch c.State.Type {
	case "memory":
	case "badger":
		if c.State.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("state path required for badger"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown state type %q", c.State.Type))
	}

	if c.Schedule.Interval < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("schedule interval cannot be negative, got %s", c.Schedule.Interval))
	}

	if len(c.Pairs) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("at least one pair is required"))
	}
	seen := make(map[string]bool, len(c.Pairs))
	for _, p := range c.Pairs {
		if seen[p.Key] {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("duplicate pair %q", p.Key))
		}
		seen[p.Key] = true
		if err := p.Validate(); err != nil {
			return err
		}
	}

	if c.Alerts.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("alert cooldown cannot be negative, got %s", c.Alerts.Cooldown))
	}
	for i := range c.Alerts.Rules {
		if err := c.Alerts.Rules[i].Validate(); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}

	return nil
}

// Validate checks a single pair.
func (p PairConfig) Validate() error {
	if p.Key == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("pair key is required"))
	}
	if p.Decimals < 0 || p.Decimals > 8 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("pair %s: decimals must be between 0 and 8, got %d", p.Key, p.Decimals))
	}
	if p.TickCount < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("pair %s: tick_count must be positive, got %d", p.Key, p.TickCount))
	}
	if p.TimezoneOffsetHours < -12 || p.TimezoneOffsetHours > 14 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("pair %s: timezone_offset_hours out of range, got %d", p.Key, p.TimezoneOffsetHours))
	}
	switch pnl.Mode(p.PnL.Mode) {
	case pnl.ModeWindow, pnl.ModeUnion:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("pair %s: unknown pnl mode %q", p.Key, p.PnL.Mode))
	}
	if len(p.Strategies) == 0 {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("pair %s: at least one strategy is required", p.Key))
	}
	for _, s := range p.Strategies {
		if s.Key == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("pair %s: strategy key is required", p.Key))
		}
	}

	switch p.Source.Type {
	case "archive":
		a := p.Source.Archive
		return validateStore("pair "+p.Key+" source", a.Type, a.Path, a.S3.Bucket)
	case "sql":
		if p.Source.SQL.DSN == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("pair %s: sql dsn is required", p.Key))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("pair %s: unknown source type %q", p.Key, p.Source.Type))
	}
	return nil
}

// Location is the fixed-offset zone tick labels are shown in.
func (p PairConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", p.TimezoneOffsetHours), p.TimezoneOffsetHours*3600)
}

func validateStore(what, typ, path, bucket string) error {
	switch typ {
	case "localfs":
		if path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("%s: path required for localfs", what))
		}
	case "s3":
		if bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("%s: bucket required for s3", what))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("%s: unknown type %q", what, typ))
	}
	return nil
}
