package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	WS        WSConfig        `yaml:"ws"`
	REST      RESTConfig      `yaml:"rest"`
	State     StateConfig     `yaml:"state"`
	Engine    EngineConfig    `yaml:"engine"`
	Exec      ExecConfig      `yaml:"exec"`
	Journal   JournalConfig   `yaml:"journal"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Timescale TimescaleConfig `yaml:"timescale"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type WSConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type RESTConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// EngineConfig carries the symbol, window shapes and signal thresholds.
// The zero value of every threshold resolves to the tuned default.
type EngineConfig struct {
	Symbol           string        `yaml:"symbol"`
	PositionSize     float64       `yaml:"position_size"`
	Depth            int           `yaml:"depth"`
	TradeWindow      time.Duration `yaml:"trade_window"`
	SkewIntervals    int           `yaml:"skew_intervals"`
	SkewInterval     time.Duration `yaml:"skew_interval"`
	EvalInterval     time.Duration `yaml:"eval_interval"`
	AskBidRatio      float64       `yaml:"ask_bid_ratio"`
	BidCollapsePct   float64       `yaml:"bid_collapse_pct"`
	SellRatio        float64       `yaml:"sell_ratio"`
	NetSellDelta     float64       `yaml:"net_sell_delta"`
	ExitVolumeRatio  float64       `yaml:"exit_volume_ratio"`
	TradeCapacity    int           `yaml:"trade_capacity"`
	BidVolumeSamples int           `yaml:"bid_volume_samples"`
}

type ExecConfig struct {
	DryRun bool `yaml:"dry_run"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

// applyEnvOverrides lets secrets live outside the config file.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		cfg.Telegram.ChatID = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.WS.URL == "" {
		cfg.WS.URL = "wss://fstream.binance.com/ws"
	}
	if cfg.WS.ReconnectDelay == 0 {
		cfg.WS.ReconnectDelay = 5 * time.Second
	}
	if cfg.WS.PingInterval == 0 {
		cfg.WS.PingInterval = 3 * time.Minute
	}
	if cfg.REST.BaseURL == "" {
		cfg.REST.BaseURL = "https://fapi.binance.com"
	}
	if cfg.REST.Timeout == 0 {
		cfg.REST.Timeout = 10 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/bnc-skew-bot.db"
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = "data/events.journal"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	ApplyEngineDefaults(&cfg.Engine)
}

// ApplyEngineDefaults fills in the tuned thresholds and window sizes.
// Exposed so the replay tool can build an engine without a config file.
func ApplyEngineDefaults(cfg *EngineConfig) {
	if cfg.Depth == 0 {
		cfg.Depth = 5
	}
	if cfg.TradeWindow == 0 {
		cfg.TradeWindow = 15 * time.Second
	}
	if cfg.SkewIntervals == 0 {
		cfg.SkewIntervals = 3
	}
	if cfg.SkewInterval == 0 {
		cfg.SkewInterval = 5 * time.Second
	}
	if cfg.EvalInterval == 0 {
		cfg.EvalInterval = 500 * time.Millisecond
	}
	if cfg.AskBidRatio == 0 {
		cfg.AskBidRatio = 1.5
	}
	if cfg.BidCollapsePct == 0 {
		cfg.BidCollapsePct = 0.4
	}
	if cfg.SellRatio == 0 {
		cfg.SellRatio = 2.5
	}
	if cfg.NetSellDelta == 0 {
		cfg.NetSellDelta = 0.4
	}
	if cfg.ExitVolumeRatio == 0 {
		cfg.ExitVolumeRatio = 2.0
	}
	if cfg.TradeCapacity == 0 {
		cfg.TradeCapacity = 1000
	}
	if cfg.BidVolumeSamples == 0 {
		cfg.BidVolumeSamples = 10
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Engine.Symbol) == "" {
		return errors.New("engine.symbol is required")
	}
	if cfg.Engine.PositionSize <= 0 {
		return errors.New("engine.position_size must be > 0")
	}
	if cfg.Engine.Depth <= 0 {
		return errors.New("engine.depth must be > 0")
	}
	if cfg.Engine.SkewIntervals <= 0 {
		return errors.New("engine.skew_intervals must be > 0")
	}
	if cfg.Telegram.Enabled && (strings.TrimSpace(cfg.Telegram.Token) == "" || strings.TrimSpace(cfg.Telegram.ChatID) == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if cfg.Timescale.Enabled && strings.TrimSpace(cfg.Timescale.DSN) == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	return nil
}
