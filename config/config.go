package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/risk"
)

// Config represents the complete paper trading configuration
type Config struct {
	Account AccountConfig `json:"account" yaml:"account" toml:"account"`
	Feed    FeedConfig    `json:"feed" yaml:"feed" toml:"feed"`
	Risk    RiskConfig    `json:"risk" yaml:"risk" toml:"risk"`
	Journal JournalConfig `json:"journal" yaml:"journal" toml:"journal"`
	Server  ServerConfig  `json:"server" yaml:"server" toml:"server"`
	Log     LogConfig     `json:"log" yaml:"log" toml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id" toml:"id"`
	Currency string  `json:"currency" yaml:"currency" toml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance" toml:"balance"`
}

// FeedConfig drives the simulated price feed.
type FeedConfig struct {
	Interval    Duration            `json:"interval" yaml:"interval" toml:"interval"`
	MaxStep     float64             `json:"max_step" yaml:"max_step" toml:"max_step"`
	Seed        int64               `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed"` // 0 seeds from the clock
	Instruments []market.Instrument `json:"instruments" yaml:"instruments" toml:"instruments"`
}

// RiskConfig selects where volatility and correlation come from.
type RiskConfig struct {
	Source          string             `json:"source" yaml:"source" toml:"source"` // "static" or "redis"
	Volatility      map[string]float64 `json:"volatility,omitempty" yaml:"volatility,omitempty" toml:"volatility"`
	Correlation     map[string]float64 `json:"correlation,omitempty" yaml:"correlation,omitempty" toml:"correlation"`
	Timeout         Duration           `json:"timeout" yaml:"timeout" toml:"timeout"`
	RefreshInterval Duration           `json:"refresh_interval" yaml:"refresh_interval" toml:"refresh_interval"`
	Redis           risk.RedisConfig   `json:"redis" yaml:"redis" toml:"redis"`
	Policy          risk.Policy        `json:"policy" yaml:"policy" toml:"policy"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type          string   `json:"type" yaml:"type" toml:"type"` // "none", "csv", "sqlite", "kafka" or a comma list like "sqlite,kafka"
	PositionsFile string   `json:"positions_file,omitempty" yaml:"positions_file,omitempty" toml:"positions_file"`
	EquityFile    string   `json:"equity_file,omitempty" yaml:"equity_file,omitempty" toml:"equity_file"`
	DBPath        string   `json:"db_path,omitempty" yaml:"db_path,omitempty" toml:"db_path"`
	Brokers       []string `json:"brokers,omitempty" yaml:"brokers,omitempty" toml:"brokers"`
	Topic         string   `json:"topic,omitempty" yaml:"topic,omitempty" toml:"topic"`
}

// Types splits Type into its journal kinds, lower-cased and trimmed.
func (j JournalConfig) Types() []string {
	var out []string
	for _, t := range strings.Split(j.Type, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"` // "text" or "json"
}

// Duration wraps time.Duration so config files can say "5s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load returns Default() with the file at path merged on top (if path is
// not empty) and PAPERTRADE_* environment overrides applied. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file. Files ending in .toml are
// decoded as TOML; anything else is tried as YAML, then JSON.
func LoadFromFile(path string) (*Config, error) {
	return Load(path)
}

func decodeFile(path string, cfg *Config) error {
	if isExt(path, ".toml") {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("parse config (toml): %w", err)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}
	return nil
}

// SaveToFile writes YAML for .yaml/.yml, TOML for .toml and indented JSON
// otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch {
	case isExt(path, ".yaml", ".yml"):
		data, err = yaml.Marshal(c)
	case isExt(path, ".toml"):
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		data = buf.Bytes()
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func isExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance < 0 {
		return fmt.Errorf("account.balance must not be negative")
	}

	if c.Feed.Interval.Duration <= 0 {
		return fmt.Errorf("feed.interval must be positive")
	}
	if c.Feed.MaxStep <= 0 || c.Feed.MaxStep >= 1 {
		return fmt.Errorf("feed.max_step must be between 0 and 1")
	}
	if len(c.Feed.Instruments) == 0 {
		return fmt.Errorf("feed.instruments is required")
	}
	seen := make(map[string]bool, len(c.Feed.Instruments))
	for _, in := range c.Feed.Instruments {
		if in.Symbol == "" {
			return fmt.Errorf("feed.instruments: symbol is required")
		}
		if seen[in.Symbol] {
			return fmt.Errorf("feed.instruments: duplicate symbol %s", in.Symbol)
		}
		seen[in.Symbol] = true
		if in.Seed <= 0 {
			return fmt.Errorf("feed.instruments: %s seed must be positive", in.Symbol)
		}
	}

	switch c.Risk.Source {
	case "static":
	case "redis":
		if c.Risk.Redis.Addr == "" {
			return fmt.Errorf("risk.redis.addr required for redis source")
		}
	default:
		return fmt.Errorf("risk.source must be 'static' or 'redis'")
	}
	if c.Risk.Timeout.Duration <= 0 {
		return fmt.Errorf("risk.timeout must be positive")
	}
	if c.Risk.RefreshInterval.Duration <= 0 {
		return fmt.Errorf("risk.refresh_interval must be positive")
	}
	if p := c.Risk.Policy.MaxRiskPct; p < 0 || p > 1 {
		return fmt.Errorf("risk.policy.max_risk_pct must be between 0 and 1")
	}

	types := c.Journal.Types()
	if len(types) == 0 {
		return fmt.Errorf("journal.type must be 'none', 'csv', 'sqlite' or 'kafka'")
	}
	for _, typ := range types {
		switch typ {
		case "none":
			if len(types) > 1 {
				return fmt.Errorf("journal.type 'none' cannot be combined")
			}
		case "csv":
			if c.Journal.PositionsFile == "" || c.Journal.EquityFile == "" {
				return fmt.Errorf("journal positions_file and equity_file required for CSV type")
			}
		case "sqlite":
			if c.Journal.DBPath == "" {
				return fmt.Errorf("journal db_path required for SQLite type")
			}
		case "kafka":
			if len(c.Journal.Brokers) == 0 || c.Journal.Topic == "" {
				return fmt.Errorf("journal brokers and topic required for Kafka type")
			}
		default:
			return fmt.Errorf("journal.type must be 'none', 'csv', 'sqlite' or 'kafka'")
		}
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	instruments := make([]market.Instrument, len(market.DefaultInstruments))
	copy(instruments, market.DefaultInstruments)

	return &Config{
		Account: AccountConfig{
			ID:       "PAPER-001",
			Currency: "USD",
			Balance:  100000,
		},
		Feed: FeedConfig{
			Interval:    Duration{5 * time.Second},
			MaxStep:     0.005,
			Instruments: instruments,
		},
		Risk: RiskConfig{
			Source:          "static",
			Timeout:         Duration{2 * time.Second},
			RefreshInterval: Duration{30 * time.Second},
			Redis: risk.RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "risk:",
			},
			Policy: risk.DefaultPolicy(),
		},
		Journal: JournalConfig{
			Type:          "csv",
			PositionsFile: "./positions.csv",
			EquityFile:    "./equity.csv",
			Topic:         "papertrade.journal",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
