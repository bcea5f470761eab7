package config

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeTestnet Mode = "testnet"
	ModeLive    Mode = "live"
)

const (
	EnvAPIKey    = "BINANCE_API_KEY"
	EnvAPISecret = "BINANCE_API_SECRET"
)

type Config struct {
	Mode       Mode           `yaml:"mode"`
	InstanceID string         `yaml:"instance_id"`
	Trade      TradeConfig    `yaml:"trade"`
	Exchange   ExchangeConfig `yaml:"exchange"`
	Logging    LoggingConfig  `yaml:"logging"`
	Telegram   TelegramConfig `yaml:"telegram"`
}

// TradeConfig holds the prompt defaults shown by the interactive menu.
type TradeConfig struct {
	DefaultSymbol   string  `yaml:"default_symbol"`
	DefaultQuantity Decimal `yaml:"default_quantity"`
}

type ExchangeConfig struct {
	APIKey             string `yaml:"api_key"`
	APISecret          string `yaml:"api_secret"`
	RestBaseURL        string `yaml:"rest_base_url"`
	StreamBaseURL      string `yaml:"stream_base_url"`
	RecvWindowMs       int64  `yaml:"recv_window_ms"`
	HTTPTimeoutSec     int64  `yaml:"http_timeout_sec"`
	StreamKeepaliveSec int64  `yaml:"stream_keepalive_sec"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

type TelegramConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BotToken   string `yaml:"bot_token"`
	ChatID     string `yaml:"chat_id"`
	APIBaseURL string `yaml:"api_base_url"`
	TimeoutSec int64  `yaml:"timeout_sec"`
}

// Load reads the optional YAML config file, overlays credentials from the
// environment (a .env file is honored when present), applies defaults, and
// validates the result. A missing config file is not an error: the terminal
// can run from environment variables alone.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			if err := dec.Decode(&cfg); err != nil {
				return Config{}, err
			}
			if err := dec.Decode(&struct{}{}); err != io.EOF {
				if err == nil {
					return Config{}, fmt.Errorf("config must contain a single YAML document")
				}
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}
	cfg.loadCredentialsFromEnv()
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadCredentialsFromEnv() {
	// Best effort only: a missing .env just means the variables are expected
	// to be set in the process environment already.
	_ = godotenv.Load()
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.Exchange.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPISecret)); v != "" {
		c.Exchange.APISecret = v
	}
}

func (c *Config) normalize() {
	c.Mode = Mode(strings.ToLower(strings.TrimSpace(string(c.Mode))))
	c.InstanceID = strings.ToLower(strings.TrimSpace(c.InstanceID))
	c.Trade.DefaultSymbol = strings.ToUpper(strings.TrimSpace(c.Trade.DefaultSymbol))
	c.Exchange.APIKey = strings.TrimSpace(c.Exchange.APIKey)
	c.Exchange.APISecret = strings.TrimSpace(c.Exchange.APISecret)
	c.Exchange.RestBaseURL = strings.TrimSpace(c.Exchange.RestBaseURL)
	c.Exchange.StreamBaseURL = strings.TrimSpace(c.Exchange.StreamBaseURL)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.FilePath = strings.TrimSpace(c.Logging.FilePath)
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	c.Telegram.ChatID = strings.TrimSpace(c.Telegram.ChatID)
	c.Telegram.APIBaseURL = strings.TrimSpace(c.Telegram.APIBaseURL)
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeTestnet
	}
	if c.InstanceID == "" {
		c.InstanceID = "default"
	}
	if c.Trade.DefaultSymbol == "" {
		c.Trade.DefaultSymbol = "BTCUSDT"
	}
	if c.Trade.DefaultQuantity.Cmp(decimal.Zero) == 0 {
		c.Trade.DefaultQuantity = Decimal{decimal.RequireFromString("0.001")}
	}
	if c.Exchange.RecvWindowMs == 0 {
		c.Exchange.RecvWindowMs = 5000
	}
	if c.Exchange.HTTPTimeoutSec == 0 {
		c.Exchange.HTTPTimeoutSec = 15
	}
	if c.Exchange.StreamKeepaliveSec == 0 {
		c.Exchange.StreamKeepaliveSec = 30
	}
	if c.Exchange.RestBaseURL == "" {
		switch c.Mode {
		case ModeTestnet:
			c.Exchange.RestBaseURL = "https://testnet.binancefuture.com"
		case ModeLive:
			c.Exchange.RestBaseURL = "https://fapi.binance.com"
		}
	}
	if c.Exchange.StreamBaseURL == "" {
		switch c.Mode {
		case ModeTestnet:
			c.Exchange.StreamBaseURL = "wss://stream.binancefuture.com"
		case ModeLive:
			c.Exchange.StreamBaseURL = "wss://fstream.binance.com"
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/futures_term.log"
	}
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = "https://api.telegram.org"
	}
	if c.Telegram.TimeoutSec == 0 {
		c.Telegram.TimeoutSec = 10
	}
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeTestnet, ModeLive:
	default:
		return fmt.Errorf("mode must be testnet or live")
	}
	if !isValidInstanceID(c.InstanceID) {
		return fmt.Errorf("instance_id must match [a-z0-9_-], length 1..24")
	}
	if !IsValidSymbol(c.Trade.DefaultSymbol) {
		return fmt.Errorf("trade.default_symbol must match [A-Z0-9], length 6..20")
	}
	if c.Trade.DefaultQuantity.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("trade.default_quantity must be > 0")
	}
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("api credentials are required: set %s and %s", EnvAPIKey, EnvAPISecret)
	}
	if c.Exchange.RecvWindowMs < 1 || c.Exchange.RecvWindowMs > 60000 {
		return fmt.Errorf("exchange.recv_window_ms must be between 1 and 60000")
	}
	if c.Exchange.HTTPTimeoutSec < 1 || c.Exchange.HTTPTimeoutSec > 120 {
		return fmt.Errorf("exchange.http_timeout_sec must be between 1 and 120")
	}
	if c.Exchange.StreamKeepaliveSec < 1 || c.Exchange.StreamKeepaliveSec > 300 {
		return fmt.Errorf("exchange.stream_keepalive_sec must be between 1 and 300")
	}
	if err := validateURL(c.Exchange.RestBaseURL, "http", "https"); err != nil {
		return fmt.Errorf("exchange.rest_base_url %v", err)
	}
	if err := validateURL(c.Exchange.StreamBaseURL, "ws", "wss"); err != nil {
		return fmt.Errorf("exchange.stream_base_url %v", err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram enabled")
		}
		if c.Telegram.TimeoutSec < 1 || c.Telegram.TimeoutSec > 120 {
			return fmt.Errorf("telegram.timeout_sec must be between 1 and 120")
		}
		if err := validateURL(c.Telegram.APIBaseURL, "http", "https"); err != nil {
			return fmt.Errorf("telegram.api_base_url %v", err)
		}
	}
	return nil
}

func isValidInstanceID(v string) bool {
	if len(v) < 1 || len(v) > 24 {
		return false
	}
	for _, r := range v {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			continue
		}
		return false
	}
	return true
}

// IsValidSymbol reports whether v looks like a Binance futures symbol. The CLI
// reuses this to validate user input before any request goes out.
func IsValidSymbol(v string) bool {
	if len(v) < 6 || len(v) > 20 {
		return false
	}
	for _, r := range v {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("must include scheme and host")
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
}
