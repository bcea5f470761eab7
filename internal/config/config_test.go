package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func setTestCredentials(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAPIKey, "test-key")
	t.Setenv(EnvAPISecret, "test-secret")
}

func TestLoadAppliesTestnetDefaults(t *testing.T) {
	setTestCredentials(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mode != ModeTestnet {
		t.Fatalf("mode = %q, want %q", cfg.Mode, ModeTestnet)
	}
	if cfg.Exchange.RestBaseURL != "https://testnet.binancefuture.com" {
		t.Fatalf("rest_base_url = %q, want testnet default", cfg.Exchange.RestBaseURL)
	}
	if cfg.Exchange.StreamBaseURL != "wss://stream.binancefuture.com" {
		t.Fatalf("stream_base_url = %q, want testnet default", cfg.Exchange.StreamBaseURL)
	}
	if cfg.Exchange.RecvWindowMs != 5000 {
		t.Fatalf("recv_window_ms = %d, want 5000", cfg.Exchange.RecvWindowMs)
	}
	if cfg.Trade.DefaultSymbol != "BTCUSDT" {
		t.Fatalf("default_symbol = %q, want BTCUSDT", cfg.Trade.DefaultSymbol)
	}
	if !cfg.Trade.DefaultQuantity.Equal(decimal.RequireFromString("0.001")) {
		t.Fatalf("default_quantity = %s, want 0.001", cfg.Trade.DefaultQuantity)
	}
	if cfg.Logging.FilePath != "logs/futures_term.log" {
		t.Fatalf("logging.file_path = %q, want logs/futures_term.log", cfg.Logging.FilePath)
	}
	if cfg.Exchange.APIKey != "test-key" || cfg.Exchange.APISecret != "test-secret" {
		t.Fatalf("credentials not taken from environment")
	}
}

func TestLoadEnvOverridesFileCredentials(t *testing.T) {
	setTestCredentials(t)
	path := writeTempConfig(t, `
exchange:
  api_key: from-file
  api_secret: from-file
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Exchange.APIKey != "test-key" {
		t.Fatalf("api_key = %q, want env override", cfg.Exchange.APIKey)
	}
}

func TestLoadLiveModeURLs(t *testing.T) {
	setTestCredentials(t)
	path := writeTempConfig(t, "mode: live\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Exchange.RestBaseURL != "https://fapi.binance.com" {
		t.Fatalf("rest_base_url = %q, want live default", cfg.Exchange.RestBaseURL)
	}
	if cfg.Exchange.StreamBaseURL != "wss://fstream.binance.com" {
		t.Fatalf("stream_base_url = %q, want live default", cfg.Exchange.StreamBaseURL)
	}
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvAPISecret, "")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("Load() error = %v, want credentials error", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	setTestCredentials(t)
	path := writeTempConfig(t, "not_a_field: 1\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("Load() should reject unknown fields")
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	setTestCredentials(t)
	path := writeTempConfig(t, "mode: paper\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "mode") {
		t.Fatalf("Load() error = %v, want mode error", err)
	}
}

func TestLoadRejectsBadStreamScheme(t *testing.T) {
	setTestCredentials(t)
	path := writeTempConfig(t, `
exchange:
  stream_base_url: https://stream.binancefuture.com
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "stream_base_url") {
		t.Fatalf("Load() error = %v, want stream_base_url error", err)
	}
}

func TestLoadTelegramRequiresToken(t *testing.T) {
	setTestCredentials(t)
	path := writeTempConfig(t, `
telegram:
  enabled: true
  chat_id: "123"
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "bot_token") {
		t.Fatalf("Load() error = %v, want bot_token error", err)
	}
}

func TestIsValidSymbol(t *testing.T) {
	valid := []string{"BTCUSDT", "1000PEPEUSDT", "ETHUSDT"}
	for _, s := range valid {
		if !IsValidSymbol(s) {
			t.Fatalf("IsValidSymbol(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "btc", "BTC/USDT", "BTC", strings.Repeat("A", 21)}
	for _, s := range invalid {
		if IsValidSymbol(s) {
			t.Fatalf("IsValidSymbol(%q) = true, want false", s)
		}
	}
}
