package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testAccount = "0x1111111111111111111111111111111111111111"

func validConfig() *Config {
	cfg := &Config{
		Chain:   ChainConfig{Account: testAccount},
		Binance: BinanceConfig{APIKey: "key", APISecret: "secret"},
	}
	applyDefaults(cfg)
	return cfg
}

func TestHedgeDefaults(t *testing.T) {
	cfg := validConfig()
	if cfg.Hedge.MinLeverage != 5 || cfg.Hedge.TargetLeverage != 6 || cfg.Hedge.MaxLeverage != 7 {
		t.Fatalf("unexpected leverage defaults %+v", cfg.Hedge)
	}
	if cfg.Hedge.HedgeBuffer != 0.005 {
		t.Fatalf("expected hedge buffer 0.005, got %v", cfg.Hedge.HedgeBuffer)
	}
	if cfg.Hedge.Interval != 5*time.Second {
		t.Fatalf("expected interval 5s, got %v", cfg.Hedge.Interval)
	}
	if cfg.Hedge.MarginAddFactor != 1.01 || cfg.Hedge.MarginRemoveFactor != 0.99 {
		t.Fatalf("unexpected margin factors %+v", cfg.Hedge)
	}
	if cfg.Binance.MarginType != "ISOLATED" {
		t.Fatalf("expected ISOLATED margin type, got %q", cfg.Binance.MarginType)
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestContractDefaults(t *testing.T) {
	cfg := validConfig()
	if cfg.Chain.Contracts.Vault != defaultVaultAddress {
		t.Fatalf("expected default vault, got %q", cfg.Chain.Contracts.Vault)
	}
	if cfg.Chain.Contracts.NativeToken != defaultNativeToken {
		t.Fatalf("expected default native token, got %q", cfg.Chain.Contracts.NativeToken)
	}
}

func TestMetricsDefaults(t *testing.T) {
	cfg := validConfig()
	if cfg.Metrics.Enabled == nil || !cfg.Metrics.EnabledValue() {
		t.Fatalf("expected metrics enabled default")
	}
	if cfg.Metrics.Address != "127.0.0.1:9001" {
		t.Fatalf("expected metrics address default, got %q", cfg.Metrics.Address)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Fatalf("expected metrics path default, got %q", cfg.Metrics.Path)
	}
}

func TestMetricsEnabledFalseRespected(t *testing.T) {
	enabled := false
	cfg := &Config{Metrics: MetricsConfig{Enabled: &enabled}}
	applyDefaults(cfg)
	if cfg.Metrics.EnabledValue() {
		t.Fatalf("expected metrics enabled=false to be preserved")
	}
}

func TestLogRotationDefaultsOnlyWithFile(t *testing.T) {
	cfg := validConfig()
	if cfg.Log.MaxSizeMB != 0 {
		t.Fatalf("expected no rotation defaults without file, got %d", cfg.Log.MaxSizeMB)
	}
	cfg = &Config{Log: LoggingConfig{File: "logs/bot.log"}}
	applyDefaults(cfg)
	if cfg.Log.MaxSizeMB <= 0 || cfg.Log.MaxBackups <= 0 || cfg.Log.MaxAgeDays <= 0 {
		t.Fatalf("expected rotation defaults, got %+v", cfg.Log)
	}
}

func TestValidateRejectsLeverageOrder(t *testing.T) {
	cfg := validConfig()
	cfg.Hedge.TargetLeverage = 7
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for target == max leverage")
	}
	cfg = validConfig()
	cfg.Hedge.MinLeverage = 6
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for min == target leverage")
	}
}

func TestValidateRejectsNonPositiveBufferAndInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Hedge.HedgeBuffer = -0.1
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for negative hedge buffer")
	}
	cfg = validConfig()
	cfg.Hedge.Interval = -time.Second
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for negative interval")
	}
}

func TestValidateRequiresAccount(t *testing.T) {
	cfg := validConfig()
	cfg.Chain.Account = ""
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for missing account")
	}
	cfg.Chain.Account = "not-an-address"
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for malformed account")
	}
}

func TestValidateRequiresAPIKeysUnlessDryRun(t *testing.T) {
	cfg := validConfig()
	cfg.Binance.APIKey = ""
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for missing api key")
	}
	cfg.Hedge.DryRun = true
	if err := validate(cfg); err != nil {
		t.Fatalf("expected dry run without keys to validate, got %v", err)
	}
}

func TestValidateRejectsMetricsPathWithoutSlash(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Path = "metrics"
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for metrics path without leading slash")
	}
}

func TestValidateRejectsTimescaleWithoutDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Timescale.Enabled = true
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for timescale without dsn")
	}
}

func TestValidateRejectsTelegramEnabledWithoutConfig(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	cfg := validConfig()
	cfg.Telegram.Enabled = true
	applyEnvOverrides(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for missing telegram token/chat_id")
	}
}

func TestEnvOverridesConfig(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "123")
	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("BINANCE_API_SECRET", "env-secret")
	t.Setenv("ACCOUNT_ADDRESS", "0x2222222222222222222222222222222222222222")
	t.Setenv("RPC_URL", "https://rpc.example")
	t.Setenv("TIMESCALE_DSN", "")
	cfg := &Config{Telegram: TelegramConfig{Enabled: true, Token: "config-token", ChatID: "999"}}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if cfg.Telegram.Token != "env-token" || cfg.Telegram.ChatID != "123" {
		t.Fatalf("expected telegram env override, got %+v", cfg.Telegram)
	}
	if cfg.Binance.APIKey != "env-key" || cfg.Binance.APISecret != "env-secret" {
		t.Fatalf("expected binance env override")
	}
	if cfg.Chain.RPCURL != "https://rpc.example" {
		t.Fatalf("expected rpc override, got %q", cfg.Chain.RPCURL)
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("expected valid config with env overrides, got %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("BINANCE_API_SECRET", "")
	t.Setenv("ACCOUNT_ADDRESS", "")
	t.Setenv("RPC_URL", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("TIMESCALE_DSN", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "" +
		"chain:\n" +
		"  account: " + testAccount + "\n" +
		"hedge:\n" +
		"  interval: 30s\n" +
		"  hedge_buffer: 0.01\n" +
		"  dry_run: true\n" +
		"  tokens: [WETH, WBTC]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hedge.Interval != 30*time.Second || cfg.Hedge.HedgeBuffer != 0.01 {
		t.Fatalf("unexpected hedge config %+v", cfg.Hedge)
	}
	if len(cfg.Hedge.Tokens) != 2 || cfg.Hedge.Tokens[1] != "WBTC" {
		t.Fatalf("unexpected tokens %v", cfg.Hedge.Tokens)
	}
}

func TestLoadRequiresPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
