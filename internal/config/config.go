package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	defaultVaultAddress         = "0x489ee077994B6658eAfA855C308275EAd8097C4A"
	defaultGlpManagerAddress    = "0x3963FfC9dff443c2A94f21b129D429891E32ec18"
	defaultShortsTrackerAddress = "0xf58eEc83Ba28ddd79390B9e90C4d3EbfF1d434da"
	defaultStakedGlpAddress     = "0x1aDDD80E6039594eE970E5872D247bf0414C8903"
	defaultFeeGlpTracker        = "0x4e971a87900b931fF39d1Aad67697F49835400b6"
	defaultStakedGlpTracker     = "0x1aDDD80E6039594eE970E5872D247bf0414C8903"
	defaultNativeToken          = "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Chain     ChainConfig     `yaml:"chain"`
	Binance   BinanceConfig   `yaml:"binance"`
	Hedge     HedgeConfig     `yaml:"hedge"`
	State     StateConfig     `yaml:"state"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type ChainConfig struct {
	RPCURL    string          `yaml:"rpc_url"`
	Timeout   time.Duration   `yaml:"timeout"`
	Account   string          `yaml:"account"`
	Contracts ContractsConfig `yaml:"contracts"`
}

type ContractsConfig struct {
	Vault            string `yaml:"vault"`
	GlpManager       string `yaml:"glp_manager"`
	ShortsTracker    string `yaml:"shorts_tracker"`
	ShareToken       string `yaml:"share_token"`
	FeeRewardTracker string `yaml:"fee_reward_tracker"`
	StakedTracker    string `yaml:"staked_tracker"`
	NativeToken      string `yaml:"native_token"`
}

type BinanceConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	APIKey            string        `yaml:"-"`
	APISecret         string        `yaml:"-"`
	MarginType        string        `yaml:"margin_type"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

type HedgeConfig struct {
	MinLeverage        float64       `yaml:"min_leverage"`
	TargetLeverage     float64       `yaml:"target_leverage"`
	MaxLeverage        float64       `yaml:"max_leverage"`
	HedgeBuffer        float64       `yaml:"hedge_buffer"`
	MarginAddFactor    float64       `yaml:"margin_add_factor"`
	MarginRemoveFactor float64       `yaml:"margin_remove_factor"`
	Interval           time.Duration `yaml:"interval"`
	Tokens             []string      `yaml:"tokens"`
	DryRun             bool          `yaml:"dry_run"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueueSize       int           `yaml:"queue_size"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

func (m MetricsConfig) EnabledValue() bool {
	return m.Enabled != nil && *m.Enabled
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
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
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File != "" {
		if cfg.Log.MaxSizeMB == 0 {
			cfg.Log.MaxSizeMB = 100
		}
		if cfg.Log.MaxBackups == 0 {
			cfg.Log.MaxBackups = 5
		}
		if cfg.Log.MaxAgeDays == 0 {
			cfg.Log.MaxAgeDays = 30
		}
	}
	if cfg.Chain.RPCURL == "" {
		cfg.Chain.RPCURL = "https://arb1.arbitrum.io/rpc"
	}
	if cfg.Chain.Timeout == 0 {
		cfg.Chain.Timeout = 10 * time.Second
	}
	contracts := &cfg.Chain.Contracts
	setDefault(&contracts.Vault, defaultVaultAddress)
	setDefault(&contracts.GlpManager, defaultGlpManagerAddress)
	setDefault(&contracts.ShortsTracker, defaultShortsTrackerAddress)
	setDefault(&contracts.ShareToken, defaultStakedGlpAddress)
	setDefault(&contracts.FeeRewardTracker, defaultFeeGlpTracker)
	setDefault(&contracts.StakedTracker, defaultStakedGlpTracker)
	setDefault(&contracts.NativeToken, defaultNativeToken)
	if cfg.Binance.BaseURL == "" {
		cfg.Binance.BaseURL = "https://fapi.binance.com"
	}
	if cfg.Binance.Timeout == 0 {
		cfg.Binance.Timeout = 10 * time.Second
	}
	if cfg.Binance.MarginType == "" {
		cfg.Binance.MarginType = "ISOLATED"
	}
	if cfg.Binance.RequestsPerSecond == 0 {
		cfg.Binance.RequestsPerSecond = 10
	}
	if cfg.Binance.Burst == 0 {
		cfg.Binance.Burst = 5
	}
	if cfg.Hedge.MinLeverage == 0 {
		cfg.Hedge.MinLeverage = 5
	}
	if cfg.Hedge.TargetLeverage == 0 {
		cfg.Hedge.TargetLeverage = 6
	}
	if cfg.Hedge.MaxLeverage == 0 {
		cfg.Hedge.MaxLeverage = 7
	}
	if cfg.Hedge.HedgeBuffer == 0 {
		cfg.Hedge.HedgeBuffer = 0.005
	}
	if cfg.Hedge.MarginAddFactor == 0 {
		cfg.Hedge.MarginAddFactor = 1.01
	}
	if cfg.Hedge.MarginRemoveFactor == 0 {
		cfg.Hedge.MarginRemoveFactor = 0.99
	}
	if cfg.Hedge.Interval == 0 {
		cfg.Hedge.Interval = 5 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/glp-hedge-bot.db"
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
	if cfg.Timescale.QueueSize == 0 {
		cfg.Timescale.QueueSize = 256
	}
	if cfg.Metrics.Enabled == nil {
		enabled := true
		cfg.Metrics.Enabled = &enabled
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9001"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ACCOUNT_ADDRESS")); v != "" {
		cfg.Chain.Account = v
	}
	if v := strings.TrimSpace(os.Getenv("BINANCE_API_KEY")); v != "" {
		cfg.Binance.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("BINANCE_API_SECRET")); v != "" {
		cfg.Binance.APISecret = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv("TIMESCALE_DSN")); v != "" {
		cfg.Timescale.DSN = v
	}
}

func validate(cfg *Config) error {
	if cfg.Chain.Account == "" {
		return errors.New("chain.account (or ACCOUNT_ADDRESS) is required")
	}
	if !common.IsHexAddress(cfg.Chain.Account) {
		return fmt.Errorf("chain.account %q is not a hex address", cfg.Chain.Account)
	}
	if cfg.Chain.Timeout < 0 {
		return errors.New("chain.timeout must be >= 0")
	}
	c := cfg.Chain.Contracts
	for _, field := range []struct{ name, addr string }{
		{"vault", c.Vault},
		{"glp_manager", c.GlpManager},
		{"shorts_tracker", c.ShortsTracker},
		{"share_token", c.ShareToken},
		{"fee_reward_tracker", c.FeeRewardTracker},
		{"staked_tracker", c.StakedTracker},
		{"native_token", c.NativeToken},
	} {
		if !common.IsHexAddress(field.addr) {
			return fmt.Errorf("chain.contracts.%s %q is not a hex address", field.name, field.addr)
		}
	}
	if !cfg.Hedge.DryRun && (cfg.Binance.APIKey == "" || cfg.Binance.APISecret == "") {
		return errors.New("BINANCE_API_KEY and BINANCE_API_SECRET are required unless hedge.dry_run is set")
	}
	switch strings.ToUpper(cfg.Binance.MarginType) {
	case "ISOLATED", "CROSSED":
	default:
		return fmt.Errorf("binance.margin_type must be ISOLATED or CROSSED, got %q", cfg.Binance.MarginType)
	}
	if cfg.Binance.RequestsPerSecond < 0 || cfg.Binance.Burst < 0 {
		return errors.New("binance.requests_per_second and binance.burst must be >= 0")
	}
	h := cfg.Hedge
	if h.MinLeverage <= 0 {
		return errors.New("hedge.min_leverage must be > 0")
	}
	if !(h.MinLeverage < h.TargetLeverage && h.TargetLeverage < h.MaxLeverage) {
		return fmt.Errorf("hedge leverage must satisfy min < target < max (got %v < %v < %v)",
			h.MinLeverage, h.TargetLeverage, h.MaxLeverage)
	}
	if h.HedgeBuffer <= 0 {
		return errors.New("hedge.hedge_buffer must be > 0")
	}
	if h.Interval <= 0 {
		return errors.New("hedge.interval must be > 0")
	}
	if h.MarginAddFactor < 1 {
		return errors.New("hedge.margin_add_factor must be >= 1")
	}
	if h.MarginRemoveFactor <= 0 || h.MarginRemoveFactor > 1 {
		return errors.New("hedge.margin_remove_factor must be in (0, 1]")
	}
	if cfg.Timescale.Enabled && strings.TrimSpace(cfg.Timescale.DSN) == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	if cfg.Metrics.Path != "" && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	return nil
}
