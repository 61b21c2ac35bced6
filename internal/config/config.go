package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"donation-tracker/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Explorer  ExplorerConfig  `mapstructure:"explorer"`
	Campaign  CampaignConfig  `mapstructure:"campaign"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Chain     ChainConfig     `mapstructure:"chain"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ExplorerConfig points at the block explorer query API.
type ExplorerConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	ChainID         int64         `mapstructure:"chain_id"`
	APIKey          string        `mapstructure:"api_key"`
	ContractAddress string        `mapstructure:"contract_address"`
	WalletAddress   string        `mapstructure:"wallet_address"`
	StartBlock      uint64        `mapstructure:"start_block"`
	EndBlock        uint64        `mapstructure:"end_block"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// CampaignConfig holds display-only campaign settings.
type CampaignConfig struct {
	Goal         float64 `mapstructure:"goal"`
	Symbol       string  `mapstructure:"symbol"`
	DisplayLimit int     `mapstructure:"display_limit"`
	// ExplorerTxURL prefixes transaction hashes in links.
	ExplorerTxURL string `mapstructure:"explorer_tx_url"`
}

// CacheConfig selects the local cache medium and its time-to-live.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// SchedulerConfig governs the refresh cadence. The interval is the cache TTL.
type SchedulerConfig struct {
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the donation archive.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ChainConfig covers direct node access used for health probing.
type ChainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// HTTPConfig configures the read-only API.
type HTTPConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AlertingConfig defines donation alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram alert parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from .env files, file, environment, and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	v := viper.New()
	v.SetEnvPrefix("DONATIONWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "donationwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("explorer.base_url", "https://api.etherscan.io/v2/api")
	v.SetDefault("explorer.chain_id", 56)
	v.SetDefault("explorer.api_key", "")
	v.SetDefault("explorer.contract_address", "")
	v.SetDefault("explorer.wallet_address", "")
	v.SetDefault("explorer.start_block", 1)
	v.SetDefault("explorer.end_block", 99999999)
	v.SetDefault("explorer.request_timeout", "0s")
	v.SetDefault("explorer.user_agent", "donationwatch/1.0")

	v.SetDefault("campaign.goal", 100.0)
	v.SetDefault("campaign.symbol", "BNB")
	v.SetDefault("campaign.display_limit", 12)
	v.SetDefault("campaign.explorer_tx_url", "https://bscscan.com/tx/")

	v.SetDefault("cache.backend", "leveldb")
	v.SetDefault("cache.path", "./_cache_data")
	v.SetDefault("cache.ttl", "15m")

	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.align_to_interval", false)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.request_timeout", "10s")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.listen_addr", "0.0.0.0:8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.idle_timeout", "120s")
	v.SetDefault("http.shutdown_timeout", "20s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

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
	if !common.IsHexAddress(c.Explorer.WalletAddress) {
		return fmt.Errorf("explorer.wallet_address must be a 0x-prefixed 20-byte hex address")
	}
	if !common.IsHexAddress(c.Explorer.ContractAddress) {
		return fmt.Errorf("explorer.contract_address must be a 0x-prefixed 20-byte hex address")
	}
	if strings.TrimSpace(c.Explorer.APIKey) == "" {
		return fmt.Errorf("explorer.api_key must be configured")
	}
	if c.Explorer.ChainID <= 0 {
		return fmt.Errorf("explorer.chain_id must be greater than zero")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be greater than zero")
	}
	if c.Campaign.Goal < 0 {
		return fmt.Errorf("campaign.goal cannot be negative")
	}
	if c.Campaign.DisplayLimit <= 0 {
		return fmt.Errorf("campaign.display_limit must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be configured")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be configured")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
