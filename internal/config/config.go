package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
)

const configPathEnv = "REBATE_CONFIG_PATH"

type RebateConfig struct {
	Env        string     `yaml:"env" env:"REBATE_ENV" env-default:"local"`
	Database   Database   `yaml:"database"`
	OKX        OKXConfig  `yaml:"okx"`
	Gate       GateConfig `yaml:"gate"`
	Telegram   Telegram   `yaml:"telegram"`
	Scheduler  Scheduler  `yaml:"scheduler"`
	Reconcile  Reconcile  `yaml:"reconcile"`
	Notify     Notify     `yaml:"notify"`
	Kafka      Kafka      `yaml:"kafka"`
	GRPCServer GRPCServer `yaml:"grpc_server"`
	Metrics    Metrics    `yaml:"metrics"`
	LogConfig  LogConfig  `yaml:"log_config"`
}

type Database struct {
	Dsn            string `yaml:"dsn" env:"DATABASE_DSN" env-required:"true"`
	MigrationsPath string `yaml:"migrations_path" env-default:"migrations"`
}

type OKXConfig struct {
	APIKey     string `yaml:"api_key" env:"OKX_API_KEY"`
	SecretKey  string `yaml:"secret_key" env:"OKX_SECRET_KEY"`
	Passphrase string `yaml:"passphrase" env:"OKX_PASSPHRASE"`
	BaseURL    string `yaml:"base_url" env-default:"https://www.okx.com"`
	RebateRate string `yaml:"rebate_rate" env:"OKX_REBATE_RATE" env-default:"0.45"`
}

type GateConfig struct {
	APIKey     string `yaml:"api_key" env:"GATE_API_KEY"`
	SecretKey  string `yaml:"secret_key" env:"GATE_SECRET_KEY"`
	BaseURL    string `yaml:"base_url" env-default:"https://api.gateio.ws"`
	RebateRate string `yaml:"rebate_rate" env:"GATE_REBATE_RATE" env-default:"0.85"`
}

type Telegram struct {
	BotToken    string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	AdminChatID string `yaml:"admin_chat_id" env:"ADMIN_TELEGRAM_ID"`
}

type Scheduler struct {
	Timezone   string `yaml:"timezone" env:"SCHEDULER_TIMEZONE" env-default:"Asia/Shanghai"`
	DailySpec  string `yaml:"daily_spec" env-default:"0 0 * * *"`
	HourlySpec string `yaml:"hourly_spec" env-default:"0 * * * *"`
}

type Reconcile struct {
	Window time.Duration `yaml:"window" env-default:"24h"`

	// LegacyDuplicates disables the source-key dedup so re-running a window
	// appends the same commission again.
	LegacyDuplicates bool `yaml:"legacy_duplicates" env:"RECONCILE_LEGACY_DUPLICATES"`
}

type Notify struct {
	Interval time.Duration `yaml:"interval" env-default:"100ms"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env-default:"rebate-ledger-events"`
}

type GRPCServer struct {
	Host string `yaml:"host" env-default:"0.0.0.0"`
	Port string `yaml:"port" env-default:"50061"`
}

type Metrics struct {
	Host string `yaml:"host" env-default:"0.0.0.0"`
	Port string `yaml:"port" env-default:"9161"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env-default:"info"`
	LogFormat string `yaml:"log_format" env-default:"text"`
}

// Rates returns the validated per-exchange rebate rates.
func (c *RebateConfig) Rates() (map[domain.Exchange]domain.RebateRate, error) {
	okxRate, err := parseRate(domain.ExchangeOKX, c.OKX.RebateRate)
	if err != nil {
		return nil, err
	}
	gateRate, err := parseRate(domain.ExchangeGate, c.Gate.RebateRate)
	if err != nil {
		return nil, err
	}
	return map[domain.Exchange]domain.RebateRate{
		domain.ExchangeOKX:  okxRate,
		domain.ExchangeGate: gateRate,
	}, nil
}

func (c *RebateConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return loc, nil
}

func (c *RebateConfig) Validate() error {
	if _, err := c.Rates(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Reconcile.Window <= 0 {
		return errors.New("reconcile window must be positive")
	}
	if c.Notify.Interval <= 0 {
		return errors.New("notify interval must be positive")
	}
	return nil
}

func parseRate(exchange domain.Exchange, raw string) (domain.RebateRate, error) {
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s rebate rate %q: %w", exchange, raw, domain.ErrInvalidRebateRate)
	}
	if err := domain.ValidateRebateRate(rate); err != nil {
		return decimal.Zero, fmt.Errorf("%s rebate rate %s: %w", exchange, raw, err)
	}
	return rate, nil
}

// Load reads and validates the config file at path.
func Load(path string) (*RebateConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	var cfg RebateConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *RebateConfig {
	// .env is optional
	_ = godotenv.Load()

	configPath := os.Getenv(configPathEnv)
	if configPath == "" {
		log.Fatalf("%s was not found\n", configPathEnv)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}
