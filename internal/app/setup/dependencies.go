package setup

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/LavaJover/shvark-rebate-service/internal/config"
	"github.com/LavaJover/shvark-rebate-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/broker"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/notifier"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/postgres/repository"
)

type Dependencies struct {
	Config          *config.RebateConfig
	Logger          *slog.Logger
	DB              *gorm.DB
	Registry        *prometheus.Registry
	Metrics         *metrics.RebateMetrics
	Sources         []domain.CommissionSource
	Messenger       domain.Messenger
	KafkaPublisher  *kafka.KafkaPublisher
	LedgerPublisher domain.LedgerEventPublisher
	Health          *grpcapi.HealthService
	Repositories    *Repositories
}

type Repositories struct {
	CustomerRepo domain.CustomerRepository
	LedgerRepo   *repository.DefaultLedgerRepository
}

func InitializeDependencies(cfg *config.RebateConfig, logger *slog.Logger) (*Dependencies, error) {
	if cfg.Telegram.BotToken == "" {
		return nil, errors.New("telegram bot token is required")
	}

	db := postgres.MustInitDB(cfg)
	if err := initSchema(db, cfg); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	messenger, err := notifier.NewTelegramMessenger(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("messenger: %w", err)
	}
	logger.Info("telegram bot authorized", "bot", messenger.BotName())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Registry:  registry,
		Metrics:   metrics.NewRebateMetrics(registry),
		Sources:   NewSources(cfg),
		Messenger: messenger,
		Health:    grpcapi.NewHealthService(domain.Exchanges),
		Repositories: &Repositories{
			CustomerRepo: repository.NewDefaultCustomerRepository(db),
			LedgerRepo:   repository.NewDefaultLedgerRepository(db),
		},
	}

	if len(cfg.Kafka.Brokers) > 0 {
		deps.KafkaPublisher = kafka.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		deps.LedgerPublisher = kafka.NewLedgerPublisher(deps.KafkaPublisher)
	} else {
		logger.Warn("kafka brokers not configured, ledger events disabled")
	}

	return deps, nil
}

// NewSources builds one adapter per supported exchange, in reconciliation order.
func NewSources(cfg *config.RebateConfig) []domain.CommissionSource {
	return []domain.CommissionSource{
		broker.NewOKXClient(broker.OKXConfig{
			APIKey:     cfg.OKX.APIKey,
			SecretKey:  cfg.OKX.SecretKey,
			Passphrase: cfg.OKX.Passphrase,
			BaseURL:    cfg.OKX.BaseURL,
		}),
		broker.NewGateClient(broker.GateConfig{
			APIKey:    cfg.Gate.APIKey,
			SecretKey: cfg.Gate.SecretKey,
			BaseURL:   cfg.Gate.BaseURL,
		}),
	}
}

func initSchema(db *gorm.DB, cfg *config.RebateConfig) error {
	if cfg.Database.MigrationsPath == "" {
		return postgres.AutoMigrate(db)
	}
	return migrate.RunMigrations(db, cfg.Database.MigrationsPath)
}

func (d *Dependencies) Close() {
	if d.KafkaPublisher != nil {
		if err := d.KafkaPublisher.Close(); err != nil {
			d.Logger.Error("failed to close kafka writer", "error", err)
		}
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
