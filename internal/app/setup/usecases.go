package setup

import (
	"fmt"

	"github.com/LavaJover/shvark-rebate-service/internal/app/background"
	"github.com/LavaJover/shvark-rebate-service/internal/usecase/notify"
	"github.com/LavaJover/shvark-rebate-service/internal/usecase/reconcile"
)

type UseCases struct {
	Engine     *reconcile.Engine
	Dispatcher *notify.Dispatcher
	Scheduler  *background.Scheduler
}

func InitializeUseCases(deps *Dependencies) (*UseCases, error) {
	cfg := deps.Config

	rates, err := cfg.Rates()
	if err != nil {
		return nil, err
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	engine, err := reconcile.NewEngine(deps.Repositories.LedgerRepo, deps.Sources, rates, reconcile.Options{
		Window:           cfg.Reconcile.Window,
		LegacyDuplicates: cfg.Reconcile.LegacyDuplicates,
		Publisher:        deps.LedgerPublisher,
		Metrics:          deps.Metrics,
		Logger:           deps.Logger.With("component", "reconcile"),
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile engine: %w", err)
	}

	dispatcher := notify.NewDispatcher(deps.Messenger, cfg.Notify.Interval, deps.Metrics, deps.Logger.With("component", "notify"))

	scheduler, err := background.NewScheduler(
		background.Config{
			Location:    location,
			DailySpec:   cfg.Scheduler.DailySpec,
			HourlySpec:  cfg.Scheduler.HourlySpec,
			AdminChatID: cfg.Telegram.AdminChatID,
		},
		engine,
		deps.Sources,
		deps.Repositories.LedgerRepo,
		dispatcher,
		deps.Health,
		deps.Metrics,
		deps.Logger.With("component", "scheduler"),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	return &UseCases{
		Engine:     engine,
		Dispatcher: dispatcher,
		Scheduler:  scheduler,
	}, nil
}
