package background

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/robfig/cron/v3"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-rebate-service/internal/usecase/notify"
	"github.com/LavaJover/shvark-rebate-service/internal/usecase/reconcile"
)

const (
	JobDaily  = "daily_sync_and_notify"
	JobHourly = "hourly_health_check"

	healthCheckTimeout = 15 * time.Second
)

var (
	// ErrPipelineFailure wraps any error raised while syncing or selecting
	// recipients and any panic raised by a job.
	ErrPipelineFailure = errors.New("daily pipeline failed")
	ErrJobInFlight     = errors.New("job already running")
	ErrAlreadyStarted  = errors.New("scheduler already started")
)

type State int32

const (
	StateIdle State = iota
	StateArmed
	StateFiring
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	}
	return "idle"
}

type Syncer interface {
	SyncAll(ctx context.Context) []reconcile.PassResult
}

type LedgerReader interface {
	CustomersWithPositiveRebate(ctx context.Context, date time.Time) ([]domain.RebateRecipient, error)
	OverallStats(ctx context.Context, now time.Time) (*domain.OverallStats, error)
}

type Notifier interface {
	NotifyRecipients(ctx context.Context, recipients []domain.RebateRecipient) notify.DispatchReport
	SendAdmin(ctx context.Context, chatID, text string) error
}

// HealthReporter receives the per-exchange result of the hourly check.
type HealthReporter interface {
	SetExchangeStatus(exchange domain.Exchange, up bool)
}

type Config struct {
	Location    *time.Location
	DailySpec   string
	HourlySpec  string
	AdminChatID string
}

type Scheduler struct {
	cfg      Config
	syncer   Syncer
	sources  []domain.CommissionSource
	ledger   LedgerReader
	notifier Notifier
	health   HealthReporter
	metrics  *metrics.RebateMetrics
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string

	mu         sync.Mutex
	cron       *cron.Cron
	dailyEntry cron.EntryID
	stopWatch  chan struct{}

	armed         atomic.Bool
	firing        atomic.Int32
	dailyRunning  atomic.Bool
	hourlyRunning atomic.Bool
}

func NewScheduler(
	cfg Config,
	syncer Syncer,
	sources []domain.CommissionSource,
	ledger LedgerReader,
	notifier Notifier,
	health HealthReporter,
	m *metrics.RebateMetrics,
	logger *slog.Logger,
) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DailySpec == "" {
		cfg.DailySpec = "0 0 * * *"
	}
	if cfg.HourlySpec == "" {
		cfg.HourlySpec = "0 * * * *"
	}
	if logger == nil {
		logger = slog.Default()
	}

	idGenerator, err := nanoid.Standard(15)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cfg:      cfg,
		syncer:   syncer,
		sources:  sources,
		ledger:   ledger,
		notifier: notifier,
		health:   health,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		newRunID: idGenerator,
	}, nil
}

// Start arms both triggers. Jobs run with ctx until it is cancelled or Stop is called.
// Fires missed while the process was down are not replayed. A stopped scheduler
// can be started again; starting an armed one returns ErrAlreadyStarted.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed.Load() {
		return ErrAlreadyStarted
	}

	logger := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
	dailyEntry, err := c.AddFunc(s.cfg.DailySpec, func() { _ = s.ManualSync(ctx) })
	if err != nil {
		return fmt.Errorf("invalid daily spec %q: %w", s.cfg.DailySpec, err)
	}
	if _, err := c.AddFunc(s.cfg.HourlySpec, func() { s.runHourly(ctx) }); err != nil {
		return fmt.Errorf("invalid hourly spec %q: %w", s.cfg.HourlySpec, err)
	}

	c.Start()
	s.cron = c
	s.dailyEntry = dailyEntry
	s.stopWatch = make(chan struct{})
	s.armed.Store(true)
	s.logger.Info("scheduler started",
		"timezone", s.cfg.Location.String(),
		"daily", s.cfg.DailySpec,
		"hourly", s.cfg.HourlySpec,
	)

	go func(stopped <-chan struct{}) {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopped:
		}
	}(s.stopWatch)
	return nil
}

// Stop disarms the triggers and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.armed.CompareAndSwap(true, false) {
		s.mu.Unlock()
		return
	}
	close(s.stopWatch)
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) State() State {
	if s.firing.Load() > 0 {
		return StateFiring
	}
	if s.armed.Load() {
		return StateArmed
	}
	return StateIdle
}

// NextDailyRun reports when the daily job fires next, zero if not armed.
func (s *Scheduler) NextDailyRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed.Load() {
		return time.Time{}
	}
	return s.cron.Entry(s.dailyEntry).Next
}

// ManualSync runs the daily job immediately, sharing the daily in-flight guard.
func (s *Scheduler) ManualSync(ctx context.Context) error {
	return s.runJob(ctx, JobDaily, &s.dailyRunning, s.DailySyncAndNotify)
}

func (s *Scheduler) runHourly(ctx context.Context) {
	_ = s.runJob(ctx, JobHourly, &s.hourlyRunning, func(ctx context.Context) error {
		s.HealthCheck(ctx)
		return nil
	})
}

func (s *Scheduler) runJob(ctx context.Context, name string, running *atomic.Bool, job func(context.Context) error) (err error) {
	if !running.CompareAndSwap(false, true) {
		s.logger.Warn("skipping fire, previous run still in flight", "job", name)
		s.metrics.JobSkipped(name)
		return ErrJobInFlight
	}
	defer running.Store(false)

	s.firing.Add(1)
	defer s.firing.Add(-1)

	started := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrPipelineFailure, name, r)
			s.logger.Error("job panicked", "job", name, "error", err)
		}
		s.metrics.ObserveJob(name, err)
		s.logger.Info("job finished", "job", name, "duration", s.now().Sub(started), "failed", err != nil)
	}()
	return job(ctx)
}

// DailySyncAndNotify reconciles both exchanges, notifies every customer with
// a positive rebate for the previous UTC day and reports to the admin.
// Failures before the fan-out and panics anywhere in the run are reported
// to the admin once.
func (s *Scheduler) DailySyncAndNotify(ctx context.Context) (err error) {
	runID := s.newRunID()
	logger := s.logger.With("run_id", runID)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrPipelineFailure, r)
			logger.Error("daily pipeline panicked", "error", err)
			s.sendAdmin(ctx, logger, notify.AdminFailureNotice(runID))
		}
	}()

	recipients, err := s.collectRecipients(ctx, logger)
	if err != nil {
		logger.Error("daily sync failed", "error", err)
		s.sendAdmin(ctx, logger, notify.AdminFailureNotice(runID))
		return err
	}

	logger.Info("dispatching rebate notifications", "recipients", len(recipients))
	report := s.notifier.NotifyRecipients(ctx, recipients)

	if s.cfg.AdminChatID == "" {
		return nil
	}
	stats, err := s.ledger.OverallStats(ctx, s.now())
	if err != nil {
		logger.Error("failed to load overall stats", "error", err)
		return nil
	}
	s.sendAdmin(ctx, logger, notify.AdminSummary(stats, report.Attempted))
	return nil
}

func (s *Scheduler) collectRecipients(ctx context.Context, logger *slog.Logger) (recipients []domain.RebateRecipient, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrPipelineFailure, r)
		}
	}()

	for _, result := range s.syncer.SyncAll(ctx) {
		logger.Info("sync result",
			"exchange", result.Exchange,
			"success", result.Success,
			"matched", result.Matched,
			"unmatched", result.Unmatched,
		)
	}

	yesterday := domain.DateOf(s.now()).AddDate(0, 0, -1)
	recipients, err = s.ledger.CustomersWithPositiveRebate(ctx, yesterday)
	if err != nil {
		return nil, fmt.Errorf("%w: load recipients for %s: %v", ErrPipelineFailure, yesterday.Format(domain.RecordDateLayout), err)
	}
	return recipients, nil
}

func (s *Scheduler) sendAdmin(ctx context.Context, logger *slog.Logger, text string) {
	if s.cfg.AdminChatID == "" {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("admin notification panicked", "chat_id", s.cfg.AdminChatID, "panic", r)
		}
	}()
	if err := s.notifier.SendAdmin(ctx, s.cfg.AdminChatID, text); err != nil {
		logger.Error("failed to notify admin", "chat_id", s.cfg.AdminChatID, "error", err)
	}
}

// HealthCheck probes every exchange. Results are logged and published, never escalated.
func (s *Scheduler) HealthCheck(ctx context.Context) map[domain.Exchange]bool {
	statuses := make(map[domain.Exchange]bool, len(s.sources))
	for _, source := range s.sources {
		up := s.checkSource(ctx, source)
		statuses[source.Exchange()] = up
		s.metrics.SetExchangeUp(string(source.Exchange()), up)
		if s.health != nil {
			s.health.SetExchangeStatus(source.Exchange(), up)
		}
		if up {
			s.logger.Info("exchange connection ok", "exchange", source.Exchange())
		} else {
			s.logger.Warn("exchange connection failed", "exchange", source.Exchange())
		}
	}
	return statuses
}

// checkSource treats a panicking adapter as down.
func (s *Scheduler) checkSource(ctx context.Context, source domain.CommissionSource) (up bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("exchange connection check panicked", "exchange", source.Exchange(), "panic", r)
			up = false
		}
	}()
	return source.TestConnection(ctx)
}

// cronLogger routes cron's internal logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
