package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/metrics"
)

// AssumedFeeRate converts a commission back into an approximate traded
// volume. Exchanges do not report volume on the commission endpoints.
var AssumedFeeRate = decimal.RequireFromString("0.001")

const DefaultWindow = 24 * time.Hour

// PassResult summarizes one reconciliation pass over one exchange.
type PassResult struct {
	RunID      string
	Exchange   domain.Exchange
	Success    bool
	Matched    int
	Unmatched  int
	Malformed  int
	Duplicates int

	// KeyCollisions counts rows of one fetch that share a SourceKey with an
	// earlier row of the same fetch. Only the first of them is kept.
	KeyCollisions int
	Err           error
}

type Options struct {
	Window time.Duration

	// LegacyDuplicates leaves SourceKey empty so every pass appends
	// whatever the exchange returned, including rows seen before.
	LegacyDuplicates bool
	Publisher        domain.LedgerEventPublisher
	Metrics          *metrics.RebateMetrics
	Logger           *slog.Logger
	Now              func() time.Time
}

type Engine struct {
	ledger  domain.LedgerRepository
	sources []domain.CommissionSource
	rates   map[domain.Exchange]domain.RebateRate

	window           time.Duration
	legacyDuplicates bool
	publisher        domain.LedgerEventPublisher
	metrics          *metrics.RebateMetrics
	logger           *slog.Logger
	now              func() time.Time
	newRunID         func() string
}

func NewEngine(
	ledger domain.LedgerRepository,
	sources []domain.CommissionSource,
	rates map[domain.Exchange]domain.RebateRate,
	opts Options,
) (*Engine, error) {
	for _, source := range sources {
		rate, ok := rates[source.Exchange()]
		if !ok {
			return nil, fmt.Errorf("no rebate rate for %s: %w", source.Exchange(), domain.ErrInvalidRebateRate)
		}
		if err := domain.ValidateRebateRate(rate); err != nil {
			return nil, fmt.Errorf("%s: %w", source.Exchange(), err)
		}
	}

	idGenerator, err := nanoid.Standard(15)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		ledger:           ledger,
		sources:          sources,
		rates:            rates,
		window:           opts.Window,
		legacyDuplicates: opts.LegacyDuplicates,
		publisher:        opts.Publisher,
		metrics:          opts.Metrics,
		logger:           opts.Logger,
		now:              opts.Now,
		newRunID:         idGenerator,
	}
	if e.window <= 0 {
		e.window = DefaultWindow
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// SyncAll runs one pass per exchange in order. A failing exchange never
// prevents the others from being reconciled.
func (e *Engine) SyncAll(ctx context.Context) []PassResult {
	runID := e.newRunID()
	results := make([]PassResult, 0, len(e.sources))
	for _, source := range e.sources {
		results = append(results, e.syncSource(ctx, runID, source))
	}
	return results
}

func (e *Engine) SyncExchange(ctx context.Context, exchange domain.Exchange) PassResult {
	for _, source := range e.sources {
		if source.Exchange() == exchange {
			return e.syncSource(ctx, e.newRunID(), source)
		}
	}
	return PassResult{
		Exchange: exchange,
		Err:      fmt.Errorf("%w: %s", domain.ErrUnknownExchange, exchange),
	}
}

// Sources exposes the configured adapters for connectivity checks.
func (e *Engine) Sources() []domain.CommissionSource {
	return e.sources
}

// EstimateRebate projects the rebate a customer would earn on the given
// traded volume, using the same assumed fee rate as reconciliation.
func (e *Engine) EstimateRebate(exchange domain.Exchange, volume decimal.Decimal) (decimal.Decimal, error) {
	rate, ok := e.rates[exchange]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrUnknownExchange, exchange)
	}
	return volume.Mul(AssumedFeeRate).Mul(rate), nil
}

func (e *Engine) syncSource(ctx context.Context, runID string, source domain.CommissionSource) PassResult {
	started := e.now()
	exchange := source.Exchange()
	logger := e.logger.With("run_id", runID, "exchange", exchange)

	result := e.reconcile(ctx, logger, runID, source)

	e.metrics.ObservePass(metrics.PassObservation{
		Exchange:   string(exchange),
		Success:    result.Success,
		Matched:    result.Matched,
		Unmatched:  result.Unmatched,
		Malformed:  result.Malformed,
		Duplicates: result.Duplicates,
		Duration:   e.now().Sub(started),
	})

	if !result.Success {
		logger.Error("reconciliation pass failed", "error", result.Err)
		return result
	}
	logger.Info("reconciliation pass completed",
		"matched", result.Matched,
		"unmatched", result.Unmatched,
		"malformed", result.Malformed,
		"duplicates", result.Duplicates,
	)
	return result
}

func (e *Engine) reconcile(ctx context.Context, logger *slog.Logger, runID string, source domain.CommissionSource) PassResult {
	exchange := source.Exchange()
	result := PassResult{RunID: runID, Exchange: exchange}

	to := e.now()
	from := to.Add(-e.window)
	records, err := source.FetchCommissionHistory(ctx, domain.FetchWindow{From: &from, To: &to})
	if err != nil {
		result.Err = err
		return result
	}

	bound, err := e.ledger.FindBoundCustomers(ctx, exchange)
	if err != nil {
		result.Err = fmt.Errorf("find bound customers: %w", err)
		return result
	}
	customerByAccount := make(map[string]string, len(bound))
	for _, b := range bound {
		customerByAccount[b.AccountID] = b.CustomerID
	}

	rate := e.rates[exchange]
	var (
		entries   []*domain.LedgerEntry
		unmatched []*domain.UnmatchedCommission
		seen      = make(map[string]struct{}, len(records))
	)
	for _, record := range records {
		if record.Malformed {
			result.Malformed++
			logger.Warn("skipping malformed commission record",
				"account_id", record.AccountID,
				"raw_amount", record.RawAmount,
			)
			continue
		}

		key := ""
		if !e.legacyDuplicates {
			key = SourceKey(exchange, record)
			if _, ok := seen[key]; ok {
				result.KeyCollisions++
			}
			seen[key] = struct{}{}
		}

		customerID, ok := customerByAccount[record.AccountID]
		if !ok {
			result.Unmatched++
			unmatched = append(unmatched, &domain.UnmatchedCommission{
				Exchange:   exchange,
				AccountID:  record.AccountID,
				Amount:     record.Amount,
				OccurredAt: record.OccurredAt,
				SourceKey:  key,
			})
			continue
		}

		entries = append(entries, &domain.LedgerEntry{
			CustomerID:     customerID,
			Exchange:       exchange,
			VolumeEstimate: record.Amount.Div(AssumedFeeRate),
			Commission:     record.Amount,
			Rebate:         record.Amount.Mul(rate),
			RecordDate:     domain.DateOf(record.OccurredAt),
			Status:         domain.LedgerPending,
			SourceKey:      key,
		})
	}

	if result.KeyCollisions > 0 {
		logger.Warn("identical commission rows in one fetch share a source key, extra rows are merged",
			"rows", result.KeyCollisions,
		)
	}

	appended, err := e.ledger.AppendLedgerEntries(ctx, entries, unmatched)
	if err != nil {
		result.Unmatched = 0
		result.Err = fmt.Errorf("append ledger entries: %w", err)
		return result
	}

	result.Success = true
	result.Matched = len(appended.Inserted)
	result.Duplicates = appended.DuplicatesSkipped

	if e.publisher != nil && len(appended.Inserted) > 0 {
		if err := e.publisher.PublishLedgerEntries(ctx, runID, appended.Inserted); err != nil {
			logger.Warn("failed to publish ledger events", "error", err, "entries", len(appended.Inserted))
		}
	}
	return result
}
