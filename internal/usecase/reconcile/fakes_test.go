package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/broker"
)

type fakeSource struct {
	exchange domain.Exchange
	records  []domain.CommissionRecord
	err      error

	lastWindow domain.FetchWindow
}

func (f *fakeSource) Exchange() domain.Exchange { return f.exchange }

func (f *fakeSource) FetchCommissionHistory(_ context.Context, window domain.FetchWindow) ([]domain.CommissionRecord, error) {
	f.lastWindow = window
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) TestConnection(context.Context) bool { return f.err == nil }

// memLedger mirrors the database semantics: keyed rows are unique, empty keys never collide.
type memLedger struct {
	mu        sync.Mutex
	bound     map[domain.Exchange][]domain.BoundCustomer
	entries   []*domain.LedgerEntry
	unmatched []*domain.UnmatchedCommission
	keys      map[string]bool
	appendErr error
}

func newMemLedger() *memLedger {
	return &memLedger{
		bound: make(map[domain.Exchange][]domain.BoundCustomer),
		keys:  make(map[string]bool),
	}
}

func (m *memLedger) bind(exchange domain.Exchange, customerID, accountID string) {
	m.bound[exchange] = append(m.bound[exchange], domain.BoundCustomer{CustomerID: customerID, AccountID: accountID})
}

func (m *memLedger) FindBoundCustomers(_ context.Context, exchange domain.Exchange) ([]domain.BoundCustomer, error) {
	return m.bound[exchange], nil
}

func (m *memLedger) AppendLedgerEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	_, err := m.AppendLedgerEntries(ctx, []*domain.LedgerEntry{entry}, nil)
	return err
}

func (m *memLedger) AppendLedgerEntries(_ context.Context, entries []*domain.LedgerEntry, unmatched []*domain.UnmatchedCommission) (*domain.AppendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return nil, m.appendErr
	}

	result := &domain.AppendResult{}
	for _, entry := range entries {
		if entry.SourceKey != "" && m.keys["l:"+entry.SourceKey] {
			result.DuplicatesSkipped++
			continue
		}
		if entry.SourceKey != "" {
			m.keys["l:"+entry.SourceKey] = true
		}
		m.entries = append(m.entries, entry)
		result.Inserted = append(result.Inserted, entry)
	}
	for _, record := range unmatched {
		if record.SourceKey != "" && m.keys["u:"+record.SourceKey] {
			continue
		}
		if record.SourceKey != "" {
			m.keys["u:"+record.SourceKey] = true
		}
		m.unmatched = append(m.unmatched, record)
		result.UnmatchedRetained++
	}
	return result, nil
}

func (m *memLedger) CustomersWithPositiveRebate(context.Context, time.Time) ([]domain.RebateRecipient, error) {
	return nil, errors.New("not used")
}

func (m *memLedger) OverallStats(context.Context, time.Time) (*domain.OverallStats, error) {
	return nil, errors.New("not used")
}

type recordingPublisher struct {
	runIDs  []string
	entries []*domain.LedgerEntry
	err     error
}

func (p *recordingPublisher) PublishLedgerEntries(_ context.Context, runID string, entries []*domain.LedgerEntry) error {
	p.runIDs = append(p.runIDs, runID)
	p.entries = append(p.entries, entries...)
	return p.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func commission(account, amount string, at time.Time) domain.CommissionRecord {
	return domain.CommissionRecord{AccountID: account, Amount: dec(amount), OccurredAt: at, RawAmount: amount}
}

func networkFailure(exchange domain.Exchange) error {
	return &broker.AdapterError{Exchange: exchange, Kind: broker.KindNetwork, Err: errors.New("connection refused")}
}
