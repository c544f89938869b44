package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type LedgerStatus string

const (
	LedgerPending LedgerStatus = "pending"
)

// LedgerEntry is one reconciled commission-to-rebate computation.
// VolumeEstimate is derived from the commission with an assumed fee rate,
// it is not a volume reported by the exchange.
type LedgerEntry struct {
	ID             string
	CustomerID     string
	Exchange       Exchange
	VolumeEstimate decimal.Decimal
	Commission     decimal.Decimal
	Rebate         decimal.Decimal
	RecordDate     time.Time
	Status         LedgerStatus

	// SourceKey fingerprints the commission record the entry came from.
	// Empty when idempotent reconciliation is disabled.
	SourceKey string
	CreatedAt time.Time
}

type UnmatchedCommission struct {
	Exchange   Exchange
	AccountID  string
	Amount     decimal.Decimal
	OccurredAt time.Time
	SourceKey  string
}

type BoundCustomer struct {
	CustomerID string
	AccountID  string
}

type RebateRecipient struct {
	CustomerID     string
	ChatID         string
	Rebate         decimal.Decimal
	VolumeEstimate decimal.Decimal
}

type OverallStats struct {
	TotalCustomers    int64
	TotalVolume       decimal.Decimal
	TotalRebate       decimal.Decimal
	TodayNewCustomers int64
	TodayVolume       decimal.Decimal
}

// AppendResult reports what a batch append actually wrote.
type AppendResult struct {
	Inserted          []*LedgerEntry
	DuplicatesSkipped int
	UnmatchedRetained int
}

type LedgerRepository interface {
	FindBoundCustomers(ctx context.Context, exchange Exchange) ([]BoundCustomer, error)
	AppendLedgerEntry(ctx context.Context, entry *LedgerEntry) error
	// AppendLedgerEntries writes a whole reconciliation pass in one transaction.
	// Entries and unmatched rows whose SourceKey already exists are skipped.
	AppendLedgerEntries(ctx context.Context, entries []*LedgerEntry, unmatched []*UnmatchedCommission) (*AppendResult, error)
	CustomersWithPositiveRebate(ctx context.Context, date time.Time) ([]RebateRecipient, error)
	OverallStats(ctx context.Context, now time.Time) (*OverallStats, error)
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

const RecordDateLayout = "2006-01-02"
