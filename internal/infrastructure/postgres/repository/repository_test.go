package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/postgres"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := postgres.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCustomer(t *testing.T, repo *DefaultCustomerRepository, chatID string) *domain.Customer {
	t.Helper()
	customer, err := repo.UpsertCustomer(context.Background(), domain.CustomerInput{ChatID: chatID, Username: "user" + chatID})
	if err != nil {
		t.Fatalf("upsert customer: %v", err)
	}
	return customer
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCustomerRepository_UpsertIsIdempotent(t *testing.T) {
	repo := NewDefaultCustomerRepository(newTestDB(t))
	ctx := context.Background()

	first := mustCustomer(t, repo, "100")
	second, err := repo.UpsertCustomer(ctx, domain.CustomerInput{ChatID: "100", Username: "renamed"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected same customer ID, got %s and %s", first.ID, second.ID)
	}
	if second.Username != "renamed" {
		t.Errorf("Expected username to be refreshed, got %q", second.Username)
	}
}

func TestCustomerRepository_BindExchangeUID(t *testing.T) {
	repo := NewDefaultCustomerRepository(newTestDB(t))
	ctx := context.Background()
	mustCustomer(t, repo, "100")
	mustCustomer(t, repo, "200")

	if err := repo.BindExchangeUID(ctx, "100", domain.ExchangeOKX, "U1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	testCases := []struct {
		name     string
		chatID   string
		exchange domain.Exchange
		uid      string
		expected error
	}{
		{"same uid again", "100", domain.ExchangeOKX, "U1", nil},
		{"rebind to another uid", "100", domain.ExchangeOKX, "U9", domain.ErrUIDAlreadyBound},
		{"uid owned by someone else", "200", domain.ExchangeOKX, "U1", domain.ErrUIDAlreadyBound},
		{"same uid on other exchange", "200", domain.ExchangeGate, "U1", nil},
		{"unknown customer", "999", domain.ExchangeGate, "G1", domain.ErrCustomerNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := repo.BindExchangeUID(ctx, tc.chatID, tc.exchange, tc.uid)
			if !errors.Is(err, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, err)
			}
		})
	}

	customer, err := repo.GetCustomerByChatID(ctx, "100")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if customer.Bindings[domain.ExchangeOKX] != "U1" {
		t.Errorf("Expected OKX binding U1, got %v", customer.Bindings)
	}
}

func TestLedgerRepository_FindBoundCustomers(t *testing.T) {
	db := newTestDB(t)
	customers := NewDefaultCustomerRepository(db)
	ledger := NewDefaultLedgerRepository(db)
	ctx := context.Background()

	alice := mustCustomer(t, customers, "100")
	mustCustomer(t, customers, "200")
	if err := customers.BindExchangeUID(ctx, "100", domain.ExchangeOKX, "U1"); err != nil {
		t.Fatal(err)
	}
	if err := customers.BindExchangeUID(ctx, "200", domain.ExchangeGate, "G2"); err != nil {
		t.Fatal(err)
	}

	bound, err := ledger.FindBoundCustomers(ctx, domain.ExchangeOKX)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(bound) != 1 || bound[0].CustomerID != alice.ID || bound[0].AccountID != "U1" {
		t.Errorf("Unexpected bound customers %+v", bound)
	}
}

func TestLedgerRepository_AppendSkipsDuplicateKeys(t *testing.T) {
	db := newTestDB(t)
	customer := mustCustomer(t, NewDefaultCustomerRepository(db), "100")
	ledger := NewDefaultLedgerRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	newEntry := func(key string) *domain.LedgerEntry {
		return &domain.LedgerEntry{
			CustomerID:     customer.ID,
			Exchange:       domain.ExchangeOKX,
			VolumeEstimate: dec("10000"),
			Commission:     dec("10"),
			Rebate:         dec("4.5"),
			RecordDate:     day,
			SourceKey:      key,
		}
	}
	unmatched := []*domain.UnmatchedCommission{{
		Exchange:   domain.ExchangeOKX,
		AccountID:  "U404",
		Amount:     dec("1"),
		OccurredAt: day.Add(time.Hour),
		SourceKey:  "unmatched-key",
	}}

	first, err := ledger.AppendLedgerEntries(ctx, []*domain.LedgerEntry{newEntry("key-1")}, unmatched)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(first.Inserted) != 1 || first.UnmatchedRetained != 1 {
		t.Fatalf("Unexpected first result %+v", first)
	}
	if first.Inserted[0].ID == "" || first.Inserted[0].Status != domain.LedgerPending {
		t.Errorf("Expected ID and pending status to be filled, got %+v", first.Inserted[0])
	}

	second, err := ledger.AppendLedgerEntries(ctx, []*domain.LedgerEntry{newEntry("key-1")}, unmatched)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(second.Inserted) != 0 || second.DuplicatesSkipped != 1 || second.UnmatchedRetained != 0 {
		t.Errorf("Expected duplicate to be skipped, got %+v", second)
	}

	// entries without a key are never deduplicated
	for i := 0; i < 2; i++ {
		if err := ledger.AppendLedgerEntry(ctx, newEntry("")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	var count int64
	db.Table("rebate_ledger_models").Count(&count)
	if count != 3 {
		t.Errorf("Expected 3 ledger rows, got %d", count)
	}
}

func TestLedgerRepository_CustomersWithPositiveRebate(t *testing.T) {
	db := newTestDB(t)
	customers := NewDefaultCustomerRepository(db)
	ledger := NewDefaultLedgerRepository(db)
	ctx := context.Background()

	alice := mustCustomer(t, customers, "100")
	bob := mustCustomer(t, customers, "200")
	carol := mustCustomer(t, customers, "300")

	yesterday := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	entries := []*domain.LedgerEntry{
		{CustomerID: alice.ID, Exchange: domain.ExchangeOKX, Commission: dec("10"), Rebate: dec("4.5"), VolumeEstimate: dec("10000"), RecordDate: yesterday},
		{CustomerID: alice.ID, Exchange: domain.ExchangeGate, Commission: dec("10"), Rebate: dec("8.5"), VolumeEstimate: dec("10000"), RecordDate: yesterday},
		{CustomerID: bob.ID, Exchange: domain.ExchangeOKX, Commission: dec("0"), Rebate: dec("0"), VolumeEstimate: dec("0"), RecordDate: yesterday},
		{CustomerID: carol.ID, Exchange: domain.ExchangeOKX, Commission: dec("2"), Rebate: dec("0.5"), VolumeEstimate: dec("2000"), RecordDate: yesterday.AddDate(0, 0, -1)},
	}
	if _, err := ledger.AppendLedgerEntries(ctx, entries, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	recipients, err := ledger.CustomersWithPositiveRebate(ctx, yesterday.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(recipients) != 1 {
		t.Fatalf("Expected 1 recipient, got %+v", recipients)
	}
	if recipients[0].ChatID != "100" || !recipients[0].Rebate.Equal(dec("13")) || !recipients[0].VolumeEstimate.Equal(dec("20000")) {
		t.Errorf("Unexpected recipient %+v", recipients[0])
	}
}

func TestLedgerRepository_OverallStats(t *testing.T) {
	db := newTestDB(t)
	customers := NewDefaultCustomerRepository(db)
	ledger := NewDefaultLedgerRepository(db)
	ctx := context.Background()

	empty, err := ledger.OverallStats(ctx, time.Now())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if empty.TotalCustomers != 0 || !empty.TotalVolume.IsZero() {
		t.Errorf("Expected empty stats, got %+v", empty)
	}

	alice := mustCustomer(t, customers, "100")
	mustCustomer(t, customers, "200")

	now := time.Now().UTC()
	entries := []*domain.LedgerEntry{
		{CustomerID: alice.ID, Exchange: domain.ExchangeOKX, Commission: dec("1"), Rebate: dec("0.5"), VolumeEstimate: dec("1000"), RecordDate: now},
		{CustomerID: alice.ID, Exchange: domain.ExchangeOKX, Commission: dec("2"), Rebate: dec("1"), VolumeEstimate: dec("2000"), RecordDate: now.AddDate(0, 0, -3)},
	}
	if _, err := ledger.AppendLedgerEntries(ctx, entries, nil); err != nil {
		t.Fatal(err)
	}

	stats, err := ledger.OverallStats(ctx, now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.TotalCustomers != 2 || stats.TodayNewCustomers != 2 {
		t.Errorf("Unexpected customer counts %+v", stats)
	}
	if !stats.TotalVolume.Equal(dec("3000")) || !stats.TotalRebate.Equal(dec("1.5")) {
		t.Errorf("Unexpected totals volume=%s rebate=%s", stats.TotalVolume, stats.TotalRebate)
	}
	if !stats.TodayVolume.Equal(dec("1000")) {
		t.Errorf("Expected today volume 1000, got %s", stats.TodayVolume)
	}
}
