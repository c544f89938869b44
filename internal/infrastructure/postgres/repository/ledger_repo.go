package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/postgres/models"
)

type DefaultLedgerRepository struct {
	DB *gorm.DB
}

func NewDefaultLedgerRepository(db *gorm.DB) *DefaultLedgerRepository {
	return &DefaultLedgerRepository{
		DB: db,
	}
}

func (r *DefaultLedgerRepository) FindBoundCustomers(ctx context.Context, exchange domain.Exchange) ([]domain.BoundCustomer, error) {
	var bindings []models.UIDBindingModel
	if err := r.DB.WithContext(ctx).Where("exchange = ?", string(exchange)).Find(&bindings).Error; err != nil {
		return nil, err
	}

	bound := make([]domain.BoundCustomer, len(bindings))
	for i, binding := range bindings {
		bound[i] = domain.BoundCustomer{
			CustomerID: binding.CustomerID,
			AccountID:  binding.UID,
		}
	}
	return bound, nil
}

func (r *DefaultLedgerRepository) AppendLedgerEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	_, err := r.AppendLedgerEntries(ctx, []*domain.LedgerEntry{entry}, nil)
	return err
}

func (r *DefaultLedgerRepository) AppendLedgerEntries(ctx context.Context, entries []*domain.LedgerEntry, unmatched []*domain.UnmatchedCommission) (*domain.AppendResult, error) {
	result := &domain.AppendResult{}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			if entry.ID == "" {
				entry.ID = uuid.New().String()
			}
			if entry.Status == "" {
				entry.Status = domain.LedgerPending
			}
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = time.Now().UTC()
			}

			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(mappers.ToGORMLedgerEntry(entry))
			if res.Error != nil {
				return fmt.Errorf("insert ledger entry for customer %s: %w", entry.CustomerID, res.Error)
			}
			if res.RowsAffected == 0 {
				result.DuplicatesSkipped++
				continue
			}
			result.Inserted = append(result.Inserted, entry)
		}

		for _, record := range unmatched {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(mappers.ToGORMUnmatched(record))
			if res.Error != nil {
				return fmt.Errorf("retain unmatched %s record %s: %w", record.Exchange, record.AccountID, res.Error)
			}
			result.UnmatchedRetained += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type recipientRow struct {
	CustomerID     string
	ChatID         string
	Rebate         decimal.Decimal
	VolumeEstimate decimal.Decimal
}

// CustomersWithPositiveRebate aggregates every ledger entry dated on date per customer.
func (r *DefaultLedgerRepository) CustomersWithPositiveRebate(ctx context.Context, date time.Time) ([]domain.RebateRecipient, error) {
	var rows []recipientRow
	err := r.DB.WithContext(ctx).Raw(`
		SELECT l.customer_id AS customer_id,
		       c.chat_id AS chat_id,
		       SUM(l.rebate) AS rebate,
		       SUM(l.volume_estimate) AS volume_estimate
		FROM rebate_ledger_models l
		JOIN customer_models c ON c.id = l.customer_id
		WHERE l.record_date = ?
		GROUP BY l.customer_id, c.chat_id
		HAVING SUM(l.rebate) > 0
		ORDER BY c.chat_id`,
		domain.DateOf(date).Format(domain.RecordDateLayout),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	recipients := make([]domain.RebateRecipient, len(rows))
	for i, row := range rows {
		recipients[i] = domain.RebateRecipient(row)
	}
	return recipients, nil
}

type totalsRow struct {
	Volume decimal.Decimal
	Rebate decimal.Decimal
}

func (r *DefaultLedgerRepository) OverallStats(ctx context.Context, now time.Time) (*domain.OverallStats, error) {
	db := r.DB.WithContext(ctx)
	stats := &domain.OverallStats{}

	if err := db.Model(&models.CustomerModel{}).Count(&stats.TotalCustomers).Error; err != nil {
		return nil, err
	}

	var totals totalsRow
	if err := db.Model(&models.RebateLedgerModel{}).
		Select("COALESCE(SUM(volume_estimate), 0) AS volume, COALESCE(SUM(rebate), 0) AS rebate").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	stats.TotalVolume = totals.Volume
	stats.TotalRebate = totals.Rebate

	dayStart := domain.DateOf(now)
	if err := db.Model(&models.CustomerModel{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayStart.AddDate(0, 0, 1)).
		Count(&stats.TodayNewCustomers).Error; err != nil {
		return nil, err
	}

	var today totalsRow
	if err := db.Model(&models.RebateLedgerModel{}).
		Select("COALESCE(SUM(volume_estimate), 0) AS volume, COALESCE(SUM(rebate), 0) AS rebate").
		Where("record_date = ?", dayStart.Format(domain.RecordDateLayout)).
		Scan(&today).Error; err != nil {
		return nil, err
	}
	stats.TodayVolume = today.Volume

	return stats, nil
}
