package mappers

import (
	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/postgres/models"
)

func ToGORMLedgerEntry(entry *domain.LedgerEntry) *models.RebateLedgerModel {
	return &models.RebateLedgerModel{
		ID:             entry.ID,
		CustomerID:     entry.CustomerID,
		Exchange:       string(entry.Exchange),
		VolumeEstimate: entry.VolumeEstimate,
		Commission:     entry.Commission,
		Rebate:         entry.Rebate,
		RecordDate:     domain.DateOf(entry.RecordDate).Format(domain.RecordDateLayout),
		Status:         string(entry.Status),
		SourceKey:      nullableKey(entry.SourceKey),
		CreatedAt:      entry.CreatedAt,
	}
}

func ToGORMUnmatched(record *domain.UnmatchedCommission) *models.UnmatchedCommissionModel {
	return &models.UnmatchedCommissionModel{
		Exchange:   string(record.Exchange),
		AccountID:  record.AccountID,
		Amount:     record.Amount,
		OccurredAt: record.OccurredAt.UTC(),
		SourceKey:  nullableKey(record.SourceKey),
	}
}

// nullableKey stores an empty key as NULL so legacy rows never collide on the unique index.
func nullableKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}
