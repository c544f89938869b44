package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RebateLedgerModel struct {
	ID             string          `gorm:"primaryKey;type:varchar(36)"`
	CustomerID     string          `gorm:"type:varchar(36);not null;index"`
	Exchange       string          `gorm:"type:varchar(16);not null"`
	VolumeEstimate decimal.Decimal `gorm:"type:numeric(36,12);not null"`
	Commission     decimal.Decimal `gorm:"type:numeric(36,12);not null"`
	Rebate         decimal.Decimal `gorm:"type:numeric(36,12);not null"`
	RecordDate     string          `gorm:"type:varchar(10);not null;index"`
	Status         string          `gorm:"type:varchar(16);not null;default:pending"`
	SourceKey      *string         `gorm:"type:varchar(40);uniqueIndex"`
	CreatedAt      time.Time
}

type UnmatchedCommissionModel struct {
	ID         uint            `gorm:"primaryKey"`
	Exchange   string          `gorm:"type:varchar(16);not null"`
	AccountID  string          `gorm:"type:varchar(64);not null;index"`
	Amount     decimal.Decimal `gorm:"type:numeric(36,12);not null"`
	OccurredAt time.Time       `gorm:"not null"`
	SourceKey  *string         `gorm:"type:varchar(40);uniqueIndex"`
	CreatedAt  time.Time
}
