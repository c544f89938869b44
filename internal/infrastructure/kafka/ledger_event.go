package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
)

const LedgerEventType = "rebate.ledger.appended"

type LedgerEvent struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	RunID          string    `json:"run_id"`
	EntryID        string    `json:"entry_id"`
	CustomerID     string    `json:"customer_id"`
	Exchange       string    `json:"exchange"`
	Commission     string    `json:"commission"`
	Rebate         string    `json:"rebate"`
	VolumeEstimate string    `json:"volume_estimate"`
	RecordDate     string    `json:"record_date"`
	Status         string    `json:"status"`
	SourceKey      string    `json:"source_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewLedgerEvent(runID string, entry *domain.LedgerEntry) LedgerEvent {
	return LedgerEvent{
		EventID:        uuid.New().String(),
		EventType:      LedgerEventType,
		RunID:          runID,
		EntryID:        entry.ID,
		CustomerID:     entry.CustomerID,
		Exchange:       string(entry.Exchange),
		Commission:     entry.Commission.String(),
		Rebate:         entry.Rebate.String(),
		VolumeEstimate: entry.VolumeEstimate.String(),
		RecordDate:     entry.RecordDate.Format(domain.RecordDateLayout),
		Status:         string(entry.Status),
		SourceKey:      entry.SourceKey,
		CreatedAt:      entry.CreatedAt,
	}
}

// LedgerPublisher turns committed ledger entries into events keyed by customer,
// so one customer's entries stay ordered within a partition.
type LedgerPublisher struct {
	port domain.PublisherPort
}

func NewLedgerPublisher(port domain.PublisherPort) *LedgerPublisher {
	return &LedgerPublisher{port: port}
}

func (p *LedgerPublisher) PublishLedgerEntries(ctx context.Context, runID string, entries []*domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	msgs := make([]domain.Message, 0, len(entries))
	for _, entry := range entries {
		v, err := json.Marshal(NewLedgerEvent(runID, entry))
		if err != nil {
			return fmt.Errorf("marshal ledger event %s: %w", entry.ID, err)
		}
		msgs = append(msgs, domain.Message{Key: []byte(entry.CustomerID), Value: v})
	}

	if err := p.port.Publish(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d ledger events: %w", len(msgs), err)
	}
	return nil
}
