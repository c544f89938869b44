package domain

import "context"

type Message struct {
	Key   []byte
	Value []byte
}

type PublisherPort interface {
	Publish(ctx context.Context, msgs ...Message) error
}

// LedgerEventPublisher announces freshly committed ledger entries to downstream consumers.
type LedgerEventPublisher interface {
	PublishLedgerEntries(ctx context.Context, runID string, entries []*LedgerEntry) error
}
