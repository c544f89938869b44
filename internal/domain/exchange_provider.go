package domain

import "context"

// CommissionSource is implemented by every exchange adapter.
type CommissionSource interface {
	Exchange() Exchange
	FetchCommissionHistory(ctx context.Context, window FetchWindow) ([]CommissionRecord, error)
	TestConnection(ctx context.Context) bool
}
