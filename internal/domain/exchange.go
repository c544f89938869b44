package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Exchange string

const (
	ExchangeOKX  Exchange = "okx"
	ExchangeGate Exchange = "gate"
)

// Exchanges lists the supported exchanges in reconciliation order.
var Exchanges = []Exchange{ExchangeOKX, ExchangeGate}

func ParseExchange(s string) (Exchange, error) {
	switch Exchange(s) {
	case ExchangeOKX, ExchangeGate:
		return Exchange(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExchange, s)
}

// RebateRate is the fraction of commission paid back to a referred user.
type RebateRate = decimal.Decimal

func ValidateRebateRate(rate decimal.Decimal) error {
	if rate.LessThanOrEqual(decimal.Zero) || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: got %s", ErrInvalidRebateRate, rate.String())
	}
	return nil
}

// CommissionRecord is one raw broker-commission row, normalized across exchanges.
type CommissionRecord struct {
	AccountID   string
	Amount      decimal.Decimal
	OccurredAt  time.Time
	ExternalRef string

	// Malformed is set when the exchange returned a row whose amount or
	// timestamp could not be parsed. Such rows never reach the ledger.
	Malformed bool
	RawAmount string
}

type FetchWindow struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
