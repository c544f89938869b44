package domain

import "errors"

var (
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrUIDAlreadyBound   = errors.New("exchange uid already bound")
	ErrUnknownExchange   = errors.New("unknown exchange")
	ErrInvalidRebateRate = errors.New("rebate rate must be in (0, 1]")
)
