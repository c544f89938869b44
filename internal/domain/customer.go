package domain

import (
	"context"
	"time"
)

type Customer struct {
	ID        string
	ChatID    string
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Bindings maps an exchange to the UID the customer registered there.
	Bindings map[Exchange]string
}

type CustomerInput struct {
	ChatID    string
	Username  string
	FirstName string
	LastName  string
}

type CustomerRepository interface {
	UpsertCustomer(ctx context.Context, input CustomerInput) (*Customer, error)
	BindExchangeUID(ctx context.Context, chatID string, exchange Exchange, uid string) error
	GetCustomerByChatID(ctx context.Context, chatID string) (*Customer, error)
}
