package models

import "time"

type CustomerModel struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	ChatID    string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time

	Bindings []UIDBindingModel `gorm:"foreignKey:CustomerID"`
}

// UIDBindingModel links a customer to their referral UID on one exchange.
// A customer has at most one UID per exchange and a UID belongs to one customer.
type UIDBindingModel struct {
	ID         uint   `gorm:"primaryKey"`
	CustomerID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_binding_customer_exchange"`
	Exchange   string `gorm:"type:varchar(16);not null;uniqueIndex:idx_binding_customer_exchange;uniqueIndex:idx_binding_exchange_uid"`
	UID        string `gorm:"type:varchar(64);not null;uniqueIndex:idx_binding_exchange_uid"`
	CreatedAt  time.Time
}
