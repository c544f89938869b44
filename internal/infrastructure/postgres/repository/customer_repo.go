package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/postgres/models"
)

type DefaultCustomerRepository struct {
	DB *gorm.DB
}

func NewDefaultCustomerRepository(db *gorm.DB) *DefaultCustomerRepository {
	return &DefaultCustomerRepository{
		DB: db,
	}
}

// UpsertCustomer creates the customer on first contact and refreshes the profile fields afterwards.
func (r *DefaultCustomerRepository) UpsertCustomer(ctx context.Context, input domain.CustomerInput) (*domain.Customer, error) {
	now := time.Now().UTC()
	model := &models.CustomerModel{
		ID:        uuid.New().String(),
		ChatID:    input.ChatID,
		Username:  input.Username,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return nil, fmt.Errorf("upsert customer %s: %w", input.ChatID, err)
	}

	return r.GetCustomerByChatID(ctx, input.ChatID)
}

func (r *DefaultCustomerRepository) GetCustomerByChatID(ctx context.Context, chatID string) (*domain.Customer, error) {
	var model models.CustomerModel
	err := r.DB.WithContext(ctx).Preload("Bindings").Where("chat_id = ?", chatID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return mappers.ToDomainCustomer(&model), nil
}

// BindExchangeUID records the customer's UID on an exchange. Binding the
// same UID again is a no-op; any other change is rejected.
func (r *DefaultCustomerRepository) BindExchangeUID(ctx context.Context, chatID string, exchange domain.Exchange, uid string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.CustomerModel
		if err := tx.Where("chat_id = ?", chatID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrCustomerNotFound
			}
			return err
		}

		var existing []models.UIDBindingModel
		if err := tx.Where("exchange = ? AND (customer_id = ? OR uid = ?)", string(exchange), customer.ID, uid).
			Find(&existing).Error; err != nil {
			return err
		}
		for _, binding := range existing {
			if binding.CustomerID == customer.ID && binding.UID == uid {
				return nil
			}
			return fmt.Errorf("%s uid %s: %w", exchange, uid, domain.ErrUIDAlreadyBound)
		}

		return tx.Create(&models.UIDBindingModel{
			CustomerID: customer.ID,
			Exchange:   string(exchange),
			UID:        uid,
			CreatedAt:  time.Now().UTC(),
		}).Error
	})
}
