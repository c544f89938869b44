package mappers

import (
	"github.com/LavaJover/shvark-rebate-service/internal/domain"
	"github.com/LavaJover/shvark-rebate-service/internal/infrastructure/postgres/models"
)

func ToDomainCustomer(model *models.CustomerModel) *domain.Customer {
	customer := &domain.Customer{
		ID:        model.ID,
		ChatID:    model.ChatID,
		Username:  model.Username,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		Bindings:  make(map[domain.Exchange]string, len(model.Bindings)),
	}
	for _, binding := range model.Bindings {
		exchange, err := domain.ParseExchange(binding.Exchange)
		if err != nil {
			continue
		}
		customer.Bindings[exchange] = binding.UID
	}
	return customer
}
