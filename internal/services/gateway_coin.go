// internal/services/gateway_coin.go
package services

import (
	"context"

	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

// coinGateway is the crypto option shown on the checkout page. It is
// not live yet: selecting it fails before any order is created.
type coinGateway struct{}

func NewCoinGateway() Gateway {
	return &coinGateway{}
}

func (g *coinGateway) Method() models.PaymentMethod {
	return models.PaymentMethodCoin
}

func (g *coinGateway) Configured() error {
	return ErrComingSoon
}

func (g *coinGateway) Begin(ctx context.Context, order *models.Order, user *models.User) (*BeginResult, error) {
	return nil, ErrComingSoon
}
