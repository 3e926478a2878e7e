// internal/services/checkout_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

var (
	ErrEmptyCart     = errors.New("cart has no sellable items")
	ErrMixedCurrency = errors.New("cart items are priced in different currencies")
)

// CheckoutService freezes a cart into priced snapshot lines. It never
// mutates anything; order creation owns the transaction.
type CheckoutService struct {
	db *gorm.DB
}

func NewCheckoutService(db *gorm.DB) *CheckoutService {
	return &CheckoutService{db: db}
}

// LineTotal prices one line with banker's rounding at cent precision.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).RoundBank(2)
}

// BuildCartSnapshot reads the user's cart inside the caller's
// transaction and returns frozen lines, their subtotal, and the single
// currency they share. Quantities are clamped against current stock;
// lines that clamp to zero or whose product is gone are dropped. An
// empty result or a currency mix aborts the checkout.
func (s *CheckoutService) BuildCartSnapshot(tx *gorm.DB, userID uuid.UUID) (models.SnapshotLines, decimal.Decimal, models.Currency, error) {
	var cart models.Cart
	err := tx.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, decimal.Zero, "", ErrEmptyCart
		}
		return nil, decimal.Zero, "", err
	}

	lines := make(models.SnapshotLines, 0, len(cart.Items))
	subtotal := decimal.Zero
	currencies := make(map[models.Currency]bool)

	for _, item := range cart.Items {
		product := item.Product
		if product == nil || !product.IsActive {
			continue
		}

		qty := product.ClampQuantity(item.Quantity)
		if qty <= 0 {
			continue
		}

		line := models.SnapshotLine{
			ProductID: product.ID,
			Slug:      product.Slug,
			Name:      product.Name,
			SKU:       product.SKU,
			UnitPrice: product.Price,
			Quantity:  qty,
			LineTotal: LineTotal(product.Price, qty),
			Currency:  product.Currency,
		}

		lines = append(lines, line)
		subtotal = subtotal.Add(line.LineTotal)
		currencies[product.Currency] = true
	}

	if len(lines) == 0 {
		return nil, decimal.Zero, "", ErrEmptyCart
	}
	if len(currencies) > 1 {
		return nil, decimal.Zero, "", ErrMixedCurrency
	}

	var currency models.Currency
	for c := range currencies {
		currency = c
	}

	return lines, subtotal, currency, nil
}
