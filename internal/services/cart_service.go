// internal/services/cart_service.go
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gvoiceus/gvoiceus-backend/internal/database"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

var (
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
)

type CartService struct {
	db     *gorm.DB
	guests GuestCartStore
	log    *logrus.Entry
}

func NewCartService(db *gorm.DB, guests GuestCartStore) *CartService {
	return &CartService{
		db:     db,
		guests: guests,
		log:    logrus.WithField("service", "cart"),
	}
}

// Request types
type AddCartItemRequest struct {
	Slug     string `json:"slug" validate:"required,slug"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

type CartItemView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Slug      string          `json:"slug"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  models.Currency `json:"currency"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartView struct {
	Items         []CartItemView  `json:"items"`
	Count         int             `json:"count"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Currency      models.Currency `json:"currency,omitempty"`
	MixedCurrency bool            `json:"mixed_currency,omitempty"`
}

// AddItem adds a product to the user's cart by slug, incrementing the
// existing line under a row lock so concurrent adds never lose counts.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, slug string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		product, err := activeProductBySlug(tx, slug)
		if err != nil {
			return err
		}

		cart, err := s.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		var item models.CartItem
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND product_id = ?", cart.ID, product.ID).
			First(&item).Error

		switch {
		case err == nil:
			item.Quantity = product.ClampQuantity(item.Quantity + quantity)
			return tx.Save(&item).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
				Quantity:  product.ClampQuantity(quantity),
			}
			if item.Quantity == 0 {
				return ErrProductUnavailable
			}
			return tx.Create(&item).Error
		default:
			return err
		}
	})
}

// SetQuantity pins a cart line to an exact quantity. Zero or negative
// removes the line. Missing lines are created when the product exists.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		cart, err := s.getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		if quantity <= 0 {
			return tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).
				Delete(&models.CartItem{}).Error
		}

		var product models.Product
		if err := tx.Where("id = ? AND is_active = ?", productID, true).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductUnavailable
			}
			return err
		}

		quantity = product.ClampQuantity(quantity)

		var item models.CartItem
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			First(&item).Error

		switch {
		case err == nil:
			item.Quantity = quantity
			return tx.Save(&item).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
			return tx.Create(&item).Error
		default:
			return err
		}
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		return tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			Delete(&models.CartItem{}).Error
	})
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return s.ClearTx(tx, userID)
	})
}

// ClearTx empties the cart inside a caller-owned transaction, used by
// reconciliation when an order flips to paid.
func (s *CartService) ClearTx(tx *gorm.DB, userID uuid.UUID) error {
	var cart models.Cart
	if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
}

// View returns the priced cart. Quantities are clamped against current
// stock on the way out, so the page never promises more than checkout
// would allow.
func (s *CartService) View(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &CartView{Items: []CartItemView{}, Subtotal: decimal.Zero}, nil
		}
		return nil, err
	}

	return buildCartView(cart.Items), nil
}

func (s *CartService) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Guest cart operations

func (s *CartService) GuestAdd(ctx context.Context, token, slug string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	product, err := activeProductBySlug(s.db.WithContext(ctx), slug)
	if err != nil {
		return err
	}

	total, err := s.guests.IncrItem(ctx, token, product.ID.String(), quantity)
	if err != nil {
		return err
	}
	if clamped := product.ClampQuantity(total); clamped != total {
		return s.guests.SetItem(ctx, token, product.ID.String(), clamped)
	}
	return nil
}

func (s *CartService) GuestSetQuantity(ctx context.Context, token string, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return s.guests.RemoveItem(ctx, token, productID.String())
	}

	var product models.Product
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", productID, true).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductUnavailable
		}
		return err
	}

	return s.guests.SetItem(ctx, token, productID.String(), product.ClampQuantity(quantity))
}

func (s *CartService) GuestRemoveItem(ctx context.Context, token string, productID uuid.UUID) error {
	return s.guests.RemoveItem(ctx, token, productID.String())
}

func (s *CartService) GuestClear(ctx context.Context, token string) error {
	return s.guests.Clear(ctx, token)
}

// GuestView prices the anonymous cart against live products. Lines whose
// product vanished or was deactivated are silently dropped.
func (s *CartService) GuestView(ctx context.Context, token string) (*CartView, error) {
	raw, err := s.guests.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &CartView{Items: []CartItemView{}, Subtotal: decimal.Zero}, nil
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for productID := range raw {
		id, err := uuid.Parse(productID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	var products []models.Product
	if err := s.db.WithContext(ctx).Where("id IN ? AND is_active = ?", ids, true).
		Order("created_at ASC").Find(&products).Error; err != nil {
		return nil, err
	}

	items := make([]models.CartItem, 0, len(products))
	for i := range products {
		qty := raw[products[i].ID.String()]
		items = append(items, models.CartItem{
			ProductID: products[i].ID,
			Quantity:  qty,
			Product:   &products[i],
		})
	}

	return buildCartView(items), nil
}

// MergeGuestCart folds an anonymous cart into the user's cart at login
// or email confirmation, then discards the guest copy.
func (s *CartService) MergeGuestCart(ctx context.Context, token string, userID uuid.UUID) error {
	raw, err := s.guests.Get(ctx, token)
	if err != nil {
		return err
	}

	for productID, quantity := range raw {
		id, err := uuid.Parse(productID)
		if err != nil {
			continue
		}

		var product models.Product
		if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&product).Error; err != nil {
			continue
		}

		if err := s.AddItem(ctx, userID, product.Slug, quantity); err != nil {
			s.log.WithError(err).WithField("product_id", productID).Warn("Skipping guest cart line during merge")
		}
	}

	return s.guests.Clear(ctx, token)
}

// helpers

func (s *CartService) getOrCreateCart(tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = models.Cart{UserID: userID}
	if err := tx.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func activeProductBySlug(tx *gorm.DB, slug string) (*models.Product, error) {
	var product models.Product
	err := tx.Where("slug = ? AND is_active = ?", slug, true).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	return &product, nil
}

func buildCartView(items []models.CartItem) *CartView {
	view := &CartView{
		Items:    make([]CartItemView, 0, len(items)),
		Subtotal: decimal.Zero,
	}

	currencies := make(map[models.Currency]bool)
	for _, item := range items {
		if item.Product == nil || !item.Product.IsActive {
			continue
		}

		qty := item.Product.ClampQuantity(item.Quantity)
		if qty <= 0 {
			continue
		}

		line := CartItemView{
			ProductID: item.ProductID,
			Slug:      item.Product.Slug,
			Name:      item.Product.Name,
			UnitPrice: item.Product.Price,
			Currency:  item.Product.Currency,
			Quantity:  qty,
			LineTotal: LineTotal(item.Product.Price, qty),
		}
		view.Items = append(view.Items, line)
		view.Count += qty
		currencies[line.Currency] = true
	}

	if len(currencies) == 1 {
		for currency := range currencies {
			view.Currency = currency
		}
		for _, line := range view.Items {
			view.Subtotal = view.Subtotal.Add(line.LineTotal)
		}
	} else if len(currencies) > 1 {
		view.MixedCurrency = true
	}

	return view
}
