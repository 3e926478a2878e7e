// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gvoiceus/gvoiceus-backend/internal/database"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

const orderCodeAttempts = 5

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderCodeExhausted = errors.New("could not allocate a unique order code")
	ErrInvalidTransition  = errors.New("order status transition not allowed")
)

type OrderService struct {
	db       *gorm.DB
	checkout *CheckoutService
	log      *logrus.Entry

	// newCode is swappable so collision handling is testable.
	newCode func() (string, error)
}

func NewOrderService(db *gorm.DB, checkout *CheckoutService) *OrderService {
	return &OrderService{
		db:       db,
		checkout: checkout,
		log:      logrus.WithField("service", "order"),
		newCode:  generateOrderCode,
	}
}

// generateOrderCode returns a human-quotable code like GV-3F0A9C2E.
func generateOrderCode() (string, error) {
	h, err := utils.RandomHex(4)
	if err != nil {
		return "", err
	}
	return "GV-" + strings.ToUpper(h), nil
}

// CreateFromCart freezes the cart into a pending order. The cart itself
// is left alone; it empties only when a payment actually lands.
func (s *OrderService) CreateFromCart(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order *models.Order

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		lines, subtotal, currency, err := s.checkout.BuildCartSnapshot(tx, userID)
		if err != nil {
			return err
		}

		for attempt := 0; attempt < orderCodeAttempts; attempt++ {
			code, err := s.newCode()
			if err != nil {
				return err
			}

			// Probe before inserting: a failed INSERT would abort the
			// whole transaction on postgres. The unique index still
			// backs this up if two checkouts race on the same code.
			var taken int64
			if err := tx.Model(&models.Order{}).Where("code = ?", code).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				s.log.WithField("code", code).Warn("Order code collision, retrying")
				continue
			}

			candidate := &models.Order{
				Code:        code,
				UserID:      userID,
				Status:      models.OrderStatusPending,
				Currency:    currency,
				Subtotal:    subtotal,
				Total:       subtotal,
				Snapshot:    lines,
				Fulfillment: models.FulfillmentNone,
			}
			if err := tx.Create(candidate).Error; err != nil {
				return err
			}

			order = candidate
			break
		}

		if order == nil {
			return ErrOrderCodeExhausted
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			productID := line.ProductID
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: &productID,
				Name:      line.Name,
				SKU:       line.SKU,
				UnitPrice: line.UnitPrice,
				Quantity:  line.Quantity,
				LineTotal: line.LineTotal,
				Currency:  line.Currency,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"code":     order.Code,
		"total":    order.Total.StringFixed(2),
		"currency": order.Currency,
	}).Info("Order created")

	return order, nil
}

// Transition moves an order to a new status inside the caller's
// transaction, enforcing the status machine. Same-status is a no-op.
func (s *OrderService) Transition(tx *gorm.DB, order *models.Order, to models.OrderStatus) error {
	if !models.CanTransition(order.Status, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, to)
	}
	if order.Status == to {
		return nil
	}
	order.Status = to
	return tx.Model(order).Update("status", to).Error
}

type OrderSummaryRow struct {
	Status models.OrderStatus `json:"status"`
	Count  int64              `json:"count"`
	Amount decimal.Decimal    `json:"amount"`
}

// ListForUser pages the customer's own orders, optionally filtered by
// status, with a per-status summary alongside.
func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID, status string, params utils.PaginationParams) ([]models.Order, int64, []OrderSummaryRow, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, nil, err
	}

	var orders []models.Order
	query = utils.ApplySort(query, params, []string{"created_at", "total", "status"})
	if err := utils.ApplyPagination(query, params).Preload("Items").Find(&orders).Error; err != nil {
		return nil, 0, nil, err
	}

	summary, err := s.userSummary(ctx, userID)
	if err != nil {
		return nil, 0, nil, err
	}

	return orders, total, summary, nil
}

func (s *OrderService) userSummary(ctx context.Context, userID uuid.UUID) ([]OrderSummaryRow, error) {
	var rows []OrderSummaryRow
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS amount").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// GetForUser returns one of the customer's own settled orders. Pending
// and failed orders stay off the account page, matching the storefront.
func (s *OrderService) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Where("id = ? AND user_id = ?", orderID, userID).
		Where("status IN ?", []models.OrderStatus{models.OrderStatusPaid, models.OrderStatusChargedBack}).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByRef resolves a gateway reference that may be either the order
// UUID or the public order code.
func (s *OrderService) FindByRef(ctx context.Context, ref string) (*models.Order, error) {
	if ref == "" {
		return nil, ErrOrderNotFound
	}

	query := s.db.WithContext(ctx)
	if id, err := uuid.Parse(ref); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("code = ?", strings.ToUpper(strings.TrimSpace(ref)))
	}

	var order models.Order
	if err := query.First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Staff queries

type StaffOrderSummary struct {
	PerStatus []OrderSummaryRow `json:"per_status"`
	Revenue   decimal.Decimal   `json:"revenue"`
}

func (s *OrderService) ListAll(ctx context.Context, status string, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if params.Search != "" {
		needle := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(code) LIKE ?", needle)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	query = utils.ApplySort(query, params, []string{"created_at", "total", "status", "code"})
	if err := utils.ApplyPagination(query, params).Preload("User").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *OrderService) GlobalSummary(ctx context.Context) (*StaffOrderSummary, error) {
	var rows []OrderSummaryRow
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS amount").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &StaffOrderSummary{PerStatus: rows, Revenue: decimal.Zero}
	for _, row := range rows {
		if row.Status == models.OrderStatusPaid || row.Status == models.OrderStatusChargedBack {
			summary.Revenue = summary.Revenue.Add(row.Amount)
		}
	}
	return summary, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Items").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Payments.Events", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Expire abandons a stale pending order. Anything else is rejected by
// the status machine.
func (s *OrderService) Expire(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if err := s.Transition(tx, &order, models.OrderStatusExpired); err != nil {
			return err
		}

		return tx.Model(&models.Payment{}).
			Where("order_id = ? AND status IN ?", order.ID,
				[]models.PaymentStatus{models.PaymentStatusCreated, models.PaymentStatusProcessing}).
			Update("status", models.PaymentStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// isUniqueViolation matches duplicate-key failures across the drivers
// we run on (postgres in production, sqlite in tests).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
