// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/database"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

var (
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrGatewayNotConfigured = errors.New("payment method is not configured")
	ErrComingSoon           = errors.New("payment method is coming soon")
)

// CancelOrderError wraps a gateway rejection that is final for this
// order as priced: the order is cancelled rather than left pending.
type CancelOrderError struct {
	Reason error
}

func (e *CancelOrderError) Error() string { return e.Reason.Error() }
func (e *CancelOrderError) Unwrap() error { return e.Reason }

// GatewayInitError is a transient provider-side failure. The order
// stays pending so the buyer can retry the same order later.
type GatewayInitError struct {
	Reason string
}

func (e *GatewayInitError) Error() string {
	return "payment gateway rejected initialization: " + e.Reason
}

// BeginResult is what a gateway hands back after opening a session: the
// page to send the buyer to and an unsaved payment row describing the
// attempt.
type BeginResult struct {
	RedirectURL string
	Payment     *models.Payment
}

// Gateway opens a payment session with one provider. Configured is
// checked before any order row is written, so a switched-off gateway
// never leaves pending orders behind.
type Gateway interface {
	Method() models.PaymentMethod
	Configured() error
	Begin(ctx context.Context, order *models.Order, user *models.User) (*BeginResult, error)
}

type PaymentService struct {
	db       *gorm.DB
	orders   *OrderService
	gateways map[models.PaymentMethod]Gateway
	log      *logrus.Entry
}

type StartCheckoutRequest struct {
	Method string `json:"method" validate:"required,oneof=twocheckout sslcommerz coin"`
}

type CheckoutStart struct {
	Order       *models.Order   `json:"order"`
	Payment     *models.Payment `json:"payment"`
	RedirectURL string          `json:"redirect_url"`
}

func NewPaymentService(db *gorm.DB, cfg *config.Config, orders *OrderService) *PaymentService {
	s := &PaymentService{
		db:       db,
		orders:   orders,
		gateways: make(map[models.PaymentMethod]Gateway),
		log:      logrus.WithField("service", "payment"),
	}

	s.Register(NewTwoCheckoutGateway(cfg.Payment.TwoCheckout, cfg.Site))
	s.Register(NewSSLCommerzGateway(cfg.Payment.SSLCommerz, cfg.Site, nil))
	s.Register(NewCoinGateway())

	return s
}

func (s *PaymentService) Register(gw Gateway) {
	s.gateways[gw.Method()] = gw
}

// StartCheckout turns the user's cart into a pending order and opens a
// gateway session for it. Where the order ends up on failure depends on
// the failure: cancel errors close it, init errors leave it pending.
func (s *PaymentService) StartCheckout(ctx context.Context, userID uuid.UUID, method models.PaymentMethod) (*CheckoutStart, error) {
	gw, ok := s.gateways[method]
	if !ok {
		return nil, ErrUnknownPaymentMethod
	}
	if err := gw.Configured(); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	order, err := s.orders.CreateFromCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := gw.Begin(ctx, order, &user)
	if err != nil {
		var cancel *CancelOrderError
		if errors.As(err, &cancel) {
			s.cancelOrder(ctx, order, cancel.Reason.Error())
		}
		return nil, err
	}

	result.Payment.OrderID = order.ID
	if err := s.db.WithContext(ctx).Create(result.Payment).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment attempt: %w", err)
	}

	event := &models.PaymentEvent{
		PaymentID: result.Payment.ID,
		Kind:      "init",
		Payload: models.JSONB{
			"method":   string(method),
			"amount":   result.Payment.Amount.StringFixed(2),
			"currency": string(result.Payment.Currency),
			"redirect": result.RedirectURL,
		},
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		s.log.WithError(err).Warn("Failed to record payment init event")
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"code":     order.Code,
		"method":   method,
	}).Info("Checkout session opened")

	return &CheckoutStart{
		Order:       order,
		Payment:     result.Payment,
		RedirectURL: result.RedirectURL,
	}, nil
}

func (s *PaymentService) cancelOrder(ctx context.Context, order *models.Order, reason string) {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var current models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", order.ID).First(&current).Error; err != nil {
			return err
		}
		if err := s.orders.Transition(tx, &current, models.OrderStatusCancelled); err != nil {
			return err
		}
		current.Notes = appendNote(current.Notes, reason)
		return tx.Model(&current).Update("notes", current.Notes).Error
	})
	if err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Error("Failed to cancel rejected order")
		return
	}
	order.Status = models.OrderStatusCancelled
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
