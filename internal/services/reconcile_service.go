// internal/services/reconcile_service.go
package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/database"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

// TrustPolicy decides which gateway notifications may move money state.
type TrustPolicy string

const (
	// TrustAll accepts unsigned webhooks. Development only.
	TrustAll TrustPolicy = "trust_all"
	// RequireSignature rejects webhooks whose signature does not verify.
	RequireSignature TrustPolicy = "require_signature"
)

var ErrInvalidSignature = errors.New("webhook signature did not verify")

// ReconcileService is the single writer for post-checkout money state.
// Every notification, trusted or not, is appended to the order's audit
// trail; only transitions the status machine allows are applied.
type ReconcileService struct {
	db            *gorm.DB
	orders        *OrderService
	cart          *CartService
	mail          *NotificationService
	policy        TrustPolicy
	trustRedirect bool
	secret        string
	log           *logrus.Entry
}

func NewReconcileService(db *gorm.DB, cfg *config.Config, orders *OrderService, cart *CartService, mail *NotificationService) *ReconcileService {
	policy := RequireSignature
	if cfg.Payment.Debug {
		policy = TrustAll
	}

	return &ReconcileService{
		db:            db,
		orders:        orders,
		cart:          cart,
		mail:          mail,
		policy:        policy,
		trustRedirect: cfg.Payment.TrustRedirect,
		secret:        cfg.Payment.TwoCheckout.SecretWord,
		log:           logrus.WithField("service", "reconcile"),
	}
}

// HandleTwoCheckoutWebhook processes one gateway notification. A
// notification for an unknown order is acknowledged and logged, never
// bounced, so the provider does not retry forever.
func (s *ReconcileService) HandleTwoCheckoutWebhook(ctx context.Context, params url.Values, remoteIP string) error {
	trusted := utils.VerifySignature(s.secret, params, params.Get("signature"))
	if !trusted && s.policy == RequireSignature {
		s.log.WithField("ip", remoteIP).Warn("Rejected unsigned webhook")
		return ErrInvalidSignature
	}

	ref := params.Get("merchant_order_id")
	if ref == "" {
		ref = params.Get("order-ext-ref")
	}

	order, err := s.orders.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			s.log.WithFields(logrus.Fields{"ref": ref, "ip": remoteIP}).Warn("Webhook for unknown order, acknowledging")
			return nil
		}
		return err
	}

	rawStatus := firstNonEmpty(
		params.Get("invoice_status"),
		params.Get("order_status"),
		params.Get("status"),
	)
	mapped, known := mapProviderStatus(rawStatus)

	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var current models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", order.ID).First(&current).Error; err != nil {
			return err
		}

		entry := models.WebhookAuditEntry{
			ReceivedAt:   time.Now().UTC(),
			RemoteIP:     remoteIP,
			RawStatus:    rawStatus,
			MappedStatus: mapped,
			Trusted:      trusted,
			Params:       flattenParams(params),
		}

		if known && models.CanTransition(current.Status, mapped) {
			entry.Applied = true
			if current.Status != mapped {
				if err := s.applyStatus(tx, &current, mapped); err != nil {
					return err
				}
			}
		} else if known {
			s.log.WithFields(logrus.Fields{
				"order": current.Code,
				"from":  current.Status,
				"to":    mapped,
			}).Warn("Webhook transition rejected by status machine")
		}

		current.Data.Webhooks = append(current.Data.Webhooks, entry)
		if err := tx.Model(&current).Update("data", current.Data).Error; err != nil {
			return err
		}

		return s.recordPaymentOutcome(tx, &current, models.PaymentMethodTwoCheckout, mapped, known && entry.Applied, "webhook", flattenParams(params))
	})
}

// ConfirmReturn handles the buyer landing back on the success URL. With
// redirect trust on, an in-flight payment is settled optimistically;
// otherwise the return is only recorded and the webhook stays the
// source of truth. Unknown codes return nil so the page can 200.
func (s *ReconcileService) ConfirmReturn(ctx context.Context, code string) (*models.Order, error) {
	order, err := s.orders.FindByRef(ctx, code)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, nil
		}
		return nil, err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var current models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", order.ID).First(&current).Error; err != nil {
			return err
		}

		entry := models.ReturnAuditEntry{ReceivedAt: time.Now().UTC(), Kind: "success"}

		var latest models.Payment
		hasPayment := tx.Where("order_id = ?", current.ID).
			Order("created_at DESC").First(&latest).Error == nil

		settle := s.trustRedirect &&
			hasPayment && latest.Status.InFlight() &&
			models.CanTransition(current.Status, models.OrderStatusPaid)

		if settle {
			entry.Applied = current.Status != models.OrderStatusPaid
			if entry.Applied {
				if err := s.applyStatus(tx, &current, models.OrderStatusPaid); err != nil {
					return err
				}
			}
			if err := s.recordPaymentOutcome(tx, &current, latest.Method, models.OrderStatusPaid, true, "return_success", nil); err != nil {
				return err
			}
		}

		current.Data.Returns = append(current.Data.Returns, entry)
		if err := tx.Model(&current).Update("data", current.Data).Error; err != nil {
			return err
		}

		*order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// CancelReturn handles the buyer backing out at the gateway. Pending
// orders close; anything settled is untouched, so the endpoint is safe
// to hit twice.
func (s *ReconcileService) CancelReturn(ctx context.Context, code string) (*models.Order, error) {
	order, err := s.orders.FindByRef(ctx, code)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, nil
		}
		return nil, err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var current models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", order.ID).First(&current).Error; err != nil {
			return err
		}

		entry := models.ReturnAuditEntry{ReceivedAt: time.Now().UTC(), Kind: "cancel"}

		if current.Status == models.OrderStatusPending {
			entry.Applied = true
			if err := s.orders.Transition(tx, &current, models.OrderStatusCancelled); err != nil {
				return err
			}
			if err := tx.Model(&models.Payment{}).
				Where("order_id = ? AND status IN ?", current.ID,
					[]models.PaymentStatus{models.PaymentStatusCreated, models.PaymentStatusProcessing}).
				Update("status", models.PaymentStatusCancelled).Error; err != nil {
				return err
			}
		}

		current.Data.Returns = append(current.Data.Returns, entry)
		if err := tx.Model(&current).Update("data", current.Data).Error; err != nil {
			return err
		}

		*order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// applyStatus performs one accepted transition plus its side effects.
// Going to paid stamps the time, starts fulfillment, and empties the
// buyer's cart in the same transaction.
func (s *ReconcileService) applyStatus(tx *gorm.DB, order *models.Order, to models.OrderStatus) error {
	if err := s.orders.Transition(tx, order, to); err != nil {
		return err
	}

	if to != models.OrderStatusPaid {
		return nil
	}

	now := time.Now().UTC()
	order.PaidAt = &now
	order.Fulfillment = models.FulfillmentRunning
	if err := tx.Model(order).Updates(map[string]interface{}{
		"paid_at":     now,
		"fulfillment": models.FulfillmentRunning,
	}).Error; err != nil {
		return err
	}

	if err := s.cart.ClearTx(tx, order.UserID); err != nil {
		return err
	}

	s.sendReceipt(tx, order)
	return nil
}

// recordPaymentOutcome syncs the order's latest payment attempt for the
// given method with the applied order status and appends a raw event.
func (s *ReconcileService) recordPaymentOutcome(tx *gorm.DB, order *models.Order, method models.PaymentMethod, mapped models.OrderStatus, applied bool, kind string, payload map[string]string) error {
	if !models.KnownPaymentMethod(method) {
		s.log.WithField("method", method).Warn("Skipping payment update for unknown method")
		return nil
	}

	var payment models.Payment
	err := tx.Where("order_id = ? AND method = ?", order.ID, method).
		Order("created_at DESC").First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if applied {
		if status, ok := paymentStatusFor(mapped); ok && payment.Status != status {
			payment.Status = status
			if err := tx.Model(&payment).Update("status", status).Error; err != nil {
				return err
			}
		}
	}

	eventPayload := models.JSONB{"applied": applied, "mapped_status": string(mapped)}
	for k, v := range payload {
		eventPayload[k] = v
	}
	event := &models.PaymentEvent{
		PaymentID: payment.ID,
		Kind:      kind,
		Payload:   eventPayload,
	}
	return tx.Create(event).Error
}

func (s *ReconcileService) sendReceipt(tx *gorm.DB, order *models.Order) {
	var user models.User
	if err := tx.First(&user, "id = ?", order.UserID).Error; err != nil {
		s.log.WithError(err).Warn("Receipt skipped, buyer not loaded")
		return
	}
	if err := s.mail.SendOrderReceipt(&user, order); err != nil {
		s.log.WithError(err).WithField("order", order.Code).Warn("Receipt email failed")
	}
}

// mapProviderStatus folds the provider's free-text status into our
// status machine. Refund wording is checked before success wording
// because refund notices often also contain the word "complete".
func mapProviderStatus(raw string) (models.OrderStatus, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return "", false
	case strings.Contains(v, "chargeback"), strings.Contains(v, "charged back"), strings.Contains(v, "refund"):
		return models.OrderStatusChargedBack, true
	case strings.Contains(v, "approved"), strings.Contains(v, "complete"),
		strings.Contains(v, "paid"), strings.Contains(v, "success"):
		return models.OrderStatusPaid, true
	case strings.Contains(v, "declined"), strings.Contains(v, "fail"):
		return models.OrderStatusFailed, true
	case strings.Contains(v, "cancel"):
		return models.OrderStatusCancelled, true
	default:
		return "", false
	}
}

func paymentStatusFor(orderStatus models.OrderStatus) (models.PaymentStatus, bool) {
	switch orderStatus {
	case models.OrderStatusPaid:
		return models.PaymentStatusSucceeded, true
	case models.OrderStatusFailed:
		return models.PaymentStatusFailed, true
	case models.OrderStatusCancelled, models.OrderStatusExpired:
		return models.PaymentStatusCancelled, true
	case models.OrderStatusChargedBack:
		return models.PaymentStatusRefunded, true
	default:
		return "", false
	}
}

func flattenParams(params url.Values) map[string]string {
	flat := make(map[string]string, len(params))
	for k := range params {
		if k == "store_passwd" || k == "signature" {
			continue
		}
		flat[k] = params.Get(k)
	}
	return flat
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
