// internal/services/payment_service_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
)

func paymentFixture(t *testing.T, cfg *config.Config) (*gorm.DB, *PaymentService, *models.User) {
	t.Helper()

	db := newTestDB(t)
	orders := NewOrderService(db, NewCheckoutService(db))
	svc := NewPaymentService(db, cfg, orders)
	user := createUser(t, db, "buyer", models.UserRoleCustomer)
	return db, svc, user
}

func orderCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func TestStartCheckoutUnknownMethod(t *testing.T) {
	db, svc, user := paymentFixture(t, testConfig(t))

	_, err := svc.StartCheckout(context.Background(), user.ID, "paypal")
	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
	assert.Zero(t, orderCount(t, db))
}

func TestStartCheckoutUnconfiguredGatewayFailsBeforeOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Payment.TwoCheckout.BuyLinkBase = ""
	db, svc, user := paymentFixture(t, cfg)

	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	_, err := svc.StartCheckout(context.Background(), user.ID, models.PaymentMethodTwoCheckout)
	assert.ErrorIs(t, err, ErrGatewayNotConfigured)
	assert.Zero(t, orderCount(t, db))
}

func TestStartCheckoutCoinComingSoon(t *testing.T) {
	db, svc, user := paymentFixture(t, testConfig(t))

	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	_, err := svc.StartCheckout(context.Background(), user.ID, models.PaymentMethodCoin)
	assert.ErrorIs(t, err, ErrComingSoon)
	assert.Zero(t, orderCount(t, db))
	assert.Equal(t, int64(1), cartItemCount(t, db, user.ID))
}

func TestStartCheckoutTwoCheckout(t *testing.T) {
	db, svc, user := paymentFixture(t, testConfig(t))

	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 5)
	addCartLine(t, db, user.ID, product.ID, 3)

	result, err := svc.StartCheckout(context.Background(), user.ID, models.PaymentMethodTwoCheckout)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, result.Order.Status)
	assert.Equal(t, "30.00", result.Order.Total.StringFixed(2))
	assert.NotEmpty(t, result.RedirectURL)

	redirect, err := url.Parse(result.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID.String(), redirect.Query().Get("merchant_order_id"))

	payment := latestPayment(t, db, result.Order.ID)
	assert.Equal(t, models.PaymentStatusProcessing, payment.Status)
	assert.Equal(t, "30.00", payment.Amount.StringFixed(2))

	var events int64
	require.NoError(t, db.Model(&models.PaymentEvent{}).
		Where("payment_id = ? AND kind = ?", payment.ID, "init").Count(&events).Error)
	assert.Equal(t, int64(1), events)

	// The cart survives until the payment lands.
	assert.Equal(t, int64(1), cartItemCount(t, db, user.ID))
}

func TestStartCheckoutSSLCommerzConversion(t *testing.T) {
	cfg := testConfig(t)
	server, _ := fakeSSLCommerz(t, jsonInitSuccess("https://pay.example.com/session/9"))
	cfg.Payment.SSLCommerz.InitURL = server.URL
	db, svc, user := paymentFixture(t, cfg)

	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	result, err := svc.StartCheckout(context.Background(), user.ID, models.PaymentMethodSSLCommerz)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/session/9", result.RedirectURL)

	payment := latestPayment(t, db, result.Order.ID)
	assert.Equal(t, models.CurrencyBDT, payment.Currency)
	assert.Equal(t, "1250.00", payment.Amount.StringFixed(2))
	assert.Equal(t, "125", payment.Meta.FXRate.String())
	assert.Equal(t, models.OrderStatusPending, reloadOrder(t, db, result.Order.ID).Status)
}

func TestStartCheckoutBelowMinimumCancelsOrder(t *testing.T) {
	cfg := testConfig(t)
	server, _ := fakeSSLCommerz(t, jsonInitSuccess("unused"))
	cfg.Payment.SSLCommerz.InitURL = server.URL
	db, svc, user := paymentFixture(t, cfg)

	// 9.99 BDT converts at rate 1 to 9.99, under the 10.00 floor.
	product := createProduct(t, db, "Tiny", "9.99", models.CurrencyBDT, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	_, err := svc.StartCheckout(context.Background(), user.ID, models.PaymentMethodSSLCommerz)
	var cancel *CancelOrderError
	require.ErrorAs(t, err, &cancel)
	assert.ErrorIs(t, cancel.Reason, ErrAmountBelowMinimum)

	// The order was created first, then closed, never abandoned.
	var order models.Order
	require.NoError(t, db.First(&order).Error)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Contains(t, order.Notes, "floor")

	var payments int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&payments).Error)
	assert.Zero(t, payments)
}

func TestStartCheckoutUnsupportedCurrencyCancelsOrder(t *testing.T) {
	cfg := testConfig(t)
	server, _ := fakeSSLCommerz(t, jsonInitSuccess("unused"))
	cfg.Payment.SSLCommerz.InitURL = server.URL
	db, svc, user := paymentFixture(t, cfg)

	product := createProduct(t, db, "Rupee Item", "800.00", models.CurrencyINR, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	_, err := svc.StartCheckout(context.Background(), user.ID, models.PaymentMethodSSLCommerz)
	var cancel *CancelOrderError
	require.ErrorAs(t, err, &cancel)
	assert.ErrorIs(t, cancel.Reason, ErrUnsupportedCurrency)

	var order models.Order
	require.NoError(t, db.First(&order).Error)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
}

func TestStartCheckoutGatewayRejectionLeavesOrderPending(t *testing.T) {
	cfg := testConfig(t)
	server, _ := fakeSSLCommerz(t, func(w http.ResponseWriter, _ url.Values) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "FAILED", "failedreason": "risk check"})
	})
	cfg.Payment.SSLCommerz.InitURL = server.URL
	db, svc, user := paymentFixture(t, cfg)

	product := createProduct(t, db, "Number 1Y", "10.00", models.CurrencyUSD, 0)
	addCartLine(t, db, user.ID, product.ID, 1)

	_, err := svc.StartCheckout(context.Background(), user.ID, models.PaymentMethodSSLCommerz)
	var initErr *GatewayInitError
	require.ErrorAs(t, err, &initErr)

	// A transient rejection keeps the order open for a retry.
	var order models.Order
	require.NoError(t, db.First(&order).Error)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}
