// internal/services/gateway_twocheckout_test.go
package services

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

func TestTwoCheckoutConfigured(t *testing.T) {
	cfg := testConfig(t)

	gw := NewTwoCheckoutGateway(cfg.Payment.TwoCheckout, cfg.Site)
	assert.NoError(t, gw.Configured())

	unset := NewTwoCheckoutGateway(config.TwoCheckoutConfig{}, cfg.Site)
	assert.ErrorIs(t, unset.Configured(), ErrGatewayNotConfigured)
}

func TestTwoCheckoutBegin(t *testing.T) {
	cfg := testConfig(t)
	gw := NewTwoCheckoutGateway(cfg.Payment.TwoCheckout, cfg.Site)

	order := &models.Order{
		Code:     "GV-CAFE0001",
		Currency: models.CurrencyUSD,
		Subtotal: dec("30.00"),
		Total:    dec("30.00"),
	}
	user := &models.User{Username: "buyer", Email: "buyer@example.com"}

	result, err := gw.Begin(context.Background(), order, user)
	require.NoError(t, err)

	redirect, err := url.Parse(result.RedirectURL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.RedirectURL, cfg.Payment.TwoCheckout.BuyLinkBase))

	params := redirect.Query()
	assert.Equal(t, "30.00", params.Get("amount"))
	assert.Equal(t, "USD", params.Get("currency"))
	assert.Equal(t, order.ID.String(), params.Get("merchant_order_id"))
	assert.Equal(t, "GV-CAFE0001", params.Get("order-ext-ref"))
	assert.Equal(t, "buyer@example.com", params.Get("customer-email"))
	assert.Equal(t, cfg.Payment.TwoCheckout.SellerID, params.Get("sid"))
	assert.Equal(t, cfg.Site.BaseURL+"/v1/checkout/success?oc=GV-CAFE0001", params.Get("return-url"))
	assert.Equal(t, cfg.Site.BaseURL+"/v1/checkout/cancel?oc=GV-CAFE0001", params.Get("cancel-url"))

	// The signature covers everything but itself.
	assert.Equal(t, utils.SignParams(cfg.Payment.TwoCheckout.SecretWord, params), params.Get("signature"))

	payment := result.Payment
	require.NotNil(t, payment)
	assert.Equal(t, models.PaymentMethodTwoCheckout, payment.Method)
	assert.Equal(t, models.PaymentStatusProcessing, payment.Status)
	assert.Equal(t, "30.00", payment.Amount.StringFixed(2))
	assert.Equal(t, models.CurrencyUSD, payment.Currency)
	assert.Equal(t, order.Code, payment.ProviderRef)
	assert.Equal(t, result.RedirectURL, payment.Meta.RedirectURL)
}

func TestTwoCheckoutBeginWithoutSellerOrSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Payment.TwoCheckout.SellerID = ""
	cfg.Payment.TwoCheckout.SecretWord = ""
	gw := NewTwoCheckoutGateway(cfg.Payment.TwoCheckout, cfg.Site)

	order := &models.Order{Code: "GV-CAFE0002", Currency: models.CurrencyUSD, Total: dec("5.00")}
	result, err := gw.Begin(context.Background(), order, &models.User{Email: "b@example.com"})
	require.NoError(t, err)

	redirect, err := url.Parse(result.RedirectURL)
	require.NoError(t, err)
	params := redirect.Query()
	assert.Empty(t, params.Get("sid"))
	assert.Empty(t, params.Get("signature"))
}

func TestTwoCheckoutBeginBuyLinkWithQuery(t *testing.T) {
	cfg := testConfig(t)
	cfg.Payment.TwoCheckout.BuyLinkBase = "https://buy.example.com/purchase?product=42"
	gw := NewTwoCheckoutGateway(cfg.Payment.TwoCheckout, cfg.Site)

	order := &models.Order{Code: "GV-CAFE0003", Currency: models.CurrencyUSD, Total: dec("5.00")}
	result, err := gw.Begin(context.Background(), order, &models.User{Email: "b@example.com"})
	require.NoError(t, err)

	redirect, err := url.Parse(result.RedirectURL)
	require.NoError(t, err)
	params := redirect.Query()
	assert.Equal(t, "42", params.Get("product"))
	assert.Equal(t, "5.00", params.Get("amount"))
}
