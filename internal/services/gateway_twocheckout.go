// internal/services/gateway_twocheckout.go
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

// twoCheckoutGateway builds a hosted buy-link and sends the buyer there.
// No network call happens at begin time; settlement arrives later via
// webhook or the return redirect.
type twoCheckoutGateway struct {
	cfg  config.TwoCheckoutConfig
	site config.SiteConfig
}

func NewTwoCheckoutGateway(cfg config.TwoCheckoutConfig, site config.SiteConfig) Gateway {
	return &twoCheckoutGateway{cfg: cfg, site: site}
}

func (g *twoCheckoutGateway) Method() models.PaymentMethod {
	return models.PaymentMethodTwoCheckout
}

func (g *twoCheckoutGateway) Configured() error {
	if g.cfg.BuyLinkBase == "" {
		return ErrGatewayNotConfigured
	}
	return nil
}

func (g *twoCheckoutGateway) Begin(ctx context.Context, order *models.Order, user *models.User) (*BeginResult, error) {
	returnURL := fmt.Sprintf("%s/v1/checkout/success?oc=%s", g.site.BaseURL, order.Code)
	cancelURL := fmt.Sprintf("%s/v1/checkout/cancel?oc=%s", g.site.BaseURL, order.Code)

	params := url.Values{}
	params.Set("currency", string(order.Currency))
	params.Set("amount", order.Total.StringFixed(2))
	params.Set("merchant_order_id", order.ID.String())
	params.Set("order-ext-ref", order.Code)
	params.Set("customer-email", user.Email)
	params.Set("return-url", returnURL)
	params.Set("return-type", "redirect")
	params.Set("x_receipt_link_url", returnURL)
	params.Set("cancel-url", cancelURL)
	if g.cfg.SellerID != "" {
		params.Set("sid", g.cfg.SellerID)
	}
	if g.cfg.SecretWord != "" {
		params.Set("signature", utils.SignParams(g.cfg.SecretWord, params))
	}

	sep := "?"
	if strings.Contains(g.cfg.BuyLinkBase, "?") {
		sep = "&"
	}
	redirect := g.cfg.BuyLinkBase + sep + params.Encode()

	payment := &models.Payment{
		Method:      models.PaymentMethodTwoCheckout,
		Status:      models.PaymentStatusProcessing,
		Amount:      order.Total,
		Currency:    order.Currency,
		ProviderRef: order.Code,
		Meta: models.PaymentMeta{
			RedirectURL:      redirect,
			OriginalAmount:   order.Total,
			OriginalCurrency: order.Currency,
		},
	}

	return &BeginResult{RedirectURL: redirect, Payment: payment}, nil
}
