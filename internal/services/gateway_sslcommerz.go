// internal/services/gateway_sslcommerz.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

var (
	ErrUnsupportedCurrency = errors.New("currency not supported by this payment method")
	ErrAmountBelowMinimum  = errors.New("amount is below the gateway minimum")
)

const sslcommerzTimeout = 20 * time.Second

// sslcommerzGateway charges in BDT. Orders in other currencies are
// converted at configured rates before the session is opened.
type sslcommerzGateway struct {
	cfg    config.SSLCommerzConfig
	site   config.SiteConfig
	client *http.Client
	log    *logrus.Entry
}

func NewSSLCommerzGateway(cfg config.SSLCommerzConfig, site config.SiteConfig, client *http.Client) Gateway {
	if client == nil {
		client = &http.Client{Timeout: sslcommerzTimeout}
	}
	return &sslcommerzGateway{
		cfg:    cfg,
		site:   site,
		client: client,
		log:    logrus.WithField("gateway", "sslcommerz"),
	}
}

func (g *sslcommerzGateway) Method() models.PaymentMethod {
	return models.PaymentMethodSSLCommerz
}

func (g *sslcommerzGateway) Configured() error {
	if g.cfg.StoreID == "" || g.cfg.StorePassword == "" {
		return ErrGatewayNotConfigured
	}
	return nil
}

// rate returns the multiplier into BDT for a sale currency.
func (g *sslcommerzGateway) rate(currency models.Currency) (decimal.Decimal, bool) {
	switch currency {
	case models.CurrencyBDT:
		return decimal.NewFromInt(1), true
	case models.CurrencyUSD:
		return g.cfg.RateUSD, true
	case models.CurrencyEUR:
		return g.cfg.RateEUR, true
	case models.CurrencyGBP:
		return g.cfg.RateGBP, true
	default:
		return decimal.Zero, false
	}
}

func (g *sslcommerzGateway) Begin(ctx context.Context, order *models.Order, user *models.User) (*BeginResult, error) {
	rate, ok := g.rate(order.Currency)
	if !ok {
		return nil, &CancelOrderError{Reason: fmt.Errorf("%w: %s", ErrUnsupportedCurrency, order.Currency)}
	}

	amountBDT := order.Total.Mul(rate).RoundBank(2)
	if amountBDT.LessThan(g.cfg.MinAmountBDT) {
		return nil, &CancelOrderError{Reason: fmt.Errorf("%w: %s BDT is under the %s BDT floor",
			ErrAmountBelowMinimum, amountBDT.StringFixed(2), g.cfg.MinAmountBDT.StringFixed(2))}
	}

	tranID, err := newTranID()
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("store_id", g.cfg.StoreID)
	form.Set("store_passwd", g.cfg.StorePassword)
	form.Set("total_amount", amountBDT.StringFixed(2))
	form.Set("currency", string(models.CurrencyBDT))
	form.Set("tran_id", tranID)
	form.Set("success_url", fmt.Sprintf("%s/v1/checkout/success?oc=%s", g.site.BaseURL, order.Code))
	form.Set("fail_url", fmt.Sprintf("%s/v1/checkout/cancel?oc=%s", g.site.BaseURL, order.Code))
	form.Set("cancel_url", fmt.Sprintf("%s/v1/checkout/cancel?oc=%s", g.site.BaseURL, order.Code))
	form.Set("emi_option", "0")
	form.Set("cus_name", user.DisplayName())
	form.Set("cus_email", user.Email)
	form.Set("cus_add1", "N/A")
	form.Set("cus_city", "N/A")
	form.Set("cus_postcode", "N/A")
	form.Set("cus_country", "Bangladesh")
	form.Set("cus_phone", "N/A")
	form.Set("shipping_method", "NO")
	form.Set("num_of_item", "1")
	form.Set("product_name", order.Code)
	form.Set("product_category", "digital")
	form.Set("product_profile", "general")

	initResp, err := g.createSession(ctx, form)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(initResp.Status, "SUCCESS") || initResp.GatewayPageURL == "" {
		reason := initResp.FailedReason
		if reason == "" {
			reason = fmt.Sprintf("status=%s", initResp.Status)
		}
		g.log.WithFields(logrus.Fields{"order": order.Code, "reason": reason}).Warn("Session init rejected")
		return nil, &GatewayInitError{Reason: reason}
	}

	payment := &models.Payment{
		Method:      models.PaymentMethodSSLCommerz,
		Status:      models.PaymentStatusProcessing,
		Amount:      amountBDT,
		Currency:    models.CurrencyBDT,
		ProviderRef: tranID,
		Meta: models.PaymentMeta{
			RedirectURL:      initResp.GatewayPageURL,
			OriginalAmount:   order.Total,
			OriginalCurrency: order.Currency,
			FXRate:           rate,
			Sandbox:          g.cfg.Sandbox,
			ProviderStatus:   initResp.Status,
		},
	}

	return &BeginResult{RedirectURL: initResp.GatewayPageURL, Payment: payment}, nil
}

type sslcommerzInitResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// createSession posts the init form and tolerates both response shapes
// the provider has been seen returning: JSON, and a urlencoded body.
func (g *sslcommerzGateway) createSession(ctx context.Context, form url.Values) (*sslcommerzInitResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint(),
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &GatewayInitError{Reason: fmt.Sprintf("gateway unreachable: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayInitError{Reason: fmt.Sprintf("unreadable gateway response: %v", err)}
	}

	var initResp sslcommerzInitResponse
	if jsonErr := json.Unmarshal(body, &initResp); jsonErr != nil {
		values, parseErr := url.ParseQuery(string(body))
		if parseErr != nil {
			return nil, &GatewayInitError{Reason: "unparseable gateway response"}
		}
		initResp.Status = values.Get("status")
		initResp.FailedReason = values.Get("failedreason")
		initResp.GatewayPageURL = values.Get("GatewayPageURL")
	}

	return &initResp, nil
}

// newTranID mints the provider-facing transaction reference.
func newTranID() (string, error) {
	h, err := utils.RandomHex(5)
	if err != nil {
		return "", err
	}
	return "GV" + strings.ToUpper(h), nil
}
