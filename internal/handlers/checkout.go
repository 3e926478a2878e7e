// internal/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gvoiceus/gvoiceus-backend/internal/i18n"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/services"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

type CheckoutHandler struct {
	paymentService   *services.PaymentService
	reconcileService *services.ReconcileService
}

func NewCheckoutHandler(paymentService *services.PaymentService, reconcileService *services.ReconcileService) *CheckoutHandler {
	return &CheckoutHandler{
		paymentService:   paymentService,
		reconcileService: reconcileService,
	}
}

// POST /checkout
func (h *CheckoutHandler) StartCheckout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.StartCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyPaymentMethodRequired), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	result, err := h.paymentService.StartCheckout(c.Request.Context(), userID, models.PaymentMethod(req.Method))
	if err != nil {
		h.checkoutError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyPaymentPending),
		"order":        result.Order,
		"payment":      result.Payment,
		"redirect_url": result.RedirectURL,
	})
}

// GET|POST /checkout/success?oc=
// 2Checkout sends the buyer back with a GET, SSLCommerz with a POST.
func (h *CheckoutHandler) Success(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	code := c.Query("oc")
	if code == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "oc"), nil)
		return
	}

	order, err := h.reconcileService.ConfirmReturn(c.Request.Context(), code)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if order == nil {
		utils.SuccessResponse(c, gin.H{"order": nil})
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentSuccess),
		"order":   order,
	})
}

// GET|POST /checkout/cancel?oc=
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	code := c.Query("oc")
	if code == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "oc"), nil)
		return
	}

	order, err := h.reconcileService.CancelReturn(c.Request.Context(), code)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if order == nil {
		utils.SuccessResponse(c, gin.H{"order": nil})
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderCancelled),
		"order":   order,
	})
}

func (h *CheckoutHandler) checkoutError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var cancel *services.CancelOrderError
	var initErr *services.GatewayInitError
	switch {
	case errors.As(err, &cancel):
		message := cancel.Error()
		switch {
		case errors.Is(cancel.Reason, services.ErrUnsupportedCurrency):
			message = i18n.T(lang, i18n.KeyPaymentCurrencyUnsupported)
		case errors.Is(cancel.Reason, services.ErrAmountBelowMinimum):
			message = i18n.T(lang, i18n.KeyPaymentAmountBelowMin)
		}
		utils.PaymentFailedResponse(c, message, gin.H{
			"order_status": models.OrderStatusCancelled,
			"reason":       cancel.Reason.Error(),
		})
	case errors.As(err, &initErr):
		utils.PaymentFailedResponse(c, i18n.T(lang, i18n.KeyPaymentGatewayRejected), gin.H{
			"order_status": models.OrderStatusPending,
			"reason":       initErr.Reason,
		})
	case errors.Is(err, services.ErrComingSoon):
		utils.ErrorResponse(c, http.StatusBadRequest, "COMING_SOON", i18n.T(lang, i18n.KeyPaymentComingSoon), nil)
	case errors.Is(err, services.ErrUnknownPaymentMethod):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyPaymentMethodUnknown), nil)
	case errors.Is(err, services.ErrGatewayNotConfigured):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "PAYMENT_UNAVAILABLE", i18n.T(lang, i18n.KeyPaymentNotConfigured), nil)
	case errors.Is(err, services.ErrEmptyCart):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyCartEmpty), nil)
	case errors.Is(err, services.ErrMixedCurrency):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyCartMixedCurrency), nil)
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
