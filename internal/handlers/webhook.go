// internal/handlers/webhook.go
package handlers

import (
	"errors"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gvoiceus/gvoiceus-backend/internal/services"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

// WebhookHandler receives gateway server-to-server notifications.
// Responses here talk to machines, not buyers, so no i18n and no
// envelope: the provider only cares about the status code.
type WebhookHandler struct {
	reconcileService *services.ReconcileService
	log              *logrus.Entry
}

func NewWebhookHandler(reconcileService *services.ReconcileService) *WebhookHandler {
	return &WebhookHandler{
		reconcileService: reconcileService,
		log:              logrus.WithField("handler", "webhook"),
	}
}

// POST /webhooks/twocheckout
func (h *WebhookHandler) TwoCheckout(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		utils.BadRequestResponse(c, "malformed form payload", nil)
		return
	}

	// Some notification setups put fields in the query string instead
	// of the body; take both.
	params := url.Values{}
	for key, values := range c.Request.Form {
		params[key] = values
	}

	err := h.reconcileService.HandleTwoCheckoutWebhook(c.Request.Context(), params, c.ClientIP())
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			utils.BadRequestResponse(c, "signature verification failed", nil)
			return
		}
		h.log.WithError(err).Error("Webhook processing failed")
		utils.InternalErrorResponse(c, "webhook processing failed")
		return
	}

	utils.SuccessResponse(c, gin.H{"received": true})
}
