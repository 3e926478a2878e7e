// internal/handlers/staff.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gvoiceus/gvoiceus-backend/internal/i18n"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/services"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

// StaffHandler is the back-office order view: listings with revenue
// summary, the full reconciliation trail per order, fulfillment
// toggles and manual expiry.
type StaffHandler struct {
	orderService       *services.OrderService
	fulfillmentService *services.FulfillmentService
}

func NewStaffHandler(orderService *services.OrderService, fulfillmentService *services.FulfillmentService) *StaffHandler {
	return &StaffHandler{
		orderService:       orderService,
		fulfillmentService: fulfillmentService,
	}
}

type setFulfillmentRequest struct {
	Status models.FulfillmentStatus `json:"status" validate:"required,oneof=running complete"`
}

// GET /staff/orders
func (h *StaffHandler) ListOrders(c *gin.Context) {
	params := utils.GetPaginationParams(c, 20, 100)
	orders, total, err := h.orderService.ListAll(c.Request.Context(), c.Query("status"), params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	summary, err := h.orderService.GlobalSummary(c.Request.Context())
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(orders, total, params)
	utils.SetPaginationHeaders(c, result)
	utils.SuccessResponseWithMeta(c, gin.H{
		"orders":  orders,
		"summary": summary,
	}, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

// GET /staff/orders/:id
func (h *StaffHandler) GetOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.NotFoundResponse(c, "order")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"order":    order,
		"webhooks": order.Data.Webhooks,
		"returns":  order.Data.Returns,
	})
}

// PATCH /staff/orders/:id/fulfillment
func (h *StaffHandler) SetFulfillment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return
	}

	var req setFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	order, err := h.fulfillmentService.SetFulfillment(orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, "order")
		case errors.Is(err, services.ErrOrderNotPaid):
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileOrderNotPaid), nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"order": order})
}

// POST /staff/orders/:id/expire
func (h *StaffHandler) ExpireOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return
	}

	order, err := h.orderService.Expire(c.Request.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, "order")
		case errors.Is(err, services.ErrInvalidTransition):
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyOrderBadTransition), nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderExpired),
		"order":   order,
	})
}
