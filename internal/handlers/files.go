// internal/handlers/files.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gvoiceus/gvoiceus-backend/internal/i18n"
	"github.com/gvoiceus/gvoiceus-backend/internal/services"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

// FileHandler moves order files in and out. Customer routes and staff
// routes share it; the service decides per call what the actor may see.
type FileHandler struct {
	fulfillmentService *services.FulfillmentService
}

func NewFileHandler(fulfillmentService *services.FulfillmentService) *FileHandler {
	return &FileHandler{
		fulfillmentService: fulfillmentService,
	}
}

// POST /order-items/:item_id/user-file
func (h *FileHandler) UploadUserFile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "item_id"), nil)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "file"), nil)
		return
	}
	defer file.Close()

	item, warnings, err := h.fulfillmentService.UploadUserFile(c.Request.Context(), userID, itemID, file, header)
	if err != nil {
		h.fileError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, gin.H{
		"message": i18n.T(lang, i18n.KeyFileUploadSuccess),
		"item":    item,
	}, gin.H{"warnings": warnings})
}

// GET /order-items/:item_id/files/:slot
func (h *FileHandler) DownloadItemFile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "item_id"), nil)
		return
	}

	slot := c.Param("slot")
	if slot != services.FileSlotDelivery && slot != services.FileSlotUser {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "slot"), nil)
		return
	}

	rc, stored, err := h.fulfillmentService.OpenItemFile(c.Request.Context(), userID, isStaffRequest(c), itemID, slot)
	if err != nil {
		h.fileError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, stored.Size, stored.ContentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", stored.Name),
	})
}

// GET /orders/:id/delivery-file
func (h *FileHandler) DownloadOrderDeliveryFile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return
	}

	rc, stored, err := h.fulfillmentService.OpenOrderDeliveryFile(c.Request.Context(), userID, isStaffRequest(c), orderID)
	if err != nil {
		h.fileError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, stored.Size, stored.ContentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", stored.Name),
	})
}

// POST /staff/order-items/:item_id/delivery-file
func (h *FileHandler) AttachItemDeliveryFile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "item_id"), nil)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "file"), nil)
		return
	}
	defer file.Close()

	item, warnings, err := h.fulfillmentService.AttachItemDeliveryFile(c.Request.Context(), itemID, file, header)
	if err != nil {
		h.fileError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, gin.H{
		"message": i18n.T(lang, i18n.KeyFileUploadSuccess),
		"item":    item,
	}, gin.H{"warnings": warnings})
}

// POST /staff/orders/:id/delivery-file
func (h *FileHandler) AttachOrderDeliveryFile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "file"), nil)
		return
	}
	defer file.Close()

	order, warnings, err := h.fulfillmentService.AttachOrderDeliveryFile(c.Request.Context(), orderID, file, header)
	if err != nil {
		h.fileError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, gin.H{
		"message": i18n.T(lang, i18n.KeyFileUploadSuccess),
		"order":   order,
	}, gin.H{"warnings": warnings})
}

// DELETE /staff/order-items/:item_id/files/:slot
func (h *FileHandler) DeleteItemFile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "item_id"), nil)
		return
	}

	slot := c.Param("slot")
	if slot != services.FileSlotDelivery && slot != services.FileSlotUser {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "slot"), nil)
		return
	}

	if err := h.fulfillmentService.DeleteItemFile(c.Request.Context(), itemID, slot); err != nil {
		h.fileError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"deleted": true})
}

// DELETE /staff/orders/:id/delivery-file
func (h *FileHandler) DeleteOrderDeliveryFile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return
	}

	if err := h.fulfillmentService.DeleteOrderDeliveryFile(c.Request.Context(), orderID); err != nil {
		h.fileError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"deleted": true})
}

func (h *FileHandler) fileError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		utils.NotFoundResponse(c, "order")
	case errors.Is(err, services.ErrNoStoredFile), errors.Is(err, services.ErrObjectNotFound):
		utils.NotFoundResponse(c, "file")
	case errors.Is(err, services.ErrFileLocked):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyFileLocked))
	case errors.Is(err, services.ErrOrderNotPaid):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileOrderNotPaid), nil)
	case errors.Is(err, services.ErrFileTooLarge):
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", i18n.T(lang, i18n.KeyFileTooLarge), nil)
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
