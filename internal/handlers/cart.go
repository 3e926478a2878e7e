// internal/handlers/cart.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gvoiceus/gvoiceus-backend/internal/i18n"
	"github.com/gvoiceus/gvoiceus-backend/internal/services"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

// CartHandler serves both signed-in carts and anonymous session carts.
// A guest gets a token minted on their first write; they send it back
// via the X-Guest-Token header until they log in and the cart merges.
type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	if userID, ok := utils.GetUserIDFromContext(c); ok {
		view, err := h.cartService.View(c.Request.Context(), userID)
		if err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}
		utils.SuccessResponse(c, gin.H{"cart": view})
		return
	}

	token, ok := utils.GetGuestTokenFromContext(c)
	if !ok {
		// No session yet: an empty cart, no token minted for a read.
		utils.SuccessResponse(c, gin.H{"cart": emptyCartView()})
		return
	}

	view, err := h.cartService.GuestView(c.Request.Context(), token)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	h.respondGuest(c, view, token)
}

// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if userID, ok := utils.GetUserIDFromContext(c); ok {
		if err := h.cartService.AddItem(c.Request.Context(), userID, req.Slug, req.Quantity); err != nil {
			h.cartError(c, err)
			return
		}
		view, err := h.cartService.View(c.Request.Context(), userID)
		if err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}
		utils.SuccessResponse(c, gin.H{
			"message": i18n.T(lang, i18n.KeyCartItemAdded),
			"cart":    view,
		})
		return
	}

	token, err := h.ensureGuestToken(c)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if err := h.cartService.GuestAdd(c.Request.Context(), token, req.Slug, req.Quantity); err != nil {
		h.cartError(c, err)
		return
	}
	view, err := h.cartService.GuestView(c.Request.Context(), token)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	h.respondGuest(c, view, token)
}

// PATCH /cart/items/:product_id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "product_id"), nil)
		return
	}

	var req services.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if userID, ok := utils.GetUserIDFromContext(c); ok {
		if err := h.cartService.SetQuantity(c.Request.Context(), userID, productID, *req.Quantity); err != nil {
			h.cartError(c, err)
			return
		}
		view, err := h.cartService.View(c.Request.Context(), userID)
		if err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}
		utils.SuccessResponse(c, gin.H{
			"message": i18n.T(lang, i18n.KeyCartUpdated),
			"cart":    view,
		})
		return
	}

	token, err := h.ensureGuestToken(c)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if err := h.cartService.GuestSetQuantity(c.Request.Context(), token, productID, *req.Quantity); err != nil {
		h.cartError(c, err)
		return
	}
	view, err := h.cartService.GuestView(c.Request.Context(), token)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	h.respondGuest(c, view, token)
}

// DELETE /cart/items/:product_id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "product_id"), nil)
		return
	}

	if userID, ok := utils.GetUserIDFromContext(c); ok {
		if err := h.cartService.RemoveItem(c.Request.Context(), userID, productID); err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}
		view, err := h.cartService.View(c.Request.Context(), userID)
		if err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}
		utils.SuccessResponse(c, gin.H{
			"message": i18n.T(lang, i18n.KeyCartItemRemoved),
			"cart":    view,
		})
		return
	}

	token, ok := utils.GetGuestTokenFromContext(c)
	if !ok {
		utils.SuccessResponse(c, gin.H{"cart": emptyCartView()})
		return
	}
	if err := h.cartService.GuestRemoveItem(c.Request.Context(), token, productID); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	view, err := h.cartService.GuestView(c.Request.Context(), token)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	h.respondGuest(c, view, token)
}

// DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if userID, ok := utils.GetUserIDFromContext(c); ok {
		if err := h.cartService.Clear(c.Request.Context(), userID); err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}
		utils.SuccessResponse(c, gin.H{"cart": emptyCartView()})
		return
	}

	if token, ok := utils.GetGuestTokenFromContext(c); ok {
		if err := h.cartService.GuestClear(c.Request.Context(), token); err != nil {
			utils.InternalErrorResponse(c, err.Error())
			return
		}
	}
	utils.SuccessResponse(c, gin.H{"cart": emptyCartView()})
}

// ensureGuestToken returns the request's guest token, minting one for
// a first write.
func (h *CartHandler) ensureGuestToken(c *gin.Context) (string, error) {
	if token, ok := utils.GetGuestTokenFromContext(c); ok {
		return token, nil
	}
	token, err := utils.RandomHex(16)
	if err != nil {
		return "", err
	}
	c.Set("guest_token", token)
	return token, nil
}

// respondGuest echoes the guest token so the client can persist it.
func (h *CartHandler) respondGuest(c *gin.Context, view *services.CartView, token string) {
	c.Header("X-Guest-Token", token)
	utils.SuccessResponseWithMeta(c, gin.H{"cart": view}, gin.H{"guest_token": token})
}

func (h *CartHandler) cartError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	switch {
	case errors.Is(err, services.ErrProductUnavailable):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyCartProductUnavailable), nil)
	case errors.Is(err, services.ErrInvalidQuantity):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "quantity"), nil)
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}

func emptyCartView() *services.CartView {
	return &services.CartView{Items: []services.CartItemView{}}
}
