// internal/handlers/catalog.go
package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/services"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
	cfg            *config.Config
}

func NewCatalogHandler(catalogService *services.CatalogService, cfg *config.Config) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		cfg:            cfg,
	}
}

// GET /products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	params := services.ProductListParams{
		PaginationParams: utils.GetPaginationParams(c, h.cfg.Catalog.PageSize, h.cfg.Catalog.MaxPageSize),
		CategorySlug:     c.Query("category"),
		InStock:          isTruthy(c.Query("in_stock")),
	}
	// Unparsable prices are dropped, not rejected.
	if raw := c.Query("min_price"); raw != "" {
		if v, err := decimal.NewFromString(raw); err == nil {
			params.MinPrice = &v
		}
	}
	if raw := c.Query("max_price"); raw != "" {
		if v, err := decimal.NewFromString(raw); err == nil {
			params.MaxPrice = &v
		}
	}

	products, total, err := h.catalogService.ListProducts(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params.PaginationParams))
}

// GET /products/:slug
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, related, err := h.catalogService.GetProduct(c.Param("slug"), isStaffRequest(c))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			utils.NotFoundResponse(c, "product")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": product,
		"related": related,
	})
}

// GET /categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.Navigation()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"categories": categories,
	})
}

func isStaffRequest(c *gin.Context) bool {
	role, ok := utils.GetUserRoleFromContext(c)
	return ok && role == string(models.UserRoleStaff)
}

func isTruthy(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes":
		return true
	}
	return false
}
