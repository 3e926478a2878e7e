// internal/services/catalog_service.go
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gvoiceus/gvoiceus-backend/internal/config"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

const (
	productSearchMaxLen  = 80
	relatedProductsLimit = 4
)

// CategoryNavProvider supplies the storefront navigation tree.
type CategoryNavProvider interface {
	Categories() ([]models.Category, error)
}

// dbCategoryNav reads the category table, the normal setup.
type dbCategoryNav struct {
	db *gorm.DB
}

func (n dbCategoryNav) Categories() ([]models.Category, error) {
	var categories []models.Category
	err := n.db.Where("is_active = ?", true).
		Order("position ASC, name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}

// attributeCategoryNav derives pseudo-categories from the products'
// attributes when the category table is not in use. The entries carry
// name and slug only and never resolve through the category join.
type attributeCategoryNav struct {
	db *gorm.DB
}

func (n attributeCategoryNav) Categories() ([]models.Category, error) {
	var products []models.Product
	if err := n.db.Select("attributes").Where("is_active = ?", true).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to scan product attributes: %w", err)
	}

	seen := make(map[string]bool)
	var categories []models.Category
	for _, p := range products {
		name, _ := p.Attributes["category"].(string)
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		categories = append(categories, models.Category{
			Name: name,
			Slug: models.Slugify(name),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

// ProductListParams filters the public product listing. Sorting rides
// on the embedded pagination params: new, price_asc, price_desc, name.
type ProductListParams struct {
	utils.PaginationParams
	CategorySlug string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	InStock      bool
}

// CatalogService serves the public storefront catalog. Writes happen
// through back-office tooling, not here.
type CatalogService struct {
	db  *gorm.DB
	nav CategoryNavProvider
}

func NewCatalogService(db *gorm.DB, cfg *config.Config) *CatalogService {
	var nav CategoryNavProvider = attributeCategoryNav{db: db}
	if cfg.Catalog.CategoriesEnabled {
		nav = dbCategoryNav{db: db}
	}
	return &CatalogService{db: db, nav: nav}
}

// Navigation returns the storefront category navigation.
func (s *CatalogService) Navigation() ([]models.Category, error) {
	return s.nav.Categories()
}

// ListProducts returns active products matching the filters plus the
// total match count. An inverted price range is treated as swapped
// rather than rejected.
func (s *CatalogService) ListProducts(params ProductListParams) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{}).Preload("Category").
		Where("products.is_active = ?", true)

	if params.CategorySlug != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", strings.ToLower(strings.TrimSpace(params.CategorySlug)))
	}

	if params.Search != "" {
		needle := []rune(strings.TrimSpace(params.Search))
		if len(needle) > productSearchMaxLen {
			needle = needle[:productSearchMaxLen]
		}
		term := "%" + strings.ToLower(string(needle)) + "%"
		query = query.Where(
			"LOWER(products.name) LIKE ? OR LOWER(products.sku) LIKE ? OR LOWER(products.short_description) LIKE ? OR LOWER(products.description) LIKE ?",
			term, term, term, term,
		)
	}

	minPrice, maxPrice := params.MinPrice, params.MaxPrice
	if minPrice != nil && maxPrice != nil && minPrice.GreaterThan(*maxPrice) {
		minPrice, maxPrice = maxPrice, minPrice
	}
	if minPrice != nil {
		query = query.Where("products.price >= ?", *minPrice)
	}
	if maxPrice != nil {
		query = query.Where("products.price <= ?", *maxPrice)
	}

	if params.InStock {
		query = query.Where("products.stock > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query = applyProductSort(query, params.Sort)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, total, nil
}

// GetProduct returns one product by slug along with a handful of
// related products. Inactive products are visible to staff only.
func (s *CatalogService) GetProduct(slug string, staff bool) (*models.Product, []models.Product, error) {
	query := s.db.Preload("Category")
	if !staff {
		query = query.Where("is_active = ?", true)
	}

	var product models.Product
	if err := query.First(&product, "slug = ?", strings.ToLower(strings.TrimSpace(slug))).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProductNotFound
		}
		return nil, nil, fmt.Errorf("database error: %w", err)
	}

	related, err := s.relatedProducts(&product)
	if err != nil {
		return nil, nil, err
	}
	return &product, related, nil
}

// relatedProducts prefers the same category and falls back to the
// newest actives when the product has none.
func (s *CatalogService) relatedProducts(product *models.Product) ([]models.Product, error) {
	query := s.db.Where("is_active = ? AND id <> ?", true, product.ID).
		Order("created_at DESC").
		Limit(relatedProductsLimit)
	if product.CategoryID != nil {
		query = query.Where("category_id = ?", *product.CategoryID)
	}

	var related []models.Product
	if err := query.Find(&related).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch related products: %w", err)
	}
	return related, nil
}

func applyProductSort(query *gorm.DB, sortKey string) *gorm.DB {
	switch sortKey {
	case "price_asc":
		return query.Order("products.price ASC, products.created_at DESC")
	case "price_desc":
		return query.Order("products.price DESC, products.created_at DESC")
	case "name":
		return query.Order("products.name ASC")
	default: // "new"
		return query.Order("products.created_at DESC")
	}
}
