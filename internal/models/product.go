// internal/models/product.go
package models

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	BaseModel
	Name        string `json:"name" gorm:"size:120;not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;size:140;not null"`
	Description string `json:"description" gorm:"size:500"`
	Position    int    `json:"position" gorm:"default:0"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`

	Products []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID"`
}

func (c *Category) BeforeSave(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	return nil
}

type Product struct {
	BaseModel
	Name             string          `json:"name" gorm:"size:255;not null"`
	Slug             string          `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	SKU              string          `json:"sku" gorm:"uniqueIndex;size:64;not null"`
	ShortDescription string          `json:"short_description" gorm:"size:500"`
	Description      string          `json:"description" gorm:"type:text"`
	Price            decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Currency         Currency        `json:"currency" gorm:"type:varchar(3);default:'USD'"`
	Stock            int             `json:"stock" gorm:"default:0"`
	IsActive         bool            `json:"is_active" gorm:"default:true;index"`
	CategoryID       *uuid.UUID      `json:"category_id,omitempty" gorm:"type:uuid;index"`
	Gallery          pq.StringArray  `json:"gallery" gorm:"type:text[]"`
	Attributes       JSONB           `json:"attributes" gorm:"type:jsonb"`
	MetaTitle        string          `json:"meta_title" gorm:"size:255"`
	MetaDescription  string          `json:"meta_description" gorm:"size:500"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	p.Price = p.Price.RoundBank(2)
	return nil
}

// TracksStock reports whether stock is enforced. A zero stock level means
// the product is sold without inventory tracking, not that it is sold out.
func (p *Product) TracksStock() bool {
	return p.Stock > 0
}

// ClampQuantity bounds a requested quantity to the sellable range: at
// least zero, at most the per-line cap, and within stock when tracked.
func (p *Product) ClampQuantity(quantity int) int {
	if quantity > CartMaxPerItem {
		quantity = CartMaxPerItem
	}
	if p.TracksStock() && quantity > p.Stock {
		quantity = p.Stock
	}
	if quantity < 0 {
		quantity = 0
	}
	return quantity
}

// Slugify converts a name into a lowercase hyphenated URL slug.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
