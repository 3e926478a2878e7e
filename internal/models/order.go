// internal/models/order.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotLine is one priced cart line frozen at checkout time. Orders
// keep rendering correctly from these even after the product changes.
type SnapshotLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Slug      string          `json:"slug"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Currency  Currency        `json:"currency"`
}

type SnapshotLines []SnapshotLine

func (l SnapshotLines) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *SnapshotLines) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return scanJSON(value, l)
}

// WebhookAuditEntry records one gateway notification against an order,
// applied or not. The trail is append-only.
type WebhookAuditEntry struct {
	ReceivedAt   time.Time         `json:"received_at"`
	RemoteIP     string            `json:"remote_ip,omitempty"`
	RawStatus    string            `json:"raw_status"`
	MappedStatus OrderStatus       `json:"mapped_status,omitempty"`
	Applied      bool              `json:"applied"`
	Trusted      bool              `json:"trusted"`
	Params       map[string]string `json:"params,omitempty"`
}

// ReturnAuditEntry records a buyer coming back from a gateway page.
type ReturnAuditEntry struct {
	ReceivedAt time.Time `json:"received_at"`
	Kind       string    `json:"kind"`
	Applied    bool      `json:"applied"`
}

// OrderData is the order's jsonb side-channel for reconciliation history.
type OrderData struct {
	Webhooks []WebhookAuditEntry `json:"webhooks,omitempty"`
	Returns  []ReturnAuditEntry  `json:"returns,omitempty"`
}

func (d OrderData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *OrderData) Scan(value interface{}) error {
	if value == nil {
		*d = OrderData{}
		return nil
	}
	return scanJSON(value, d)
}

type Order struct {
	BaseModel
	Code        string            `json:"code" gorm:"uniqueIndex;size:16;not null"`
	UserID      uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	Status      OrderStatus       `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Currency    Currency          `json:"currency" gorm:"type:varchar(3);not null"`
	Subtotal    decimal.Decimal   `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Total       decimal.Decimal   `json:"total" gorm:"type:decimal(12,2);not null"`
	Snapshot    SnapshotLines     `json:"snapshot" gorm:"type:jsonb"`
	Data        OrderData         `json:"data" gorm:"type:jsonb"`
	Fulfillment FulfillmentStatus `json:"fulfillment" gorm:"type:varchar(20);default:'none'"`
	Notes       string            `json:"notes,omitempty" gorm:"type:text"`
	PaidAt      *time.Time        `json:"paid_at,omitempty"`

	DeliveryFile StoredFile `json:"delivery_file,omitempty" gorm:"embedded;embeddedPrefix:delivery_file_"`

	User     *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items    []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Payments []Payment   `json:"payments,omitempty" gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID *uuid.UUID      `json:"product_id,omitempty" gorm:"type:uuid;index"`
	Name      string          `json:"name" gorm:"size:255;not null"`
	SKU       string          `json:"sku" gorm:"size:64"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	LineTotal decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`
	Currency  Currency        `json:"currency" gorm:"type:varchar(3);not null"`

	DeliveryFile       StoredFile `json:"delivery_file,omitempty" gorm:"embedded;embeddedPrefix:delivery_file_"`
	UserFile           StoredFile `json:"user_file,omitempty" gorm:"embedded;embeddedPrefix:user_file_"`
	UserFileUploadedAt *time.Time `json:"user_file_uploaded_at,omitempty"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// UserFileLocked reports whether the customization slot has been used.
// The lock survives staff deleting the file itself.
func (i *OrderItem) UserFileLocked() bool {
	return i.UserFileUploadedAt != nil
}
