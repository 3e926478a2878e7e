// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for opaque jsonb columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return scanJSON(value, j)
}

// scanJSON unmarshals a jsonb column regardless of whether the driver hands
// us bytes (postgres) or a string (sqlite in tests).
func scanJSON(value interface{}, dst interface{}) error {
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, dst)
	case string:
		return json.Unmarshal([]byte(data), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}

// Enums
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleStaff    UserRole = "staff"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyBDT Currency = "BDT"
	CurrencyINR Currency = "INR"
)

type OrderStatus string

const (
	OrderStatusPending     OrderStatus = "pending"
	OrderStatusPaid        OrderStatus = "paid"
	OrderStatusFailed      OrderStatus = "failed"
	OrderStatusCancelled   OrderStatus = "cancelled"
	OrderStatusExpired     OrderStatus = "expired"
	OrderStatusChargedBack OrderStatus = "charged_back"
)

// validNextOrderStatus is the only place order transitions are defined.
// An order never leaves a terminal status, and a paid order can only
// move to charged_back.
var validNextOrderStatus = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending: {
		OrderStatusPaid:      true,
		OrderStatusFailed:    true,
		OrderStatusCancelled: true,
		OrderStatusExpired:   true,
	},
	OrderStatusPaid:        {OrderStatusChargedBack: true},
	OrderStatusFailed:      {},
	OrderStatusCancelled:   {},
	OrderStatusExpired:     {},
	OrderStatusChargedBack: {},
}

// CanTransition reports whether an order may move from one status to
// another. Repeating the current status is an allowed no-op so that
// duplicate gateway notifications stay idempotent.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	return validNextOrderStatus[from][to]
}

func (s OrderStatus) Terminal() bool {
	return len(validNextOrderStatus[s]) == 0
}

type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "created"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// InFlight reports whether the attempt is still waiting on the gateway.
func (s PaymentStatus) InFlight() bool {
	return s == PaymentStatusCreated || s == PaymentStatusProcessing
}

type PaymentMethod string

const (
	PaymentMethodTwoCheckout PaymentMethod = "twocheckout"
	PaymentMethodSSLCommerz  PaymentMethod = "sslcommerz"
	PaymentMethodCoin        PaymentMethod = "coin"
)

func KnownPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodTwoCheckout, PaymentMethodSSLCommerz, PaymentMethodCoin:
		return true
	}
	return false
}

type FulfillmentStatus string

const (
	FulfillmentNone     FulfillmentStatus = "none"
	FulfillmentRunning  FulfillmentStatus = "running"
	FulfillmentComplete FulfillmentStatus = "complete"
)

// StoredFile is an embedded record of one object held in file storage.
type StoredFile struct {
	Key         string `json:"key,omitempty" gorm:"size:512"`
	Name        string `json:"name,omitempty" gorm:"size:255"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty" gorm:"size:100"`
}

func (f StoredFile) Empty() bool {
	return f.Key == ""
}
