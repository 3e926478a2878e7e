// internal/models/payment.go
package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMeta holds gateway-specific detail for one attempt. Amounts are
// in the payment's charge currency; the original order figures are kept
// alongside when a conversion happened.
type PaymentMeta struct {
	RedirectURL      string          `json:"redirect_url,omitempty"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency Currency        `json:"original_currency,omitempty"`
	FXRate           decimal.Decimal `json:"fx_rate"`
	Sandbox          bool            `json:"sandbox,omitempty"`
	ProviderStatus   string          `json:"provider_status,omitempty"`
	FailureReason    string          `json:"failure_reason,omitempty"`
}

func (m PaymentMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *PaymentMeta) Scan(value interface{}) error {
	if value == nil {
		*m = PaymentMeta{}
		return nil
	}
	return scanJSON(value, m)
}

type Payment struct {
	BaseModel
	OrderID     uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	Method      PaymentMethod   `json:"method" gorm:"type:varchar(20);not null;index"`
	Status      PaymentStatus   `json:"status" gorm:"type:varchar(20);default:'created';index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency    Currency        `json:"currency" gorm:"type:varchar(3);not null"`
	ProviderRef string          `json:"provider_ref,omitempty" gorm:"size:64;index"`
	Meta        PaymentMeta     `json:"meta" gorm:"type:jsonb"`

	Order  *Order         `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Events []PaymentEvent `json:"events,omitempty" gorm:"foreignKey:PaymentID"`
}

// PaymentEvent is the raw trace of everything a gateway told us about a
// payment. Rows are only ever inserted.
type PaymentEvent struct {
	BaseModel
	PaymentID uuid.UUID `json:"payment_id" gorm:"type:uuid;not null;index"`
	Kind      string    `json:"kind" gorm:"size:40;not null"`
	Payload   JSONB     `json:"payload" gorm:"type:jsonb"`
}
